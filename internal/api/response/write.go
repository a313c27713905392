package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as the response body with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Queued acknowledges a packet handed to the router. Delivery to sockets is
// asynchronous so the response is 202.
func Queued(w http.ResponseWriter) {
	JSON(w, http.StatusAccepted, Delivered{Status: "queued"})
}
