package model

// AuthRequest asks the authentication bridge to verify credentials for a socket
type AuthRequest struct {
	Username string
	Password string
	// ClientID is the temporary id of the requesting client
	ClientID ClientID
	// RequestedClientID is the stable client id the client asks to resume
	RequestedClientID ClientID
	Socket            SocketHandle
}

// Grant is delivered by the authentication bridge after a successful login
type Grant struct {
	Account      *Account
	Profile      *Profile
	ClientConfig *ClientConfig
	UserID       UserID
	// OriginatingClientID is the temporary id the login request came from
	OriginatingClientID ClientID
	Socket              SocketHandle
}

// Denial is delivered by the authentication bridge after a failed login
type Denial struct {
	OriginatingClientID ClientID
	Socket              SocketHandle
	Reason              string
}
