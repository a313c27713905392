package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"message":{"component":"profile","action":"get","data":{"a":1}}}`))
	require.NoError(t, err)
	assert.Equal(t, "profile", req.Component)
	assert.Equal(t, "get", req.Action)
	assert.JSONEq(t, `{"a":1}`, string(req.Data))
}

func TestDecodeRequestWithoutData(t *testing.T) {
	for _, raw := range []string{
		`{"message":{"component":"auth","action":"logout"}}`,
		`{"message":{"component":"auth","action":"logout","data":null}}`,
	} {
		req, err := DecodeRequest([]byte(raw))
		require.NoError(t, err)
		assert.Empty(t, req.Data)

		var v map[string]any
		assert.ErrorIs(t, req.DecodeData(&v), ErrMalformedEnvelope)
	}
}

func TestDecodeRequestMalformed(t *testing.T) {
	for _, raw := range []string{
		``,
		`not json`,
		`{}`,
		`{"message":null}`,
		`{"message":{"component":"","action":"get"}}`,
		`{"message":{"component":"profile"}}`,
		`{"message":{"component":7,"action":"get"}}`,
	} {
		_, err := DecodeRequest([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "payload %q", raw)
	}
}

func TestPacketEncoding(t *testing.T) {
	b, err := json.Marshal(NewPacket("auth", "login", map[string]any{"name": "alice"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"component":"auth","action":"login","data":{"name":"alice"}}`, string(b))

	b, err = json.Marshal(NewPacket("auth", "logout", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"component":"auth","action":"logout"}`, string(b))
}

func TestPublicFieldsHideSecrets(t *testing.T) {
	account := &Account{UUID: "U1", Name: "alice", PasswordHash: "secret"}
	fields := account.PublicFields()
	assert.Equal(t, "alice", fields["name"])
	assert.NotContains(t, fields, "passhash")

	cfg := &ClientConfig{UUID: "CFG1", Name: "laptop"}
	assert.Equal(t, ClientID("CFG1"), cfg.ClientID())
	assert.Equal(t, "laptop", cfg.PublicFields()["name"])
}
