package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wsgate/internal/dependencies/mocks"
	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/registry"
	"github.com/mcoot/wsgate/internal/session"
	"github.com/mcoot/wsgate/internal/testutil"
)

// fakeAuth records authentication requests; tests deliver grants by hand
type fakeAuth struct {
	mu       sync.Mutex
	requests []model.AuthRequest
	err      error
}

func (a *fakeAuth) RequestAuthentication(_ context.Context, req model.AuthRequest, _ GrantReceiver) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.requests = append(a.requests, req)
	return nil
}

func (a *fakeAuth) Requests() []model.AuthRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AuthRequest(nil), a.requests...)
}

type fixture struct {
	router    *Router
	registry  *registry.Registry
	sessions  *session.Table
	transport *testutil.Transport
	auth      *fakeAuth
	ids       *mocks.MockIDGen
	logs      *testutil.LogBuffer
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, logs := testutil.CaptureLogger()
	ids := mocks.NewMockIDGen()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	reg := registry.New(ids, clk, logger)
	sessions := session.New(logger)
	transport := testutil.NewTransport()
	auth := &fakeAuth{}

	return &fixture{
		router:    New(reg, sessions, transport, auth, logger),
		registry:  reg,
		sessions:  sessions,
		transport: transport,
		auth:      auth,
		ids:       ids,
		logs:      logs,
		ctx:       context.Background(),
	}
}

func (f *fixture) connect(t *testing.T, handle model.SocketHandle, ip string, id model.ClientID) {
	t.Helper()
	f.ids.Queue(string(id))
	got, err := f.router.Connect(f.ctx, handle, ip)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func envelope(component, action string, data any) []byte {
	msg := map[string]any{"component": component, "action": action}
	if data != nil {
		msg["data"] = data
	}
	b, _ := json.Marshal(map[string]any{"message": msg})
	return b
}

func loginMessage(username, clientUUID string) []byte {
	return envelope("auth", "login", map[string]any{
		"username":   username,
		"password":   "x",
		"clientuuid": clientUUID,
	})
}

func newGrant(userID model.UserID, cfgID model.ClientID, origin model.ClientID, handle model.SocketHandle) *model.Grant {
	return &model.Grant{
		Account:             &model.Account{UUID: userID, Name: "alice"},
		Profile:             &model.Profile{UUID: "P-" + string(userID), Owner: userID, DisplayName: "Alice"},
		ClientConfig:        &model.ClientConfig{UUID: cfgID, Owner: userID, Name: "client " + string(cfgID)},
		UserID:              userID,
		OriginatingClientID: origin,
		Socket:              handle,
	}
}

// authenticate connects a socket and runs a full login for it
func (f *fixture) authenticate(t *testing.T, handle model.SocketHandle, tempID model.ClientID, userID model.UserID, cfgID model.ClientID) {
	t.Helper()
	f.connect(t, handle, fmt.Sprintf("10.0.0.%d", handle), tempID)
	require.NoError(t, f.router.Read(f.ctx, handle, loginMessage("alice", string(tempID))))
	f.router.Grant(f.ctx, newGrant(userID, cfgID, tempID, handle))
}

type recordingHandler struct {
	mu       sync.Mutex
	requests []*Request
}

func (h *recordingHandler) Handle(_ context.Context, req *Request) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

func TestConnectSendsAcknowledgment(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	packets := f.transport.Packets(t, 1)
	require.Len(t, packets, 1)
	assert.Equal(t, "connection", packets[0].Component)
	assert.Equal(t, "connected", packets[0].Action)
	assert.Equal(t, map[string]any{"clientuuid": "C1"}, packets[0].Data)
	assert.Equal(t, StateConnected, f.router.State(1))
}

func TestConnectDuplicateIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	f.ids.Queue("C2")
	_, err := f.router.Connect(f.ctx, 1, "10.0.0.9")
	assert.ErrorIs(t, err, model.ErrDuplicateConnection)
	assert.True(t, f.logs.Contains("socket connected twice"))

	client, err := f.registry.ClientForSocket(1)
	require.NoError(t, err)
	assert.Equal(t, model.ClientID("C1"), client.ID)
	assert.Len(t, f.transport.Writes(1), 1)
}

func TestConnectThenDisconnectLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name         string
		authenticate bool
	}{
		{name: "anonymous", authenticate: false},
		{name: "authenticated", authenticate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.authenticate {
				f.authenticate(t, 1, "C1", "U1", "CFG1")
			} else {
				f.connect(t, 1, "10.0.0.1", "C1")
			}

			f.router.Disconnect(f.ctx, 1)

			_, err := f.registry.Socket(1)
			assert.ErrorIs(t, err, model.ErrUnknownSocket)
			sockets, clients := f.registry.Counts()
			assert.Zero(t, sockets)
			assert.Zero(t, clients)
			for _, id := range f.sessions.UserIDs() {
				ids, err := f.sessions.ClientsOf(id)
				require.NoError(t, err)
				assert.Empty(t, ids)
			}
			assert.Equal(t, StateDisconnected, f.router.State(1))
		})
	}
}

func TestDisconnectUnknownSocketIsNoop(t *testing.T) {
	f := newFixture(t)
	f.router.Disconnect(f.ctx, 99)

	sockets, clients := f.registry.Counts()
	assert.Zero(t, sockets)
	assert.Zero(t, clients)
}

func TestLoginScenario(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	err := f.router.Read(f.ctx, 1, loginMessage("alice", "C1"))
	require.NoError(t, err)

	requests := f.auth.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, model.AuthRequest{
		Username:          "alice",
		Password:          "x",
		ClientID:          "C1",
		RequestedClientID: "C1",
		Socket:            1,
	}, requests[0])
	assert.Equal(t, StateAuthenticating, f.router.State(1))

	f.router.Grant(f.ctx, newGrant("U1", "CFG1", "C1", 1))

	client, err := f.registry.Client("CFG1")
	require.NoError(t, err)
	assert.Equal(t, model.SocketHandle(1), client.Socket)
	assert.Equal(t, model.UserID("U1"), client.UserID)
	assert.Equal(t, "10.0.0.1", client.IP)
	assert.Equal(t, "client CFG1", client.Name)
	_, err = f.registry.Client("C1")
	assert.ErrorIs(t, err, model.ErrUnknownClient)

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1"}, clients)

	assert.Equal(t, []string{
		"connection/connected",
		"auth/login",
		"profile/get",
		"clientconfig/get",
	}, f.transport.Routes(t, 1))

	packets := f.transport.Packets(t, 1)
	assert.Equal(t, "alice", packets[1].Data.(map[string]any)["name"])
	assert.Equal(t, "Alice", packets[2].Data.(map[string]any)["displayname"])
	assert.Equal(t, "CFG1", packets[3].Data.(map[string]any)["uuid"])
	assert.NotContains(t, packets[1].Data.(map[string]any), "passhash")

	assert.Equal(t, StateAuthenticated, f.router.State(1))
}

func TestRepeatedGrantDoesNotDuplicateSession(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	// The same socket logs in again, now carrying its stable id
	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "CFG1")))
	f.router.Grant(f.ctx, newGrant("U1", "CFG1", "CFG1", 1))

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1"}, clients)
	_, count := f.registry.Counts()
	assert.Equal(t, 1, count)
	assert.True(t, f.logs.Contains("client already logged in"))

	// Socket binding still updated and login packets resent
	client, err := f.registry.ClientForSocket(1)
	require.NoError(t, err)
	assert.Equal(t, model.ClientID("CFG1"), client.ID)
	assert.Len(t, f.transport.Writes(1), 7)
}

func TestGrantForVanishedSocketIsAbandoned(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")
	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "C1")))

	f.router.Disconnect(f.ctx, 1)
	f.router.Grant(f.ctx, newGrant("U1", "CFG1", "C1", 1))

	sockets, clients := f.registry.Counts()
	assert.Zero(t, sockets)
	assert.Zero(t, clients)
	assert.Zero(t, f.sessions.Len())
	assert.True(t, f.logs.Contains("abandoning grant"))
}

func TestGrantRacingDisconnect(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		f.connect(t, 1, "10.0.0.1", "C1")
		require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "C1")))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.router.Grant(f.ctx, newGrant("U1", "CFG1", "C1", 1))
		}()
		go func() {
			defer wg.Done()
			f.router.Disconnect(f.ctx, 1)
		}()
		wg.Wait()

		sockets, clients := f.registry.Counts()
		require.Zero(t, sockets)
		require.Zero(t, clients)
		if ids, err := f.sessions.ClientsOf("U1"); err == nil {
			require.Empty(t, ids)
		} else {
			require.ErrorIs(t, err, model.ErrUnknownUser)
		}
	}
}

func TestIncompleteGrantIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	f.router.Grant(f.ctx, nil)
	f.router.Grant(f.ctx, &model.Grant{UserID: "U1", Socket: 1, OriginatingClientID: "C1"})

	assert.Zero(t, f.sessions.Len())
	assert.Equal(t, StateConnected, f.router.State(1))
}

func TestGrantMovesClientBetweenUsers(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("bob", "CFG1")))
	f.router.Grant(f.ctx, newGrant("U2", "CFG9", "CFG1", 1))

	u1, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Empty(t, u1)
	u2, err := f.sessions.ClientsOf("U2")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG9"}, u2)
}

func TestReloginWithNewConfigReplacesSessionEntry(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	// Same user, but the bridge resolves a different config this time
	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "unknown-config")))
	f.router.Grant(f.ctx, newGrant("U1", "CFG2", "CFG1", 1))

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG2"}, clients)
	_, err = f.registry.Client("CFG1")
	assert.ErrorIs(t, err, model.ErrUnknownClient)
	assert.False(t, f.logs.Contains("client already logged in"))

	f.router.Disconnect(f.ctx, 1)
	clients, err = f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "hello"},
		{name: "not an object", raw: `[1,2,3]`},
		{name: "missing message", raw: `{"component":"auth"}`},
		{name: "missing component", raw: `{"message":{"action":"get"}}`},
		{name: "missing action", raw: `{"message":{"component":"profile"}}`},
		{name: "message not an object", raw: `{"message":"auth"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.connect(t, 1, "10.0.0.1", "C1")

			err := f.router.Read(f.ctx, 1, []byte(tt.raw))
			assert.ErrorIs(t, err, model.ErrMalformedEnvelope)

			// Connection stays registered and nothing is sent back
			_, err = f.registry.ClientForSocket(1)
			assert.NoError(t, err)
			assert.Len(t, f.transport.Writes(1), 1)
		})
	}
}

func TestMalformedLoginIsDropped(t *testing.T) {
	tests := []struct {
		name string
		data any
	}{
		{name: "no data", data: nil},
		{name: "missing password", data: map[string]any{"username": "alice", "clientuuid": "C1"}},
		{name: "missing clientuuid", data: map[string]any{"username": "alice", "password": "x"}},
		{name: "wrong types", data: map[string]any{"username": 1, "password": "x", "clientuuid": "C1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.connect(t, 1, "10.0.0.1", "C1")

			err := f.router.Read(f.ctx, 1, envelope("auth", "login", tt.data))
			assert.ErrorIs(t, err, model.ErrMalformedEnvelope)
			assert.Empty(t, f.auth.Requests())
			assert.Equal(t, StateConnected, f.router.State(1))
		})
	}
}

func TestReadFromUnknownSocket(t *testing.T) {
	f := newFixture(t)

	err := f.router.Read(f.ctx, 7, loginMessage("alice", "C1"))
	assert.ErrorIs(t, err, model.ErrUnknownSocket)
	assert.Empty(t, f.auth.Requests())
	assert.True(t, f.logs.Contains("read from unresolvable socket"))
}

func TestAnonymousProtectedRequestIsRejected(t *testing.T) {
	f := newFixture(t)
	handler := &recordingHandler{}
	require.NoError(t, f.router.Register("profile", handler))
	f.connect(t, 1, "10.0.0.1", "C1")

	err := f.router.Read(f.ctx, 1, envelope("profile", "get", nil))
	assert.ErrorIs(t, err, model.ErrUnauthorizedComponent)
	assert.Zero(t, handler.count())
	assert.Len(t, f.transport.Writes(1), 1)
}

func TestAuthenticatedRequestIsDispatched(t *testing.T) {
	f := newFixture(t)
	handler := &recordingHandler{}
	require.NoError(t, f.router.Register("profile", handler))
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	err := f.router.Read(f.ctx, 1, envelope("profile", "update", map[string]any{"displayname": "Al"}))
	require.NoError(t, err)

	require.Equal(t, 1, handler.count())
	req := handler.requests[0]
	assert.Equal(t, "profile", req.Component)
	assert.Equal(t, "update", req.Action)
	assert.Equal(t, model.UserID("U1"), req.User.ID)
	assert.Equal(t, []model.ClientID{"CFG1"}, req.User.Clients)
	assert.Equal(t, model.ClientID("CFG1"), req.Client.ID)

	var data struct {
		DisplayName string `json:"displayname"`
	}
	require.NoError(t, req.Decode(&data))
	assert.Equal(t, "Al", data.DisplayName)
}

func TestUnknownComponentIsRejected(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	err := f.router.Read(f.ctx, 1, envelope("nonexistent", "get", nil))
	assert.ErrorIs(t, err, model.ErrUnknownComponent)
}

func TestHandlerFailuresAreContained(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	require.NoError(t, f.router.Register("failing", HandlerFunc(func(context.Context, *Request) error {
		return boom
	})))
	require.NoError(t, f.router.Register("panicking", HandlerFunc(func(context.Context, *Request) error {
		panic("handler exploded")
	})))
	ok := &recordingHandler{}
	require.NoError(t, f.router.Register("ok", ok))
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	err := f.router.Read(f.ctx, 1, envelope("failing", "do", nil))
	assert.ErrorIs(t, err, model.ErrHandlerFailure)
	assert.ErrorIs(t, err, boom)

	err = f.router.Read(f.ctx, 1, envelope("panicking", "do", nil))
	assert.ErrorIs(t, err, model.ErrHandlerFailure)
	assert.True(t, f.logs.Contains("panic in component handler"))

	// Connection survives and keeps working
	require.NoError(t, f.router.Read(f.ctx, 1, envelope("ok", "do", nil)))
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, StateAuthenticated, f.router.State(1))
}

func TestLogoutDetachesAndRevokesAccess(t *testing.T) {
	f := newFixture(t)
	handler := &recordingHandler{}
	require.NoError(t, f.router.Register("profile", handler))
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	writesBefore := len(f.transport.Writes(1))

	require.NoError(t, f.router.Read(f.ctx, 1, envelope("auth", "logout", nil)))

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Empty(t, clients)
	assert.Len(t, f.transport.Writes(1), writesBefore)

	// The connection keeps its stable id but no longer resolves to a user
	client, err := f.registry.ClientForSocket(1)
	require.NoError(t, err)
	assert.Equal(t, model.ClientID("CFG1"), client.ID)
	assert.False(t, client.Authenticated())
	assert.Equal(t, StateConnected, f.router.State(1))

	err = f.router.Read(f.ctx, 1, envelope("profile", "get", nil))
	assert.ErrorIs(t, err, model.ErrUnauthorizedComponent)
	assert.Zero(t, handler.count())
}

func TestLogoutWhenAnonymous(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	assert.NoError(t, f.router.Read(f.ctx, 1, envelope("auth", "logout", nil)))
	assert.Equal(t, StateConnected, f.router.State(1))
}

func TestUnknownAuthAction(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")

	err := f.router.Read(f.ctx, 1, envelope("auth", "dance", nil))
	assert.ErrorIs(t, err, model.ErrMalformedEnvelope)
}

func TestAuthenticatorErrorClearsPendingLogin(t *testing.T) {
	f := newFixture(t)
	f.auth.err = errors.New("bridge offline")
	f.connect(t, 1, "10.0.0.1", "C1")

	err := f.router.Read(f.ctx, 1, loginMessage("alice", "C1"))
	assert.Error(t, err)
	assert.Equal(t, StateConnected, f.router.State(1))
	assert.Zero(t, f.router.Stats().PendingLogins)
}

func TestDenySendsFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")
	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "C1")))

	f.router.Deny(f.ctx, &model.Denial{OriginatingClientID: "C1", Socket: 1, Reason: "invalid credentials"})

	packets := f.transport.Packets(t, 1)
	require.Len(t, packets, 2)
	assert.Equal(t, "auth", packets[1].Component)
	assert.Equal(t, "fail", packets[1].Action)
	assert.Equal(t, map[string]any{"reason": "invalid credentials"}, packets[1].Data)
	assert.Equal(t, StateConnected, f.router.State(1))
}

func TestDenyForVanishedSocket(t *testing.T) {
	f := newFixture(t)
	f.router.Deny(f.ctx, &model.Denial{OriginatingClientID: "C1", Socket: 1, Reason: "nope"})
	assert.Empty(t, f.transport.Writes(1))
}

func TestTwoSocketsSameUser(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.authenticate(t, 2, "C2", "U1", "CFG2")
	f.transport.Reset()

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1", "CFG2"}, clients)

	require.NoError(t, f.router.SendToUser("U1", model.NewPacket("chat", "message", "hi")))
	assert.Equal(t, []string{"chat/message"}, f.transport.Routes(t, 1))
	assert.Equal(t, []string{"chat/message"}, f.transport.Routes(t, 2))

	f.transport.Reset()
	require.NoError(t, f.router.SendToClient("CFG1", model.NewPacket("chat", "direct", "psst")))
	assert.Equal(t, []string{"chat/direct"}, f.transport.Routes(t, 1))
	assert.Empty(t, f.transport.Writes(2))
}

func TestSendToUnknownTargets(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.transport.Reset()

	assert.ErrorIs(t, f.router.SendToUser("nobody", model.NewPacket("x", "y", nil)), model.ErrUnknownUser)
	assert.ErrorIs(t, f.router.SendToClient("nobody", model.NewPacket("x", "y", nil)), model.ErrUnknownClient)
	assert.Empty(t, f.transport.Writes(1))

	// Other sends are unaffected
	require.NoError(t, f.router.SendToUser("U1", model.NewPacket("x", "y", nil)))
	assert.Len(t, f.transport.Writes(1), 1)
}

func TestSendRawPayload(t *testing.T) {
	f := newFixture(t)
	f.connect(t, 1, "10.0.0.1", "C1")
	f.transport.Reset()

	raw := []byte(`{"component":"raw","action":"blob","data":[1,2]}`)
	require.NoError(t, f.router.SendToClient("C1", raw))
	require.NoError(t, f.router.SendToClient("C1", json.RawMessage(`{"pre":"serialised"}`)))

	writes := f.transport.Writes(1)
	require.Len(t, writes, 2)
	assert.Equal(t, raw, writes[0])
	assert.JSONEq(t, `{"pre":"serialised"}`, string(writes[1]))
}

func TestBroadcastAudiences(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.authenticate(t, 2, "C2", "U2", "CFG2")
	f.connect(t, 3, "10.0.0.3", "C3")
	f.transport.Reset()

	packet := model.NewPacket("system", "notice", "hello")

	require.NoError(t, f.router.Broadcast(BroadcastUsers, packet))
	assert.Len(t, f.transport.Writes(1), 1)
	assert.Len(t, f.transport.Writes(2), 1)
	assert.Empty(t, f.transport.Writes(3), "anonymous clients are not users")

	f.transport.Reset()
	require.NoError(t, f.router.Broadcast(BroadcastClients, packet))
	assert.Len(t, f.transport.Writes(1), 1)
	assert.Len(t, f.transport.Writes(2), 1)
	assert.Len(t, f.transport.Writes(3), 1)

	f.transport.Reset()
	require.NoError(t, f.router.Broadcast(BroadcastSockets, packet))
	for _, h := range []model.SocketHandle{1, 2, 3} {
		assert.Len(t, f.transport.Writes(h), 1)
	}

	assert.ErrorIs(t, f.router.Broadcast("everyone", packet), ErrUnknownBroadcastType)
}

func TestTakenOverSocketFallsBackToAnonymousClient(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")

	// A second connection logs in with the same stable client id
	f.connect(t, 2, "10.0.0.2", "C2")
	require.NoError(t, f.router.Read(f.ctx, 2, loginMessage("alice", "CFG1")))
	f.transport.Reset()
	f.ids.Queue("C1-FALLBACK")
	f.router.Grant(f.ctx, newGrant("U1", "CFG1", "C2", 2))

	owner, err := f.registry.Client("CFG1")
	require.NoError(t, err)
	assert.Equal(t, model.SocketHandle(2), owner.Socket)

	// The older socket is told its new anonymous id and keeps working
	assert.Equal(t, []string{"connection/connected"}, f.transport.Routes(t, 1))
	assert.Equal(t, map[string]any{"clientuuid": "C1-FALLBACK"}, f.transport.Packets(t, 1)[0].Data)
	fallback, err := f.registry.ClientForSocket(1)
	require.NoError(t, err)
	assert.Equal(t, model.ClientID("C1-FALLBACK"), fallback.ID)
	assert.Equal(t, "10.0.0.1", fallback.IP)
	assert.False(t, fallback.Authenticated())
	assert.Equal(t, StateConnected, f.router.State(1))

	clients, err := f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1"}, clients)

	// Both sockets are still reachable as clients
	f.transport.Reset()
	packet := model.NewPacket("system", "shutdown", nil)
	require.NoError(t, f.router.Broadcast(BroadcastClients, packet))
	assert.Len(t, f.transport.Writes(1), 1)
	assert.Len(t, f.transport.Writes(2), 1)

	// The older socket can log in again
	require.NoError(t, f.router.Read(f.ctx, 1, loginMessage("alice", "C1-FALLBACK")))
	f.router.Grant(f.ctx, newGrant("U1", "CFG2", "C1-FALLBACK", 1))
	clients, err = f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1", "CFG2"}, clients)

	// Dropping the older socket leaves the newer one untouched
	f.router.Disconnect(f.ctx, 1)
	clients, err = f.sessions.ClientsOf("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.ClientID{"CFG1"}, clients)
	_, err = f.registry.Client("CFG1")
	assert.NoError(t, err)
}

func TestBroadcastContinuesPastFailingSocket(t *testing.T) {
	f := newFixture(t)
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.authenticate(t, 2, "C2", "U1", "CFG2")
	f.connect(t, 3, "10.0.0.3", "C3")
	f.transport.Reset()
	f.transport.Fail(1)

	packet := model.NewPacket("system", "notice", nil)
	for _, kind := range []BroadcastType{BroadcastUsers, BroadcastClients, BroadcastSockets} {
		require.NoError(t, f.router.Broadcast(kind, packet))
	}

	assert.Len(t, f.transport.Writes(2), 3)
	assert.Len(t, f.transport.Writes(3), 2)
	assert.True(t, f.logs.Contains("write to socket failed"))
}

func TestRegisterHandlerValidation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.router.Register("auth", &recordingHandler{}), ErrReservedComponent)
	assert.ErrorIs(t, f.router.Register("", &recordingHandler{}), ErrReservedComponent)
	require.NoError(t, f.router.Register("profile", &recordingHandler{}))
	assert.ErrorIs(t, f.router.Register("profile", &recordingHandler{}), ErrDuplicateHandler)
}

func TestDisconnectHooks(t *testing.T) {
	f := newFixture(t)
	var events []DisconnectEvent
	f.router.OnDisconnect(func(_ context.Context, e DisconnectEvent) {
		events = append(events, e)
	})
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.connect(t, 2, "10.0.0.2", "C2")

	f.router.Disconnect(f.ctx, 1)
	f.router.Disconnect(f.ctx, 2)
	f.router.Disconnect(f.ctx, 2)

	assert.Equal(t, []DisconnectEvent{
		{Socket: 1, ClientID: "CFG1", UserID: "U1"},
		{Socket: 2, ClientID: "C2"},
	}, events)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.router.Register("profile", &recordingHandler{}))
	f.authenticate(t, 1, "C1", "U1", "CFG1")
	f.connect(t, 2, "10.0.0.2", "C2")
	require.NoError(t, f.router.Read(f.ctx, 2, loginMessage("bob", "C2")))

	assert.Equal(t, Stats{
		Sockets:       2,
		Clients:       2,
		Users:         1,
		PendingLogins: 1,
		Components:    1,
	}, f.router.Stats())
}

func TestParseBroadcastType(t *testing.T) {
	for _, s := range []string{"users", "clients", "socks"} {
		kind, err := ParseBroadcastType(s)
		require.NoError(t, err)
		assert.Equal(t, BroadcastType(s), kind)
	}
	_, err := ParseBroadcastType("sockets")
	assert.ErrorIs(t, err, ErrUnknownBroadcastType)
}
