package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcamp/internal/auth"
	"linkcamp/internal/common"
)

type fakeAuthenticator struct {
	tokens map[string]common.Actor
}

func (f fakeAuthenticator) Authenticate(_ context.Context, token string, _ auth.Options) (common.Actor, error) {
	if token == "" {
		return common.Actor{}, common.NewAuthenticationError("No token provided")
	}
	actor, ok := f.tokens[token]
	if !ok {
		return common.Actor{}, common.NewAuthenticationError("Invalid or expired token")
	}
	return actor, nil
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, fakeAuthenticator{tokens: map[string]common.Actor{
		"good": {Email: "alice@campus.edu", Role: common.RoleMember, Verify: common.VerifyApproved},
	}}, []string{"*"}, 16)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + query
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	_, srv := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_RejectsBadToken(t *testing.T) {
	_, srv := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer nope")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_ConnectSubscribeAndReceive(t *testing.T) {
	hub, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello struct {
		Event string           `json:"event"`
		Data  ConnectedPayload `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, EventConnected, hello.Event)
	assert.NotEmpty(t, hello.Data.SocketID)
	assert.Equal(t, "alice@campus.edu", hello.Data.Email)

	// private room is joined on connect
	assert.Equal(t, 1, hub.RoomSize(UserRoom("alice@campus.edu")))

	require.NoError(t, conn.WriteJSON(map[string]string{"event": ClientFeedSubscribe, "data": "all"}))
	assert.Eventually(t, func() bool { return hub.RoomSize(RoomFeedAll) == 1 }, time.Second, 10*time.Millisecond)

	origin := hello.Data.SocketID
	hub.Broadcast(VoteEvent(common.PostTypeGeneral, "bob@campus.edu", VotePayload{
		PostID:         "p1",
		UserEmail:      "alice@campus.edu",
		OriginSocketID: &origin,
	}))

	var got struct {
		Event string      `json:"event"`
		Data  VotePayload `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventVoteChanged, got.Event)
	assert.Equal(t, "p1", got.Data.PostID)
	require.NotNil(t, got.Data.OriginSocketID)
	assert.Equal(t, origin, *got.Data.OriginSocketID)
}

func TestServeWS_DisconnectDropsMemberships(t *testing.T) {
	hub, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=good"), nil)
	require.NoError(t, err)
	var hello Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.NoError(t, conn.WriteJSON(map[string]string{"event": ClientPostJoin, "data": "p7"}))
	assert.Eventually(t, func() bool { return hub.RoomSize(ItemRoom("p7")) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.RoomSize(ItemRoom("p7")))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://campus.edu"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://campus.edu")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))
}
