package realtime

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"linkcamp/internal/auth"
	"linkcamp/internal/common"
	"linkcamp/internal/httpapi"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string, opts auth.Options) (common.Actor, error)
}

type ConnectedPayload struct {
	SocketID string `json:"socketId"`
	Email    string `json:"email"`
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub          *Hub
	auth         Authenticator
	upgrader     websocket.Upgrader
	clientBuffer int
}

func NewHandler(hub *Hub, authenticator Authenticator, allowedOrigins []string, clientBuffer int) *Handler {
	h := &Handler{hub: hub, auth: authenticator, clientBuffer: clientBuffer}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimRight(a, "/"), u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

func tokenFromHandshake(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return auth.TokenFromRequest(r)
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := httpapi.LoggerFrom(r.Context())

	actor, err := h.auth.Authenticate(r.Context(), tokenFromHandshake(r), auth.Any)
	if err != nil {
		log.Info("websocket handshake rejected", "error", err)
		if common.KindOf(err) == common.KindStorage {
			httpapi.WriteError(w, r, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusUnauthorized, httpapi.ErrorResponse{
			Message: "Unauthorized",
			Code:    common.CodeUnauthorized,
		})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the response
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(uuid.NewString(), actor.Email, h.hub, conn, h.clientBuffer)
	h.hub.register(client)
	h.hub.Join(client, UserRoom(actor.Email))
	log.Info("websocket connected", "conn_id", client.id, "email", actor.Email)

	go client.writePump()
	h.hub.SendTo(client, EventConnected, ConnectedPayload{SocketID: client.id, Email: actor.Email})
	go client.readPump()
}
