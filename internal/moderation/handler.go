package moderation

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"linkcamp/internal/auth"
	"linkcamp/internal/httpapi"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *mux.Router, a *auth.Authenticator) {
	r.Handle("/reports", a.Wrap(auth.Approved, h.ReportPost)).Methods(http.MethodPost)
	r.Handle("/comment-reports", a.Wrap(auth.Approved, h.ReportComment)).Methods(http.MethodPost)

	r.Handle("/admin/reported-posts", a.Wrap(auth.Admin, h.PostQueue)).Methods(http.MethodGet)
	r.Handle("/admin/reported-posts/{id}", a.Wrap(auth.Admin, h.PurgePost)).Methods(http.MethodDelete)
	r.Handle("/admin/reported-posts/{id}/dismiss", a.Wrap(auth.Admin, h.DismissPost)).Methods(http.MethodDelete)

	r.Handle("/admin/reported-comments", a.Wrap(auth.Admin, h.CommentQueue)).Methods(http.MethodGet)
	r.Handle("/admin/reported-comments/{id}", a.Wrap(auth.Admin, h.PurgeComment)).Methods(http.MethodDelete)
	r.Handle("/admin/reported-comments/{id}/dismiss", a.Wrap(auth.Admin, h.DismissComment)).Methods(http.MethodDelete)
}

func (h *Handler) ReportPost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, 1<<20)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.ReportPost(r.Context(), actor, fields.String("postId"), fields.String("reason")); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusCreated, "Post reported successfully")
}

func (h *Handler) ReportComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, 1<<20)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.ReportComment(r.Context(), actor, fields.String("commentId"), fields.String("reason")); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusCreated, "Comment reported successfully")
}

func queueQuery(r *http.Request, idParam string) QueueQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return QueueQuery{TargetID: q.Get(idParam), Page: page, Limit: limit}
}

func (h *Handler) PostQueue(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.PostQueue(r.Context(), queueQuery(r, "postId"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CommentQueue(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.CommentQueue(r.Context(), queueQuery(r, "commentId"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, out)
}

type dismissResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

func (h *Handler) DismissPost(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DismissPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dismissResponse{Message: "Reports dismissed successfully", DeletedCount: n})
}

func (h *Handler) PurgePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if err := h.svc.PurgePost(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Post and all related data deleted successfully")
}

func (h *Handler) DismissComment(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DismissComment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, dismissResponse{Message: "Comment reports dismissed", DeletedCount: n})
}

func (h *Handler) PurgeComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if err := h.svc.PurgeComment(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Comment and reports deleted")
}
