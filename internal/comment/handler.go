package comment

import (
	"net/http"

	"github.com/gorilla/mux"

	"linkcamp/internal/auth"
	"linkcamp/internal/common"
	"linkcamp/internal/httpapi"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *mux.Router, a *auth.Authenticator) {
	r.Handle("/comments", a.Wrap(auth.Approved, h.AddComment)).Methods(http.MethodPost)
	r.Handle("/comments/{postId}", a.Wrap(auth.Any, h.ListComments)).Methods(http.MethodGet)
	r.Handle("/comments/{id}", a.Wrap(auth.Approved, h.EditComment)).Methods(http.MethodPatch)
	r.Handle("/comments/{id}", a.Wrap(auth.Approved, h.DeleteComment)).Methods(http.MethodDelete)
	r.Handle("/commentCounts", a.Wrap(auth.Any, h.Counts)).Methods(http.MethodGet)
}

type addResponse struct {
	Message   string `json:"message"`
	CommentID string `json:"commentId"`
	Comment   *View  `json:"comment"`
}

type editResponse struct {
	Message string `json:"message"`
	Comment *View  `json:"comment"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, 1<<20)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	view, err := h.svc.Add(r.Context(), actor, fields.String("postId"), fields.String("content"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, addResponse{
		Message:   "Comment added successfully",
		CommentID: view.ID.Hex(),
		Comment:   view,
	})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, 1<<20)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	view, err := h.svc.Edit(r.Context(), actor, mux.Vars(r)["id"], fields.String("content"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, editResponse{Message: "Comment updated successfully", Comment: view})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if err := h.svc.Remove(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Comment deleted successfully")
}

func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context(), common.SplitIDs(r.URL.Query().Get("ids")))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, counts)
}
