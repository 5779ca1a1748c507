package vote

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
	r.Handle("/votes", a.Wrap(auth.Approved, h.CastVote)).Methods(http.MethodPost)
	r.Handle("/votes", a.Wrap(auth.Any, h.MyVotes)).Methods(http.MethodGet)
	r.Handle("/votes/{postId}", a.Wrap(auth.Any, h.PostCounts)).Methods(http.MethodGet)
	r.Handle("/voteCounts", a.Wrap(auth.Any, h.BulkCounts)).Methods(http.MethodGet)
}

func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, 1<<20)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Cast(r.Context(), actor, CastInput{
		PostID:         fields.String("postId"),
		VoteType:       fields.String("voteType"),
		OriginSocketID: fields.String("originSocketId"),
	})
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == OutcomeAdded {
		status = http.StatusCreated
	}
	httpapi.WriteMessage(w, status, res.Outcome.Message())
}

func (h *Handler) MyVotes(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	votes, err := h.svc.MyVotes(r.Context(), actor.Email, common.SplitIDs(r.URL.Query().Get("ids")))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, votes)
}

type postCountsResponse struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}

func (h *Handler) PostCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.CountsFor(r.Context(), mux.Vars(r)["postId"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, postCountsResponse{Upvotes: counts.Upvotes, Downvotes: counts.Downvotes})
}

func (h *Handler) BulkCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context(), common.SplitIDs(r.URL.Query().Get("ids")))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, counts)
}
