package feed

import (
	"net/http"

	"github.com/gorilla/mux"

	"linkcamp/internal/auth"
	"linkcamp/internal/common"
	"linkcamp/internal/config"
	"linkcamp/internal/httpapi"
)

type Handler struct {
	svc      Service
	photos   common.PhotoUploader
	feedCfg  config.FeedConfig
	maxImage int64
}

func NewHandler(svc Service, photos common.PhotoUploader, feedCfg config.FeedConfig, maxImageBytes int64) *Handler {
	return &Handler{svc: svc, photos: photos, feedCfg: feedCfg, maxImage: maxImageBytes}
}

func (h *Handler) Register(r *mux.Router, a *auth.Authenticator) {
	teacher := auth.Options{Roles: []common.Role{common.RoleTeacher}, RequireApproved: true}
	admin := auth.Options{Roles: []common.Role{common.RoleAdmin}, RequireApproved: true}

	r.Handle("/posts", a.Wrap(auth.Any, h.ListPosts)).Methods(http.MethodGet)
	r.Handle("/posts/{id}", a.Wrap(auth.Any, h.GetPost)).Methods(http.MethodGet)
	r.Handle("/posts/{id}", a.Wrap(auth.Approved, h.UpdatePost)).Methods(http.MethodPatch)
	r.Handle("/posts/{id}", a.Wrap(auth.Approved, h.DeletePost)).Methods(http.MethodDelete)

	r.Handle("/user/post", a.Wrap(auth.Approved, h.create(common.PostTypeGeneral, "Post Created Successfully"))).Methods(http.MethodPost)
	r.Handle("/teacher/announcement", a.Wrap(teacher, h.create(common.PostTypeTeacher, "announcement Created Successfully"))).Methods(http.MethodPost)
	r.Handle("/admin/notice", a.Wrap(admin, h.create(common.PostTypeAdmin, "notice Created Successfully"))).Methods(http.MethodPost)

	r.Handle("/teacher/announcements", a.Wrap(auth.Any, h.listFeed(common.PostTypeTeacher))).Methods(http.MethodGet)
	r.Handle("/admin/notices", a.Wrap(auth.Any, h.listFeed(common.PostTypeAdmin))).Methods(http.MethodGet)

	r.Handle("/user/profile/{email}", a.Wrap(auth.Any, h.UserActivity)).Methods(http.MethodGet)
	r.Handle("/repostCounts", a.Wrap(auth.Any, h.RepostCounts)).Methods(http.MethodGet)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	h.listFeed(common.ParseFeedFilter(r.URL.Query().Get("type")))(w, r)
}

func (h *Handler) listFeed(feed common.PostType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := ParsePageRequest(r.URL.Query(), h.feedCfg)
		result, err := h.svc.List(r.Context(), feed, page)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		writePage(w, page, result)
	}
}

func (h *Handler) UserActivity(w http.ResponseWriter, r *http.Request) {
	page := ParsePageRequest(r.URL.Query(), h.feedCfg)
	result, err := h.svc.UserActivity(r.Context(), mux.Vars(r)["email"], page)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	writePage(w, page, result)
}

// writePage answers {items, nextCursor} for paginated requests and a bare array otherwise.
func writePage(w http.ResponseWriter, req PageRequest, page Page) {
	if page.Items == nil {
		page.Items = []Item{}
	}
	if req.Paginated {
		httpapi.WriteJSON(w, http.StatusOK, page)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, page.Items)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, item)
}

type createResponse struct {
	Message string `json:"message"`
	PostID  string `json:"postId"`
}

func (h *Handler) create(partition common.PostType, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := auth.ActorFrom(r.Context())
		fields, err := httpapi.BindFields(r, h.maxImage)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		photoURL, err := httpapi.StoreImage(r, "photo", h.maxImage, h.photos, actor.Email)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}

		in := CreateInput{
			Partition: partition,
			Content:   fields.String("content"),
			Photo:     photoURL,
		}
		if partition == common.PostTypeGeneral {
			in.PostType = fields.String("postType")
			in.RepostOf = fields.String("repostOf")
		}

		item, err := h.svc.Create(r.Context(), actor, in)
		if err != nil {
			httpapi.WriteError(w, r, err)
			return
		}
		httpapi.WriteJSON(w, http.StatusCreated, createResponse{Message: message, PostID: item.ID.Hex()})
	}
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, h.maxImage)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	photoURL, err := httpapi.StoreImage(r, "photo", h.maxImage, h.photos, actor.Email)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	in := UpdateInput{
		Content:     fields.Ptr("content"),
		RemovePhoto: fields.Bool("removePhoto"),
		Photo:       photoURL,
	}
	if err := h.svc.Update(r.Context(), actor, mux.Vars(r)["id"], in); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Post updated successfully")
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if err := h.svc.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Post, votes, and comments deleted successfully")
}

func (h *Handler) RepostCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.RepostCounts(r.Context(), common.SplitIDs(r.URL.Query().Get("ids")))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, counts)
}
