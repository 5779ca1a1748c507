package user

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"linkcamp/internal/auth"
	"linkcamp/internal/common"
	"linkcamp/internal/dbmysql"
	"linkcamp/internal/httpapi"
)

// Handler serves the profile routes.
type Handler struct {
	svc      Service
	photos   common.PhotoUploader
	maxImage int64
}

func NewHandler(svc Service, photos common.PhotoUploader, maxImageBytes int64) *Handler {
	return &Handler{svc: svc, photos: photos, maxImage: maxImageBytes}
}

func (h *Handler) Register(r *mux.Router, a *auth.Authenticator) {
	r.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	r.Handle("/user/name", a.Wrap(auth.Any, h.UpdateName)).Methods(http.MethodPatch)
	r.Handle("/user/profile", a.Wrap(auth.Any, h.UpdateProfile)).Methods(http.MethodPatch)
	r.Handle("/user/upload-photo", a.Wrap(auth.Any, h.UploadPhoto)).Methods(http.MethodPost)
	r.Handle("/user/{email}", a.Wrap(auth.Any, h.GetUser)).Methods(http.MethodGet)

	r.Handle("/admin/users", a.Wrap(auth.Admin, h.ListUsers)).Methods(http.MethodGet)
	r.Handle("/admin/users/{id}", a.Wrap(auth.Admin, h.GetUserByID)).Methods(http.MethodGet)
	r.Handle("/admin/users/{id}", a.Wrap(auth.Admin, h.PatchUser)).Methods(http.MethodPatch)
}

type createUserResponse struct {
	Message string      `json:"message"`
	User    createdUser `json:"user"`
}

type createdUser struct {
	Email string `json:"email"`
	Photo string `json:"photo"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	fields, err := httpapi.BindFields(r, h.maxImage)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	email := common.NormalizeEmail(fields.String("email"))
	if err := common.ValidateEmail(email); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	photoURL, err := httpapi.StoreImage(r, "photo", h.maxImage, h.photos, email)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	profile, err := h.svc.Register(r.Context(), RegisterInput{
		Email:      email,
		Name:       fields.String("name"),
		Gender:     fields.String("gender"),
		UserType:   fields.String("userType"),
		UserCode:   fields.String("user_id"),
		Department: fields.String("department"),
		Session:    fields.String("session"),
		Photo:      photoURL,
	})
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, createUserResponse{
		Message: "User created successfully",
		User:    createdUser{Email: profile.Email, Photo: profile.Photo},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	fields, err := httpapi.BindFields(r, h.maxImage)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.Exists(r.Context(), fields.String("email")); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "User exists, proceed with login")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Get(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	fields, err := httpapi.BindFields(r, h.maxImage)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.UpdateName(r.Context(), actor, fields.String("name")); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "Name updated successfully")
}

type photoResponse struct {
	Message  string `json:"message"`
	PhotoURL string `json:"photoUrl"`
}

func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if err := httpapi.ParseForm(r, h.maxImage); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	photoURL, err := httpapi.StoreImage(r, "photo", h.maxImage, h.photos, actor.Email)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.UpdatePhoto(r.Context(), actor, photoURL); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, photoResponse{Message: "Photo uploaded successfully", PhotoURL: photoURL})
}

type profileResponse struct {
	Message string           `json:"message"`
	User    *dbmysql.Profile `json:"user"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
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

	upd := ProfileUpdate{
		Name:       fields.Ptr("name"),
		Gender:     fields.Ptr("gender"),
		UserType:   fields.Ptr("userType"),
		UserCode:   fields.Ptr("user_id"),
		Department: fields.Ptr("department"),
		Session:    fields.Ptr("session"),
		Verify:     fields.Ptr("verify"),
	}
	if photoURL != "" {
		upd.Photo = &photoURL
	}

	profile, err := h.svc.UpdateProfile(r.Context(), actor, upd)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, profileResponse{Message: "Profile updated", User: profile})
}

type listResponse struct {
	Items []dbmysql.Profile `json:"items"`
	Total int64             `json:"total"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Verify: common.VerifyState(q.Get("verify")),
		Page:   atoiDefault(q.Get("page"), 1),
		Limit:  atoiDefault(q.Get("limit"), 20),
		Desc:   strings.EqualFold(q.Get("sort"), "name_desc"),
	}
	if role := q.Get("role"); role != "" {
		parsed, ok := common.ParseRole(role)
		if !ok {
			httpapi.WriteError(w, r, common.NewValidationError("Invalid role"))
			return
		}
		filter.Role = parsed
	}

	items, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []dbmysql.Profile{}
	}
	httpapi.WriteJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	profile, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) PatchUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(mux.Vars(r)["id"])
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	fields, err := httpapi.BindFields(r, h.maxImage)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	if err := h.svc.SetVerify(r.Context(), id, fields.String("verify"), fields.Ptr("userType")); err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "User status updated successfully")
}


func parseUserID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, common.NewValidationError("Invalid user ID")
	}
	return id, nil
}

func atoiDefault(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
