package syncapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/ldap-sync/pkg/importer"
	"github.com/tendant/ldap-sync/pkg/users"
)

// ServiceFactory builds an import service for request-supplied options. The
// config package provides one per named provider.
type ServiceFactory func(provider string, opts importer.Options) (*importer.Service, error)

// Handle serves the admin synchronization endpoints.
type Handle struct {
	repo    users.UserRepository
	factory ServiceFactory
}

func NewHandle(repo users.UserRepository, factory ServiceFactory) Handle {
	return Handle{repo: repo, factory: factory}
}

// Routes returns the admin router protected by the given token auth.
func (h Handle) Routes(tokenAuth *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokenAuth))
	r.Use(jwtauth.Authenticator(tokenAuth))
	r.Post("/import", h.Import)
	r.Get("/users", h.ListUsers)
	return r
}

type ImportRequest struct {
	Provider           string            `json:"provider"`
	User               string            `json:"user,omitempty"`
	Filter             string            `json:"filter,omitempty"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	SyncExisting       bool              `json:"sync_existing,omitempty"`
	SoftDeleteDisabled bool              `json:"soft_delete_disabled,omitempty"`
	RestoreEnabled     bool              `json:"restore_enabled,omitempty"`
	DeleteMissing      bool              `json:"delete_missing,omitempty"`
}

type FailureResponse struct {
	DN         string `json:"dn,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Error      string `json:"error"`
}

type ImportResponse struct {
	Candidates     int               `json:"candidates"`
	Created        int               `json:"created"`
	Updated        int               `json:"updated"`
	Restored       int               `json:"restored"`
	SoftDeleted    int               `json:"soft_deleted"`
	DeletedMissing int               `json:"deleted_missing"`
	Failures       []FailureResponse `json:"failures,omitempty"`
	User           *UserResponse     `json:"user,omitempty"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	ObjectGUID  string     `json:"object_guid,omitempty"`
	Username    string     `json:"username"`
	Domain      string     `json:"domain,omitempty"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Import triggers a synchronization run. A request naming a single user
// imports just that user and returns the record; otherwise the whole
// provider is synchronized and the run counts are returned.
// (POST /import)
func (h Handle) Import(w http.ResponseWriter, r *http.Request) {
	var request ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var opts importer.Options
	if err := copier.Copy(&opts, &request); err != nil {
		slog.Error("failed to map import options", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	opts.Provider = request.Provider

	svc, err := h.factory(request.Provider, opts)
	if err != nil {
		var configErr *importer.ConfigurationError
		if errors.As(err, &configErr) {
			slog.Warn("import request for unconfigured provider", "provider", request.Provider)
			http.Error(w, configErr.Error(), http.StatusUnprocessableEntity)
			return
		}
		slog.Error("failed to build import service", "provider", request.Provider, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if request.User != "" {
		imported, err := svc.ImportOne(r.Context(), request.User)
		if err != nil {
			if errors.Is(err, importer.ErrDeleteMissingSingleUser) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			slog.Error("single-user import failed", "provider", request.Provider, "user", request.User, "err", err)
			http.Error(w, "import failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		user := toUserResponse(imported)
		render.JSON(w, r, ImportResponse{Candidates: 1, User: &user})
		return
	}

	result, err := svc.ImportAll(r.Context())
	if err != nil {
		slog.Error("import run failed", "provider", request.Provider, "err", err)
		http.Error(w, "import failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	render.JSON(w, r, toImportResponse(result))
}

// ListUsers returns every local record, soft-deleted ones included.
// (GET /users)
func (h Handle) ListUsers(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.FindAll(r.Context())
	if err != nil {
		slog.Error("failed to list users", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := make([]UserResponse, 0, len(all))
	for _, user := range all {
		response = append(response, toUserResponse(user))
	}

	render.JSON(w, r, response)
}

func toUserResponse(user users.User) UserResponse {
	response := UserResponse{
		ID:          user.ID.String(),
		Username:    user.Username,
		Domain:      user.Domain,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		DeletedAt:   user.DeletedAt,
	}
	if user.ObjectGUID != uuid.Nil {
		response.ObjectGUID = user.ObjectGUID.String()
	}
	return response
}

func toImportResponse(result *importer.Result) ImportResponse {
	response := ImportResponse{
		Candidates:     result.Candidates,
		Created:        result.Created,
		Updated:        result.Updated,
		Restored:       result.Restored,
		SoftDeleted:    result.SoftDeleted,
		DeletedMissing: len(result.DeletedMissing),
	}
	for _, failure := range result.Failures {
		response.Failures = append(response.Failures, FailureResponse{
			DN:         failure.DN,
			Identifier: failure.Identifier,
			Error:      failure.Err.Error(),
		})
	}
	return response
}
