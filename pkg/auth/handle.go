package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
)

// Handle serves the SSO session endpoints. Both routes sit behind the SSO
// middleware and RequireUser.
type Handle struct {
	tokenService *TokenService
}

func NewHandle(tokenService *TokenService) Handle {
	return Handle{tokenService: tokenService}
}

// RegisterRoutes mounts the SSO routes on the given router.
func (h Handle) RegisterRoutes(r chi.Router) {
	r.Route("/sso", func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/whoami", h.Whoami)
		r.Post("/token", h.Token)
	})
}

type WhoamiResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Domain      string `json:"domain,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Whoami returns the authenticated user.
// (GET /sso/whoami)
func (h Handle) Whoami(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var response WhoamiResponse
	if err := copier.Copy(&response, &user); err != nil {
		slog.Error("failed to map user response", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	response.ID = user.ID.String()

	render.JSON(w, r, response)
}

// Token issues a short-lived JWT for the authenticated user.
// (POST /sso/token)
func (h Handle) Token(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	token, expiresAt, err := h.tokenService.IssueToken(user)
	if err != nil {
		slog.Error("failed to issue token", "userId", user.ID, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	})
}
