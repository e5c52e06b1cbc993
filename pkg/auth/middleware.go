package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/importer"
	"github.com/tendant/ldap-sync/pkg/users"
)

// DefaultHeader is the web-server header carrying the externally
// authenticated account name.
const DefaultHeader = "Remote-User"

type contextKey string

const userContextKey contextKey = "auth.user"

// Account is a parsed external account name.
type Account struct {
	Domain   string
	Username string
}

// SplitAccountName parses the header value forms a front-end web server
// produces: down-level "DOMAIN\user", UPN "user@domain", or a bare username.
func SplitAccountName(value string) Account {
	if i := strings.IndexByte(value, '\\'); i >= 0 {
		return Account{Domain: value[:i], Username: value[i+1:]}
	}
	if i := strings.IndexByte(value, '@'); i >= 0 {
		return Account{Domain: value[i+1:], Username: value[:i]}
	}
	return Account{Username: value}
}

// Config controls the SSO middleware.
type Config struct {
	// Header read for the account name (default DefaultHeader)
	Header string

	// AutoImport imports unknown users from the directory on first sight.
	// Requires an importer.
	AutoImport bool
}

// Middleware authenticates requests from a trusting front-end web server.
// The server terminates the actual authentication (Kerberos, client cert,
// whatever) and forwards the account name in a header; the middleware
// resolves it to a local user record.
type Middleware struct {
	repo     users.UserRepository
	importer *importer.Service
	config   Config
}

// NewMiddleware creates the SSO middleware. importerService may be nil when
// Config.AutoImport is off.
func NewMiddleware(repo users.UserRepository, importerService *importer.Service, config Config) *Middleware {
	if config.Header == "" {
		config.Header = DefaultHeader
	}
	return &Middleware{
		repo:     repo,
		importer: importerService,
		config:   config,
	}
}

// Handler resolves the SSO header to a local user and stores it in the
// request context. Requests without the header pass through anonymously;
// unknown or soft-deleted users are rejected.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value := r.Header.Get(m.config.Header)
		if value == "" {
			next.ServeHTTP(w, r)
			return
		}

		account := SplitAccountName(value)
		if account.Username == "" {
			slog.Warn("malformed SSO header value", "header", m.config.Header)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := m.lookup(r.Context(), account)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) || errors.Is(err, directory.ErrObjectNotFound) {
				slog.Warn("SSO header names unknown user", "username", account.Username)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			slog.Error("failed to resolve SSO user", "username", account.Username, "err", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if user.IsDeleted() {
			slog.Warn("SSO header names deactivated user", "username", account.Username, "userId", user.ID)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) lookup(ctx context.Context, account Account) (users.User, error) {
	user, err := m.repo.FindByUsername(ctx, account.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return users.User{}, err
	}

	if !m.config.AutoImport || m.importer == nil {
		return users.User{}, err
	}

	slog.Info("importing user on first sight", "username", account.Username)
	return m.importer.ImportOne(ctx, account.Username)
}

// UserFromContext returns the authenticated user stored by Handler.
func UserFromContext(ctx context.Context) (users.User, bool) {
	user, ok := ctx.Value(userContextKey).(users.User)
	return user, ok
}

// RequireUser rejects requests that did not authenticate through Handler.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			slog.Debug("unauthenticated request to protected resource", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
