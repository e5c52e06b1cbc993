package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/ldap-sync/pkg/auth"
	"github.com/tendant/ldap-sync/pkg/config"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/events"
	"github.com/tendant/ldap-sync/pkg/importer"
	"github.com/tendant/ldap-sync/pkg/syncapi"
	"github.com/tendant/ldap-sync/pkg/users"
)

type serverConfig struct {
	AppConfig  app.AppConfig
	DbConfig   config.DatabaseConfig
	JwtConfig  config.JWTConfig
	AuthConfig config.AuthConfig
}

func main() {
	godotenv.Load()

	cfg := serverConfig{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	dbConfig := cfg.DbConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	repo, err := users.NewPostgresUserRepository(pool)
	if err != nil {
		slog.Error("Failed creating user repository", "err", err)
		os.Exit(-1)
	}

	providers := config.LoadProviders()

	factory := func(name string, opts importer.Options) (*importer.Service, error) {
		provider, err := providers.Get(name)
		if err != nil {
			return nil, err
		}
		dir, err := directory.Open(provider.LDAP.ToDirectoryConfig())
		if err != nil {
			return nil, err
		}
		return importer.NewService(dir, repo, opts, events.NewSlogSink(slog.Default())), nil
	}

	// SSO middleware; auto-import needs a configured provider to pull
	// unknown users from.
	var ssoImporter *importer.Service
	if cfg.AuthConfig.AutoImport && cfg.AuthConfig.Provider != "" {
		provider, err := providers.Get(cfg.AuthConfig.Provider)
		if err != nil {
			slog.Error("SSO auto-import provider is not usable", "provider", cfg.AuthConfig.Provider, "err", err)
			os.Exit(-1)
		}
		dir, err := directory.Open(provider.LDAP.ToDirectoryConfig())
		if err != nil {
			slog.Error("Failed connecting to directory", "provider", provider.Name, "err", err)
			os.Exit(-1)
		}
		ssoImporter = importer.NewService(dir, repo, provider.Sync.ToOptions(provider.Name), events.NewSlogSink(slog.Default()))
	}

	sso := auth.NewMiddleware(repo, ssoImporter, auth.Config{
		Header:     cfg.AuthConfig.Header,
		AutoImport: cfg.AuthConfig.AutoImport,
	})
	server.R.Use(sso.Handler)

	tokenService := auth.NewTokenService(cfg.JwtConfig.Secret, cfg.JwtConfig.Issuer, cfg.JwtConfig.Audience)
	auth.NewHandle(tokenService).RegisterRoutes(server.R)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.Secret), nil)
	server.R.Mount("/admin", syncapi.NewHandle(repo, factory).Routes(tokenAuth))

	server.Run()
}
