package config

// JWTConfig holds the token settings for the admin API and SSO endpoints.
type JWTConfig struct {
	Secret   string `env:"LDAP_SYNC_JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer   string `env:"LDAP_SYNC_JWT_ISSUER" env-default:"ldap-sync"`
	Audience string `env:"LDAP_SYNC_JWT_AUDIENCE" env-default:"ldap-sync"`
}

// SMTPConfig holds the mail server settings for failure notifications.
type SMTPConfig struct {
	Host     string `env:"LDAP_SYNC_SMTP_HOST"`
	Port     int    `env:"LDAP_SYNC_SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"LDAP_SYNC_SMTP_TLS" env-default:"true"`
	Username string `env:"LDAP_SYNC_SMTP_USERNAME"`
	Password string `env:"LDAP_SYNC_SMTP_PASSWORD"`
	From     string `env:"LDAP_SYNC_SMTP_FROM"`
	To       string `env:"LDAP_SYNC_SMTP_TO"`
}

// AuthConfig holds the SSO middleware settings.
type AuthConfig struct {
	Header     string `env:"LDAP_SYNC_SSO_HEADER" env-default:"Remote-User"`
	AutoImport bool   `env:"LDAP_SYNC_SSO_AUTO_IMPORT" env-default:"false"`
	Provider   string `env:"LDAP_SYNC_SSO_PROVIDER"`
}
