package main

import (
	"os"
	"strconv"
	"time"
)

// AppConfig is built once from the environment at startup and read-only
// after.
type AppConfig struct {
	ServerAddr string
	AppHost    string
	Debug      bool

	DSN string

	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenExpiration int
	VerificationTTL time.Duration
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string

	MailHost       string
	MailUser       string
	MailPassword   string
	MailAddress    string
	MailSkipVerify bool

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
}

func LoadConfig() *AppConfig {
	return &AppConfig{
		ServerAddr: envString("SERVER_ADDR", ":8000"),
		AppHost:    envString("APP_HOST", "http://localhost:8000"),
		Debug:      envBool("DEBUG", false),

		DSN: envString("DB_DSN", "file:shop.db?cache=shared&_pragma=foreign_keys(1)"),

		SigningKey:      envString("AUTH_SECRET", ""),
		SigningMethod:   envString("AUTH_ALGORITHM", "HS256"),
		ContextKey:      envString("AUTH_CONTEXT_KEY", "user"),
		TokenExpiration: envInt("AUTH_TOKEN_EXPIRATION", 24),
		VerificationTTL: time.Duration(envInt("AUTH_VERIFICATION_TTL", 24)) * time.Hour,
		TokenLookup:     envString("AUTH_TOKEN_LOOKUP", "header:Authorization"),
		AuthScheme:      envString("AUTH_SCHEME", "Bearer"),
		Issuer:          envString("AUTH_ISSUER", "shop"),

		MailHost:       envString("MAIL_HOST", ""),
		MailUser:       envString("MAIL_USER", ""),
		MailPassword:   envString("MAIL_PASSWORD", ""),
		MailAddress:    envString("MAIL_ADDRESS", ""),
		MailSkipVerify: envBool("MAIL_SKIP_VERIFY", false),

		StorageEndpoint:  envString("STORAGE_ENDPOINT", ""),
		StorageAccessKey: envString("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: envString("STORAGE_SECRET_KEY", ""),
		StorageBucket:    envString("STORAGE_BUCKET", "shop-images"),
		StorageUseSSL:    envBool("STORAGE_USE_SSL", true),
	}
}

func (c *AppConfig) GetSigningKey() string             { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string          { return c.SigningMethod }
func (c *AppConfig) GetContextKey() string             { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int           { return c.TokenExpiration }
func (c *AppConfig) GetVerificationTTL() time.Duration { return c.VerificationTTL }
func (c *AppConfig) GetTokenLookup() string            { return c.TokenLookup }
func (c *AppConfig) GetAuthScheme() string             { return c.AuthScheme }
func (c *AppConfig) GetIssuer() string                 { return c.Issuer }
func (c *AppConfig) GetAudience() []string             { return c.Audience }
func (c *AppConfig) GetAppHost() string                { return c.AppHost }

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
