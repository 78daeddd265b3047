// Package config loads and validates application configuration from
// environment variables. Required variables, default values, and parsing
// failures are all collected and reported together, so a misconfigured
// deployment fails fast with a single complete message instead of dying on
// the first missing key.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MongoConfig holds document-database connection settings.
type MongoConfig struct {
	URI    string
	DBName string
}

// AuthConfig holds token-service settings. Access and refresh tokens are
// signed with distinct secrets.
type AuthConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessDuration  time.Duration // access token lifetime
	RefreshDuration time.Duration // refresh token lifetime
	CodeDuration    time.Duration // verification code lifetime
	SecureCookies   bool          // set the Secure attribute on the refresh cookie
}

// MailConfig holds SMTP settings for outbound verification emails.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// OAuthConfig holds GitHub OAuth application credentials.
type OAuthConfig struct {
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string
}

// CatalogConfig holds settings for the third-party catalog API sync.
type CatalogConfig struct {
	BaseURL   string
	SyncLimit int  // how many entries the background sync pages through
	SyncOnly  bool // run one sync pass and exit (maintenance mode)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// AppConfig is the top-level configuration structure.
type AppConfig struct {
	Mongo   *MongoConfig
	Auth    *AuthConfig
	Mail    *MailConfig
	OAuth   *OAuthConfig
	Catalog *CatalogConfig
	Server  *ServerConfig
}

func getRequiredEnv(key string, errs *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

func getOptionalEnvBool(key string, defaultValue bool, errs *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// LoadConfig reads and validates every configuration section. It returns a
// single aggregated error listing everything that was missing or malformed.
func LoadConfig() (*AppConfig, error) {
	var errs []string

	mongo := &MongoConfig{
		URI:    getOptionalEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName: getOptionalEnv("MONGO_DB", "pokesphere"),
	}

	auth := &AuthConfig{
		AccessSecret:    getRequiredEnv("JWT_ACCESS_SECRET", &errs),
		RefreshSecret:   getRequiredEnv("JWT_REFRESH_SECRET", &errs),
		AccessDuration:  getOptionalEnvDuration("JWT_ACCESS_DURATION", time.Hour, &errs),
		RefreshDuration: getOptionalEnvDuration("JWT_REFRESH_DURATION", 7*24*time.Hour, &errs),
		CodeDuration:    getOptionalEnvDuration("VERIFICATION_CODE_DURATION", 10*time.Minute, &errs),
		SecureCookies:   getOptionalEnvBool("SECURE_COOKIES", false, &errs),
	}
	if auth.AccessSecret != "" && auth.AccessSecret == auth.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	mail := &MailConfig{
		Host:     getOptionalEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     getOptionalEnvInt("SMTP_PORT", 465, &errs),
		Username: getRequiredEnv("EMAIL", &errs),
		Password: getRequiredEnv("EMAIL_PASSWORD", &errs),
		From:     getOptionalEnv("EMAIL_FROM", ""),
	}
	if mail.From == "" {
		mail.From = mail.Username
	}

	oauth := &OAuthConfig{
		GitHubClientID:     getRequiredEnv("GITHUB_CLIENT_ID", &errs),
		GitHubClientSecret: getRequiredEnv("GITHUB_CLIENT_SECRET", &errs),
		GitHubRedirectURL:  getOptionalEnv("GITHUB_REDIRECT_URL", ""),
	}

	catalog := &CatalogConfig{
		BaseURL:   getOptionalEnv("POKEAPI_BASE_URL", "https://pokeapi.co/api/v2"),
		SyncLimit: getOptionalEnvInt("CATALOG_SYNC_LIMIT", 1025, &errs),
		SyncOnly:  getOptionalEnvBool("CATALOG_SYNC_ONLY", false, &errs),
	}

	server := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return &AppConfig{
		Mongo:   mongo,
		Auth:    auth,
		Mail:    mail,
		OAuth:   oauth,
		Catalog: catalog,
		Server:  server,
	}, nil
}
