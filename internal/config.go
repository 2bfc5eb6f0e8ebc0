package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/folio/internal/session"
)

// Config represents the application configuration.
type Config struct {
	App           ApplicationConfig  `yaml:"app"`
	ContentAPI    ContentAPIConfig   `yaml:"content_api"`
	Auth          AuthConfig         `yaml:"auth"`
	Messages      MessagesConfig     `yaml:"messages"`
	Notifications NotificationConfig `yaml:"notifications"`
	Activity      ActivityConfig     `yaml:"activity"`
	CORS          CORSConfig         `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.ContentAPI.Validate(); err != nil {
		return fmt.Errorf("content_api: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Messages.Validate(); err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	if err := c.Notifications.Validate(); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	if err := c.Activity.Validate(); err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	return c.CORS.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentAPIConfig points at the remote content store.
type ContentAPIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	KeyHeader string        `yaml:"key_header"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the content API configuration.
func (c *ContentAPIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds session configuration.
//
// Mode controls how sessions are resolved:
//   - "disabled" (default): every request is the local operator, suitable for local dev.
//   - "token": a shared bearer token; Token must be non-empty.
//   - "jwt": HS256 session tokens from the identity provider; JWTSecret must be non-empty.
type AuthConfig struct {
	Mode       string `yaml:"mode"`
	Token      string `yaml:"token"`
	JWTSecret  string `yaml:"jwt_secret"`
	JWTIssuer  string `yaml:"jwt_issuer"`
	CookieName string `yaml:"cookie_name"`
	SignInURL  string `yaml:"sign_in_url"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = session.ModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(session.ModeDisabled, session.ModeToken, session.ModeJWT)),
		validation.Field(&c.SignInURL, is.URL),
	); err != nil {
		return err
	}
	if c.Mode == session.ModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", session.ModeToken)
	}
	if c.Mode == session.ModeJWT && c.JWTSecret == "" {
		return fmt.Errorf("auth: mode is %q but jwt_secret is empty", session.ModeJWT)
	}
	return nil
}

// Session converts the section into gate settings.
func (c *AuthConfig) Session() session.Config {
	return session.Config{
		Mode:       c.Mode,
		Token:      c.Token,
		JWTSecret:  c.JWTSecret,
		JWTIssuer:  c.JWTIssuer,
		CookieName: c.CookieName,
		SignInURL:  c.SignInURL,
	}
}

// MessagesConfig holds inbox settings.
type MessagesConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the messages configuration.
func (c *MessagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Second)),
	)
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the notification configuration.
func (c *NotificationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}

// ActivityConfig holds the SQLite activity log location.
type ActivityConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the activity configuration.
func (c *ActivityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CORSConfig lists the origins allowed to call the API from a browser.
// Empty disables CORS handling.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		ContentAPI: ContentAPIConfig{
			BaseURL:   "http://localhost:5000/api",
			KeyHeader: "x-api-key",
			Timeout:   10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: session.ModeDisabled,
		},
		Messages: MessagesConfig{
			PollInterval: 30 * time.Second,
		},
		Notifications: NotificationConfig{
			TTL: 8 * time.Second,
		},
		Activity: ActivityConfig{
			Path: "./folio.db",
		},
	}
}
