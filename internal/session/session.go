// Package session decides whether a request comes from a signed-in operator.
//
// The authentication flow itself is owned by an external identity provider;
// this package only checks the session token it issues.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Auth modes.
const (
	ModeDisabled = "disabled"
	ModeToken    = "token"
	ModeJWT      = "jwt"
)

// DefaultCookieName holds the session token when no Authorization header is sent.
const DefaultCookieName = "folio_session"

// LocalOperator is the identity used when authentication is disabled.
const LocalOperator = "local"

// TokenOperator is the identity of requests carrying the static token.
const TokenOperator = "admin"

// Status is the sign-in state of a request.
type Status string

const (
	SignedOut Status = "signed_out"
	// Pending means the provider is still establishing the session.
	Pending  Status = "pending"
	SignedIn Status = "signed_in"
)

// State is the resolved session of one request.
type State struct {
	Status   Status `json:"status"`
	Operator string `json:"operator,omitempty"`
}

// SignedIn reports whether the request may use the dashboard.
func (s State) SignedIn() bool {
	return s.Status == SignedIn
}

// Config selects and parameterises the verification mode.
type Config struct {
	Mode       string
	Token      string
	JWTSecret  string
	JWTIssuer  string
	CookieName string
	SignInURL  string
}

// Claims are the session token claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Gate resolves requests to a session state.
type Gate struct {
	cfg Config
}

// NewGate validates cfg and creates a gate.
func NewGate(cfg Config) (*Gate, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeDisabled
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	switch cfg.Mode {
	case ModeDisabled:
	case ModeToken:
		if cfg.Token == "" {
			return nil, errors.New("session: token mode requires a token")
		}
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, errors.New("session: jwt mode requires a secret")
		}
	default:
		return nil, fmt.Errorf("session: unknown mode %q", cfg.Mode)
	}
	return &Gate{cfg: cfg}, nil
}

// Mode returns the configured mode.
func (g *Gate) Mode() string {
	return g.cfg.Mode
}

// SignInURL is where signed-out operators are sent, empty if not configured.
func (g *Gate) SignInURL() string {
	return g.cfg.SignInURL
}

// CookieName is the cookie read when no bearer token is sent.
func (g *Gate) CookieName() string {
	return g.cfg.CookieName
}

// Resolve inspects the request credentials.
func (g *Gate) Resolve(r *http.Request) State {
	switch g.cfg.Mode {
	case ModeDisabled:
		return State{Status: SignedIn, Operator: LocalOperator}
	case ModeToken:
		tok := g.credential(r)
		if tok != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(g.cfg.Token)) == 1 {
			return State{Status: SignedIn, Operator: TokenOperator}
		}
		return State{Status: SignedOut}
	default:
		return g.verifyJWT(g.credential(r))
	}
}

func (g *Gate) verifyJWT(raw string) State {
	if raw == "" {
		return State{Status: SignedOut}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if g.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(g.cfg.JWTIssuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(g.cfg.JWTSecret), nil
	}, opts...)
	if errors.Is(err, jwt.ErrTokenNotValidYet) {
		return State{Status: Pending}
	}
	if err != nil || !token.Valid {
		return State{Status: SignedOut}
	}

	op := claims.Subject
	if op == "" {
		op = claims.Email
	}
	if op == "" {
		return State{Status: SignedOut}
	}
	return State{Status: SignedIn, Operator: op}
}

// credential returns the bearer token, falling back to the session cookie.
func (g *Gate) credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(g.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

// Middleware resolves every request and stores the state in its context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), g.Resolve(r))))
	})
}

// NewContext returns ctx carrying st.
func NewContext(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the state stored by Middleware. Requests that did not
// pass through the gate are signed out.
func FromContext(ctx context.Context) State {
	st, ok := ctx.Value(ctxKey{}).(State)
	if !ok {
		return State{Status: SignedOut}
	}
	return st
}
