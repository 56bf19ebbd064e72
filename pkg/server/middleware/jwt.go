package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veripass/veripass/pkg/identity"
)

const bearerPrefix = "Bearer "

// AgentClaims are the JWT claims carried by an agent or kiosk token.
type AgentClaims struct {
	Name    string `json:"name,omitempty"`
	Role    string `json:"role"`
	Station string `json:"station,omitempty"`
	jwt.RegisteredClaims
}

// AgentAuthenticator is middleware that validates agent bearer tokens.
// Tokens are HS256 signed with a shared secret distributed to the check-in
// and gate deployments.
type AgentAuthenticator struct {
	secret []byte
}

// NewAgentAuthenticator creates a new agent token middleware.
func NewAgentAuthenticator(secret []byte) *AgentAuthenticator {
	return &AgentAuthenticator{secret: secret}
}

// IssueToken mints an agent token. Used by the CLI to provision kiosks and
// agent workstations.
func IssueToken(secret []byte, agentID, name, role, station string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := AgentClaims{
		Name:    name,
		Role:    role,
		Station: station,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Validate parses and validates a raw token string, returning the agent it
// identifies.
func (a *AgentAuthenticator) Validate(tokenString string) (*identity.Agent, error) {
	var claims AgentClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	agent := &identity.Agent{
		ID:      claims.Subject,
		Name:    claims.Name,
		Role:    claims.Role,
		Station: claims.Station,
	}
	if claims.IssuedAt != nil {
		agent.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		agent.ExpiresAt = claims.ExpiresAt.Time
	}
	return agent, nil
}

// Middleware returns an HTTP middleware that validates agent bearer tokens
// and places the resulting Agent in the request context.
func (a *AgentAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Authorization missing"))
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Malformed authorization header"))
			return
		}

		agent, err := a.Validate(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Invalid authorization token"))
			return
		}

		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			agent.WithRemoteIP(net.ParseIP(host))
		}

		r = r.WithContext(identity.Set(r.Context(), agent))
		next.ServeHTTP(w, r)
	})
}
