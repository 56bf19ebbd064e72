package identity

import (
	"context"
	"net"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Agent.
	Key ContextKey = "agent"
)

// Agent roles. Kiosks run enrollments unattended; agents staff check-in
// desks and gates; supervisors additionally approve manual overrides and
// erasure requests.
const (
	RoleKiosk      = "kiosk"
	RoleAgent      = "agent"
	RoleSupervisor = "supervisor"
)

// Agent represents the authenticated staff identity or kiosk for a request.
// It combines token claims with request-specific context.
type Agent struct {
	// Token claims
	ID        string
	Name      string
	Role      string
	Station   string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// WithRemoteIP sets the remote IP address.
func (a *Agent) WithRemoteIP(ip net.IP) *Agent {
	a.RemoteIP = ip
	return a
}

// CanOverride reports whether the agent may approve a manual check-in
// override. Kiosks never can.
func (a *Agent) CanOverride() bool {
	return a.Role == RoleAgent || a.Role == RoleSupervisor
}

// CanErase reports whether the agent may action a data erasure request.
func (a *Agent) CanErase() bool {
	return a.Role == RoleSupervisor
}

// Get retrieves the Agent from context.
func Get(ctx context.Context) (*Agent, bool) {
	agent, ok := ctx.Value(Key).(*Agent)
	return agent, ok
}

// Set stores the Agent in context.
func Set(ctx context.Context, agent *Agent) context.Context {
	return context.WithValue(ctx, Key, agent)
}
