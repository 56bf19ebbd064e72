// Package identity provides authenticated agent identity for API requests.
//
// This package separates the concept of an authenticated agent from the raw
// token parsing. An Agent combines token claims (id, name, role, station)
// with request-specific context (remote IP).
//
// # Basic Usage
//
//	// Build the agent from validated token claims
//	agent := &identity.Agent{ID: claims.Subject, Role: role}
//
//	// Add request context
//	agent.WithRemoteIP(clientIP)
//
//	// Store in request context
//	ctx = identity.Set(ctx, agent)
//
//	// Retrieve from context
//	agent, ok := identity.Get(ctx)
//
// # Roles
//
// Three roles exist: kiosk (unattended enrollment stations), agent (check-in
// desks and gates), and supervisor (additionally approves manual overrides
// and erasure requests). Role checks live on the Agent so handlers never
// compare role strings directly.
package identity
