// Package audit provides audit logging for Veripass operations.
//
// This package implements structured audit logging for security-relevant
// operations across the credential lifecycle.
//
// # Event Types
//
// The package defines event types for various operations:
//
//   - Enrollment events (active / manual review / rejected)
//   - Check-in events (success/failure with reasons)
//   - Manual override events (always distinct from automated success)
//   - Boarding and cancellation events
//   - Right-to-erasure events
//
// # Usage
//
//	audit.Log(audit.BoardingEvent{
//	    SubjectHash: hash,
//	    PassID:      passID,
//	    Success:     true,
//	})
//
// Events are logged in RFC5424 syslog format and optionally persisted to a
// database configured via AUDIT_DATABASE_URL. Subject identifiers must be
// anonymized before they reach an event; raw biometric material never
// appears in audit output.
package audit
