// Package model defines the database models for Veripass.
//
// This package contains GORM models that map to the credential lifecycle
// schema in PostgreSQL.
//
// # Core Models
//
//   - Enrollment: a traveler's one-time identity capture, carrying the
//     encrypted biometric template and the scores it was admitted with
//   - BoardingPass: one consumable boarding authorization per reservation
//   - CheckInLog: append-only record of every check-in attempt
//
// # Database Schema
//
// The database uses PostgreSQL with the following key tables:
//
//   - enrollments: identity captures, encrypted templates, score blocks
//   - boarding_passes: flight details and the issued/boarded/cancelled state
//   - checkin_logs: one row per check-in attempt, never updated
//
// Biometric templates are encrypted transparently by GORM hooks using the
// vault attached to the connection context; plaintext only ever exists in
// the transient Template field.
package model
