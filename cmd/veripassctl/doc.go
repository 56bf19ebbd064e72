// Package main implements veripassctl, the Veripass server CLI.
//
// Veripass is a biometric boarding system for airports: passengers enroll
// once with an identity document and a live selfie, check in against that
// enrollment to receive a signed boarding pass, and are re-verified at the
// gate where the pass is consumed.
//
// # Quick Start
//
//	# Generate a data key for encrypting biometric templates
//	export VERIPASS_DATA_KEY="$(veripassctl data-key generate)"
//
//	# Set the secret used to sign agent bearer tokens
//	export VERIPASS_AGENT_TOKEN_SECRET="$(veripassctl data-key generate)"
//
//	# Run database migrations
//	veripassctl db migrate
//
//	# Start the server
//	veripassctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - VERIPASS_DATA_KEY: Base64-encoded 256-bit key for template encryption
//   - VERIPASS_AGENT_TOKEN_SECRET: HMAC secret for agent bearer tokens
//   - VERIPASS_AUDIT_ENABLED: set to "false" to disable audit logging
//   - AUDIT_DATABASE_URL: optional separate database for the audit trail
//   - VERIPASS_LOG_LEVEL: log level (debug enables SQL logging)
//   - PORT: server port (default: 8000)
package main
