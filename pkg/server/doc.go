// Package server provides the HTTP server for the verification API.
//
// This package implements the core HTTP server that handles enrollment,
// check-in, and boarding requests. It uses gorilla/mux for routing and
// provides middleware for agent authentication.
//
// # Server Setup
//
//	srv := server.NewServer(v, codec, gw, db, cfg, m,
//	    enrollments, passes, logs, health, agentSecret, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Vault: encryption, anonymization, and HMAC signing keys
//   - Codec: credential token issuance and verification
//   - Gateway: external verification provider access
//   - Stores: enrollments, passes, check-in logs, and health
//   - Pipeline services: Enroller, CheckIn, Boarding
//   - AgentMiddleware: agent bearer token validation
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
//
// This registers:
//
//   - POST /enrollments - run the enrollment pipeline
//   - GET /enrollments/{id} - fetch an enrollment summary
//   - DELETE /enrollments/{id} - erase biometric and identity data
//   - POST /checkins - run a check-in attempt
//   - GET /checkins/{enrollmentID}/logs - list check-in attempts
//   - POST /boarding/scan-gate - read-only gate scan
//   - POST /boarding/validate - consume a boarding pass
//   - GET /passes/{id} - fetch a boarding pass
//   - POST /passes/{id}/cancel - cancel an issued pass
//   - GET / - service status
//   - GET /metrics - Prometheus metrics
package server
