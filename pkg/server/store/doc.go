// Package store provides storage abstractions for the Veripass server.
//
// This package defines interfaces for database operations, allowing the
// verification pipeline and server endpoints to be decoupled from the
// specific database implementation. This enables easier testing with mocks
// and potential support for different storage backends.
//
// # Available Stores
//
//   - EnrollmentsStore: identity capture lifecycle (create, fetch, scrub, expire)
//   - PassesStore: boarding pass lifecycle, including the one-way boarded transition
//   - CheckInLogsStore: the append-only check-in trail
//   - HealthStore: connectivity checks
//
// # Usage
//
//	passes := gorm.NewPassesStore(db)
//	pass, err := passes.MarkBoarded(passID, time.Now())
//	if err != nil {
//	    if errors.Is(err, store.ErrAlreadyBoarded) {
//	        // Another gate scan won the race
//	    }
//	}
package store
