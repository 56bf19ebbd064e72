package store

import (
	"errors"
	"time"

	"github.com/veripass/veripass/pkg/model"
)

// ErrPassNotFound is returned when a boarding pass doesn't exist
var ErrPassNotFound = errors.New("boarding pass not found")

// ErrAlreadyProcessed is returned when a reservation already has a live
// boarding pass
var ErrAlreadyProcessed = errors.New("reservation already checked in")

// ErrAlreadyBoarded is returned when a pass was already consumed at the gate
var ErrAlreadyBoarded = errors.New("boarding pass already boarded")

// ErrPassNotBoardable is returned when a pass is cancelled or expired
var ErrPassNotBoardable = errors.New("boarding pass is not boardable")

// PassesStore abstracts boarding pass storage operations
type PassesStore interface {
	// CreatePass persists a new issued pass. Returns ErrAlreadyProcessed
	// when the reservation already has an issued or boarded pass.
	CreatePass(pass *model.BoardingPass) error

	// FetchPass retrieves a pass by id.
	// Returns ErrPassNotFound if it doesn't exist.
	FetchPass(id string) (*model.BoardingPass, error)

	// FetchPassByReservation retrieves the reservation's live pass.
	// Returns ErrPassNotFound if there is none.
	FetchPassByReservation(reservationID string) (*model.BoardingPass, error)

	// MarkBoarded performs the one-way issued to boarded transition with a
	// conditional update, so concurrent gate scans elect exactly one
	// winner. Losers get ErrAlreadyBoarded; cancelled or expired passes get
	// ErrPassNotBoardable.
	MarkBoarded(id string, at time.Time) (*model.BoardingPass, error)

	// CancelPass performs issued to cancelled. Returns ErrAlreadyBoarded
	// once the pass has been consumed.
	CancelPass(id string) error

	// ExpirePasses marks issued passes past their expiry as expired and
	// reports how many rows advanced. Forward-only.
	ExpirePasses(now time.Time) (int64, error)
}
