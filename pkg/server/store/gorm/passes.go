package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server/store"
)

// Ensure PassesStore implements store.PassesStore
var _ store.PassesStore = (*PassesStore)(nil)

// PassesStore implements store.PassesStore using GORM
type PassesStore struct {
	db *gorm.DB
}

// NewPassesStore creates a new PassesStore
func NewPassesStore(db *gorm.DB) *PassesStore {
	return &PassesStore{db: db}
}

// CreatePass persists a new issued pass.
func (s *PassesStore) CreatePass(pass *model.BoardingPass) error {
	var count int64
	err := s.db.Model(&model.BoardingPass{}).
		Where("reservation_id = ? AND status IN ?", pass.ReservationID,
			[]model.PassStatus{model.PassIssued, model.PassBoarded}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return store.ErrAlreadyProcessed
	}

	err = s.db.Create(pass).Error
	if uniqueViolation(err) {
		return store.ErrAlreadyProcessed
	}
	return err
}

// FetchPass retrieves a pass by id.
func (s *PassesStore) FetchPass(id string) (*model.BoardingPass, error) {
	var pass model.BoardingPass
	tx := s.db.Where("id = ?", id).First(&pass)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrPassNotFound
		}
		return nil, tx.Error
	}
	return &pass, nil
}

// FetchPassByReservation retrieves the reservation's live pass.
func (s *PassesStore) FetchPassByReservation(reservationID string) (*model.BoardingPass, error) {
	var pass model.BoardingPass
	tx := s.db.Where("reservation_id = ? AND status IN ?", reservationID,
		[]model.PassStatus{model.PassIssued, model.PassBoarded}).
		Order("created_at desc").First(&pass)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrPassNotFound
		}
		return nil, tx.Error
	}
	return &pass, nil
}

// MarkBoarded performs the one-way issued to boarded transition. The
// conditional update keyed on current status is what serializes concurrent
// gate scans: only one of them flips the row.
func (s *PassesStore) MarkBoarded(id string, at time.Time) (*model.BoardingPass, error) {
	tx := s.db.Model(&model.BoardingPass{}).
		Where("id = ? AND status = ?", id, model.PassIssued).
		Updates(map[string]interface{}{
			"status":          model.PassBoarded,
			"gate_scanned_at": at,
			"boarded_at":      at,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}

	if tx.RowsAffected == 0 {
		pass, err := s.FetchPass(id)
		if err != nil {
			return nil, err
		}
		switch pass.Status {
		case model.PassBoarded:
			return nil, store.ErrAlreadyBoarded
		default:
			return nil, store.ErrPassNotBoardable
		}
	}

	return s.FetchPass(id)
}

// CancelPass performs issued to cancelled.
func (s *PassesStore) CancelPass(id string) error {
	tx := s.db.Model(&model.BoardingPass{}).
		Where("id = ? AND status = ?", id, model.PassIssued).
		Update("status", model.PassCancelled)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		pass, err := s.FetchPass(id)
		if err != nil {
			return err
		}
		switch pass.Status {
		case model.PassBoarded:
			return store.ErrAlreadyBoarded
		case model.PassCancelled:
			// Cancelling twice is harmless.
			return nil
		default:
			return store.ErrPassNotBoardable
		}
	}
	return nil
}

// ExpirePasses marks issued passes past their expiry as expired.
func (s *PassesStore) ExpirePasses(now time.Time) (int64, error) {
	tx := s.db.Model(&model.BoardingPass{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.PassIssued, now).
		Update("status", model.PassExpired)
	return tx.RowsAffected, tx.Error
}
