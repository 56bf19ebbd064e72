package gorm

import (
	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server/store"
)

// Ensure CheckInLogsStore implements store.CheckInLogsStore
var _ store.CheckInLogsStore = (*CheckInLogsStore)(nil)

// CheckInLogsStore implements store.CheckInLogsStore using GORM
type CheckInLogsStore struct {
	db *gorm.DB
}

// NewCheckInLogsStore creates a new CheckInLogsStore
func NewCheckInLogsStore(db *gorm.DB) *CheckInLogsStore {
	return &CheckInLogsStore{db: db}
}

// AppendLog persists one check-in attempt.
func (s *CheckInLogsStore) AppendLog(entry *model.CheckInLog) error {
	return s.db.Create(entry).Error
}

// ListLogsByEnrollment returns the enrollment's attempts, newest first.
func (s *CheckInLogsStore) ListLogsByEnrollment(enrollmentID string) ([]model.CheckInLog, error) {
	var logs []model.CheckInLog
	err := s.db.Where("enrollment_id = ?", enrollmentID).
		Order("created_at desc").Find(&logs).Error
	return logs, err
}
