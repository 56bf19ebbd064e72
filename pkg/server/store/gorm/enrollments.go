package gorm

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server/store"
)

// Ensure EnrollmentsStore implements store.EnrollmentsStore
var _ store.EnrollmentsStore = (*EnrollmentsStore)(nil)

// EnrollmentsStore implements store.EnrollmentsStore using GORM
type EnrollmentsStore struct {
	db *gorm.DB
}

// NewEnrollmentsStore creates a new EnrollmentsStore
func NewEnrollmentsStore(db *gorm.DB) *EnrollmentsStore {
	return &EnrollmentsStore{db: db}
}

// uniqueViolation matches the postgres unique_violation error raised by the
// partial unique indexes guarding one-active-per-subject and
// one-live-pass-per-reservation.
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateEnrollment persists a new enrollment.
func (s *EnrollmentsStore) CreateEnrollment(enrollment *model.Enrollment) error {
	if enrollment.Status == model.EnrollmentActive {
		var count int64
		err := s.db.Model(&model.Enrollment{}).
			Where("subject_id = ? AND status = ?", enrollment.SubjectID, model.EnrollmentActive).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return store.ErrActiveEnrollmentExists
		}
	}

	err := s.db.Create(enrollment).Error
	if uniqueViolation(err) {
		// Lost the race against a concurrent enrollment; the partial
		// unique index is the authority.
		return store.ErrActiveEnrollmentExists
	}
	return err
}

// FetchEnrollment retrieves an enrollment by id.
func (s *EnrollmentsStore) FetchEnrollment(id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	tx := s.db.Where("id = ?", id).First(&enrollment)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrEnrollmentNotFound
		}
		return nil, tx.Error
	}
	return &enrollment, nil
}

// FetchActiveEnrollmentBySubject retrieves the subject's active enrollment.
func (s *EnrollmentsStore) FetchActiveEnrollmentBySubject(subjectID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	tx := s.db.Where("subject_id = ? AND status = ?", subjectID, model.EnrollmentActive).
		Order("created_at desc").First(&enrollment)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrEnrollmentNotFound
		}
		return nil, tx.Error
	}
	return &enrollment, nil
}

// RecordVerification bumps the usage counter and stamps last_verified_at.
func (s *EnrollmentsStore) RecordVerification(id string, at time.Time) error {
	tx := s.db.Model(&model.Enrollment{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"use_count":        gorm.Expr("use_count + 1"),
			"last_verified_at": at,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrEnrollmentNotFound
	}
	return nil
}

// SaveScrubbed writes back a scrubbed enrollment, including its cleared
// columns.
func (s *EnrollmentsStore) SaveScrubbed(enrollment *model.Enrollment) error {
	return s.db.Model(enrollment).
		Select("first_name", "last_name", "date_of_birth", "document_number",
			"nationality", "encrypted_template", "face_encoding_hash",
			"status", "consent").
		Updates(enrollment).Error
}

// ExpireEnrollments marks active enrollments past their expiry as expired.
func (s *EnrollmentsStore) ExpireEnrollments(now time.Time) (int64, error) {
	tx := s.db.Model(&model.Enrollment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.EnrollmentActive, now).
		Update("status", model.EnrollmentExpired)
	return tx.RowsAffected, tx.Error
}
