package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckInOutcome is the terminal result of a check-in attempt.
type CheckInOutcome string

const (
	CheckInSuccess        CheckInOutcome = "success"
	CheckInFailed         CheckInOutcome = "failed"
	CheckInManualOverride CheckInOutcome = "manual_override"
)

// CheckInLog is one row per check-in attempt. Rows are append-only and
// never updated; the subject is recorded only as an anonymized hash.
type CheckInLog struct {
	ID           string  `gorm:"column:id;primaryKey"`
	EnrollmentID string  `gorm:"column:enrollment_id"`
	PassID       *string `gorm:"column:pass_id"`
	SubjectHash  string  `gorm:"column:subject_hash"`

	TokenValid         bool     `gorm:"column:token_valid"`
	FaceSimilarity     *float64 `gorm:"column:face_similarity"`
	LivenessConfidence *float64 `gorm:"column:liveness_confidence"`

	Outcome        CheckInOutcome `gorm:"column:outcome"`
	FailureReasons []string       `gorm:"column:failure_reasons;type:jsonb;serializer:json"`
	AgentID        string         `gorm:"column:agent_id"`
	DurationMs     int64          `gorm:"column:duration_ms"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
}

func (CheckInLog) TableName() string {
	return "checkin_logs"
}

func (l *CheckInLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
