package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentStatus is the lifecycle state of an identity capture.
type EnrollmentStatus string

const (
	EnrollmentPending      EnrollmentStatus = "pending"
	EnrollmentActive       EnrollmentStatus = "active"
	EnrollmentManualReview EnrollmentStatus = "manual_review_required"
	EnrollmentRevoked      EnrollmentStatus = "revoked"
	EnrollmentExpired      EnrollmentStatus = "expired"
)

// EnrollmentScores records the quality scores the capture was admitted
// with. Stored as a jsonb block.
type EnrollmentScores struct {
	DocumentConfidence float64 `json:"document_confidence"`
	FaceSimilarity     float64 `json:"face_similarity"`
	LivenessConfidence float64 `json:"liveness_confidence"`
	LivenessChecked    bool    `json:"liveness_checked"`
}

// Consent records the traveler's biometric processing consent. Stored as
// a jsonb block; RevokedAt is set on right-to-erasure requests.
type Consent struct {
	Given       bool       `json:"given"`
	GivenAt     *time.Time `json:"given_at,omitempty"`
	TextVersion string     `json:"text_version,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Enrollment is a traveler's one-time identity capture.
type Enrollment struct {
	ID        string `gorm:"column:id;primaryKey"`
	SubjectID string `gorm:"column:subject_id"`

	FirstName      string `gorm:"column:first_name"`
	LastName       string `gorm:"column:last_name"`
	DateOfBirth    string `gorm:"column:date_of_birth"`
	DocumentNumber string `gorm:"column:document_number"`
	Nationality    string `gorm:"column:nationality"`
	DocumentType   string `gorm:"column:document_type"`

	EncryptedTemplate []byte           `gorm:"column:encrypted_template;type:bytea"`
	FaceEncodingHash  string           `gorm:"column:face_encoding_hash"`
	Scores            EnrollmentScores `gorm:"column:scores;type:jsonb;serializer:json"`
	Consent           Consent          `gorm:"column:consent;type:jsonb;serializer:json"`

	Status         EnrollmentStatus `gorm:"column:status"`
	CreatedAt      time.Time        `gorm:"column:created_at"`
	ExpiresAt      *time.Time       `gorm:"column:expires_at"`
	LastVerifiedAt *time.Time       `gorm:"column:last_verified_at"`
	UseCount       int              `gorm:"column:use_count"`

	// Transient plaintext template (not stored)
	Template []byte `gorm:"-"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// FullName joins the identity name fields as printed on the document.
func (e *Enrollment) FullName() string {
	return e.FirstName + " " + e.LastName
}

// IsExpired returns true if the enrollment has an expiration time that has passed.
func (e *Enrollment) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*e.ExpiresAt)
}

// Usable reports whether the enrollment may be presented at check-in:
// active, unexpired, and with consent still standing.
func (e *Enrollment) Usable() bool {
	return e.Status == EnrollmentActive && !e.IsExpired() && e.Consent.RevokedAt == nil
}

// Scrub clears biometric and identity material in place for erasure
// requests. The row survives (audit and pass references point at it) but
// nothing personal remains on it.
func (e *Enrollment) Scrub(now time.Time) {
	e.FirstName = ""
	e.LastName = ""
	e.DateOfBirth = ""
	e.DocumentNumber = ""
	e.Nationality = ""
	e.EncryptedTemplate = nil
	e.Template = nil
	e.FaceEncodingHash = ""
	e.Status = EnrollmentRevoked
	e.Consent.RevokedAt = &now
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	v, err := vaultForDb(tx)
	if err != nil {
		return err
	}

	// The enrollment id is the AAD: a template blob lifted onto another
	// row fails authentication on decrypt.
	e.EncryptedTemplate, err = v.Encrypt([]byte(e.ID), e.Template)
	if err != nil {
		return fmt.Errorf("template encryption failed for enrollment id=%q", e.ID)
	}
	e.Template = nil
	return nil
}

func (e *Enrollment) AfterFind(tx *gorm.DB) (err error) {
	// Scrubbed rows carry no template.
	if len(e.EncryptedTemplate) == 0 {
		return nil
	}

	v, err := vaultForDb(tx)
	if err != nil {
		return err
	}

	e.Template, err = v.Decrypt([]byte(e.ID), e.EncryptedTemplate)
	if err != nil {
		err = fmt.Errorf("template decryption failed for enrollment id=%q", e.ID)
	}
	return
}
