package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PassStatus is the lifecycle state of a boarding pass. Transitions are
// forward-only; an issued pass is consumed exactly once.
type PassStatus string

const (
	PassIssued    PassStatus = "issued"
	PassBoarded   PassStatus = "boarded"
	PassCancelled PassStatus = "cancelled"
	PassExpired   PassStatus = "expired"
)

// BoardingPass is one consumable boarding authorization per reservation.
type BoardingPass struct {
	ID            string `gorm:"column:id;primaryKey"`
	ReservationID string `gorm:"column:reservation_id"`
	EnrollmentID  string `gorm:"column:enrollment_id"`
	SubjectID     string `gorm:"column:subject_id"`

	Flight        string    `gorm:"column:flight"`
	Gate          string    `gorm:"column:gate"`
	Seat          string    `gorm:"column:seat"`
	BoardingGroup string    `gorm:"column:boarding_group"`
	BoardingTime  time.Time `gorm:"column:boarding_time"`

	WheelchairAssistance bool `gorm:"column:wheelchair_assistance"`
	ExtraBoardingTime    bool `gorm:"column:extra_boarding_time"`

	Status        PassStatus `gorm:"column:status"`
	GateScannedAt *time.Time `gorm:"column:gate_scanned_at"`
	BoardedAt     *time.Time `gorm:"column:boarded_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
}

func (BoardingPass) TableName() string {
	return "boarding_passes"
}

// IsExpired returns true if the pass has an expiration time that has passed.
func (p *BoardingPass) IsExpired() bool {
	if p.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*p.ExpiresAt)
}

// Boardable reports whether the pass may still be consumed at the gate.
func (p *BoardingPass) Boardable() bool {
	return p.Status == PassIssued && !p.IsExpired()
}

func (p *BoardingPass) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
