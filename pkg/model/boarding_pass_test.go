package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBoardingPassBoardable(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		pass BoardingPass
		want bool
	}{
		{"issued", BoardingPass{Status: PassIssued, ExpiresAt: &future}, true},
		{"issued no expiry", BoardingPass{Status: PassIssued}, true},
		{"boarded", BoardingPass{Status: PassBoarded, ExpiresAt: &future}, false},
		{"cancelled", BoardingPass{Status: PassCancelled, ExpiresAt: &future}, false},
		{"issued but expired", BoardingPass{Status: PassIssued, ExpiresAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pass.Boardable())
		})
	}
}

func TestBoardingPassBeforeCreateAssignsID(t *testing.T) {
	p := &BoardingPass{}
	require.NoError(t, p.BeforeCreate(&gorm.DB{}))
	assert.NotEmpty(t, p.ID)

	fixed := &BoardingPass{ID: "pass-1"}
	require.NoError(t, fixed.BeforeCreate(&gorm.DB{}))
	assert.Equal(t, "pass-1", fixed.ID, "explicit ids are preserved")
}
