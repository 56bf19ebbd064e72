package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/vault"
)

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

func txWithVault(t *testing.T, v *vault.Vault) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	if v != nil {
		ctx = WithVault(ctx, v)
	}
	return &gorm.DB{Statement: &gorm.Statement{Context: ctx}}
}

func TestEnrollmentEncryptionHooks(t *testing.T) {
	v := testVault(t)
	template := []byte("template-bytes")

	e := &Enrollment{Template: append([]byte(nil), template...)}
	require.NoError(t, e.BeforeCreate(txWithVault(t, v)))

	assert.NotEmpty(t, e.ID, "hook assigns an id before encrypting")
	assert.Nil(t, e.Template, "plaintext must not survive the create hook")
	assert.NotEmpty(t, e.EncryptedTemplate)
	assert.NotContains(t, string(e.EncryptedTemplate), "template-bytes")

	require.NoError(t, e.AfterFind(txWithVault(t, v)))
	assert.Equal(t, template, e.Template)
}

func TestEnrollmentHooksRequireVault(t *testing.T) {
	e := &Enrollment{Template: []byte("template-bytes")}
	assert.ErrorIs(t, e.BeforeCreate(txWithVault(t, nil)), ErrNoVault)

	e = &Enrollment{ID: "enr-1", EncryptedTemplate: []byte("blob")}
	assert.ErrorIs(t, e.AfterFind(txWithVault(t, nil)), ErrNoVault)
}

func TestEnrollmentTemplateBoundToRow(t *testing.T) {
	v := testVault(t)

	e := &Enrollment{ID: "enr-1", Template: []byte("template-bytes")}
	require.NoError(t, e.BeforeCreate(txWithVault(t, v)))

	// Lifting the ciphertext onto another row must fail authentication.
	other := &Enrollment{ID: "enr-2", EncryptedTemplate: e.EncryptedTemplate}
	assert.Error(t, other.AfterFind(txWithVault(t, v)))
}

func TestEnrollmentScrubbedRowSkipsDecryption(t *testing.T) {
	e := &Enrollment{ID: "enr-1"}
	require.NoError(t, e.AfterFind(txWithVault(t, nil)),
		"rows without a template must load even without a vault")
	assert.Nil(t, e.Template)
}

func TestEnrollmentUsable(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*Enrollment)
		want   bool
	}{
		{"active", func(e *Enrollment) {}, true},
		{"pending", func(e *Enrollment) { e.Status = EnrollmentPending }, false},
		{"revoked", func(e *Enrollment) { e.Status = EnrollmentRevoked }, false},
		{"manual review", func(e *Enrollment) { e.Status = EnrollmentManualReview }, false},
		{"expired", func(e *Enrollment) { e.ExpiresAt = &past }, false},
		{"consent revoked", func(e *Enrollment) { e.Consent.RevokedAt = &past }, false},
		{"no expiry", func(e *Enrollment) { e.ExpiresAt = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Enrollment{Status: EnrollmentActive, ExpiresAt: &future}
			tt.mutate(e)
			assert.Equal(t, tt.want, e.Usable())
		})
	}
}

func TestEnrollmentScrub(t *testing.T) {
	now := time.Now()
	e := &Enrollment{
		ID:                "enr-1",
		SubjectID:         "subj-1",
		FirstName:         "Ada",
		LastName:          "Lovelace",
		DateOfBirth:       "1815-12-10",
		DocumentNumber:    "X1234567",
		Nationality:       "GBR",
		EncryptedTemplate: []byte("blob"),
		FaceEncodingHash:  "abc",
		Status:            EnrollmentActive,
		Consent:           Consent{Given: true},
	}

	e.Scrub(now)

	assert.Empty(t, e.FirstName)
	assert.Empty(t, e.LastName)
	assert.Empty(t, e.DateOfBirth)
	assert.Empty(t, e.DocumentNumber)
	assert.Empty(t, e.Nationality)
	assert.Nil(t, e.EncryptedTemplate)
	assert.Empty(t, e.FaceEncodingHash)
	assert.Equal(t, EnrollmentRevoked, e.Status)
	require.NotNil(t, e.Consent.RevokedAt)
	assert.Equal(t, now, *e.Consent.RevokedAt)
	assert.Equal(t, "enr-1", e.ID, "the row itself survives erasure")
}
