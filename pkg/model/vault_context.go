package model

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/vault"
)

type vaultContextKey struct{}

// ErrNoVault is returned by encryption hooks when the connection context
// carries no vault.
var ErrNoVault = errors.New("no biometric vault attached to database context")

// WithVault attaches the vault to a context so GORM hooks can encrypt and
// decrypt template columns. The server does this once at startup via
// db.WithContext.
func WithVault(ctx context.Context, v *vault.Vault) context.Context {
	return context.WithValue(ctx, vaultContextKey{}, v)
}

func vaultForDb(tx *gorm.DB) (*vault.Vault, error) {
	v, ok := tx.Statement.Context.Value(vaultContextKey{}).(*vault.Vault)
	if !ok || v == nil {
		return nil, ErrNoVault
	}
	return v, nil
}
