package access

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe/internal/apperr"
)

func TestGateRequiresIdentity(t *testing.T) {
	gate := NewGate(AllowAll)

	err := gate.Require(context.Background(), OrderCreate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestGateDeniesWithReason(t *testing.T) {
	gate := NewGate(DefaultPolicy())
	ctx := WithIdentity(context.Background(), Identity{Username: "anna", Role: "waiter"})

	assert.NoError(t, gate.Require(ctx, OrderItemAdd))

	err := gate.Require(ctx, TableDelete)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
	assert.Contains(t, err.Error(), "table.delete")
}

func TestRolePolicyWildcard(t *testing.T) {
	p := DefaultPolicy()
	for _, c := range Capabilities {
		assert.True(t, p.Authorize(context.Background(), Identity{Role: "admin"}, c).Allowed, c)
	}
	assert.False(t, p.Authorize(context.Background(), Identity{Role: "ghost"}, OrderView).Allowed)
}

func TestNewRolePolicyRejectsUnknownCapability(t *testing.T) {
	_, err := NewRolePolicy(PolicyConfig{Roles: []Role{{Name: "x", Capabilities: []Capability{"order.eat"}}}})
	assert.Error(t, err)

	_, err = NewRolePolicy(PolicyConfig{Roles: []Role{{Name: "x"}, {Name: "x"}}})
	assert.Error(t, err)
}

func TestLoadRolePolicyFromRepoFile(t *testing.T) {
	p, err := LoadRolePolicy(filepath.Join("..", "..", "configs", "permissions.yaml"))
	require.NoError(t, err)

	assert.True(t, p.HasRole("cashier"))
	assert.True(t, p.Authorize(context.Background(), Identity{Role: "cashier"}, PaymentChangeStatus).Allowed)
	assert.False(t, p.Authorize(context.Background(), Identity{Role: "waiter"}, PaymentChangeStatus).Allowed)
}

func TestLoadRolePolicyBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles: [oops"), 0o600))

	_, err := LoadRolePolicy(path)
	assert.Error(t, err)
}
