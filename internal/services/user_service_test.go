package services

import (
	"context"
	"testing"

	"finplan/internal/core"
	"finplan/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceCreateAndList(t *testing.T) {
	f := newGoalFixture(t)
	users := NewUserService(f.store, f.svc)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, "  Grace  ")
	require.NoError(t, err)
	assert.Equal(t, "Grace", u.Name)

	_, err = users.CreateUser(ctx, "   ")
	assert.True(t, core.IsValidation(err), "blank name should be a validation error, got %v", err)

	all, err := users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2) // fixture user + Grace
}

func TestUserServiceDeleteRemovesGoals(t *testing.T) {
	f := newGoalFixture(t)
	users := NewUserService(f.store, f.svc)
	ctx := context.Background()
	g := f.createGoal(t, nil)

	require.NoError(t, users.DeleteUser(ctx, f.user.ID))

	_, err := users.GetUser(ctx, f.user.ID)
	assert.True(t, IsNotFound(err))
	_, err = f.svc.GetGoal(ctx, g.ID)
	assert.True(t, IsNotFound(err))

	calls := f.pub.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, published{g.ID, storage.OpDelete}, calls[len(calls)-1])
}

func TestUserServiceDeleteUnknown(t *testing.T) {
	f := newGoalFixture(t)
	users := NewUserService(f.store, f.svc)

	err := users.DeleteUser(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err), "got %v", err)
}
