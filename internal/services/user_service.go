package services

import (
	"context"
	"fmt"
	"log/slog"

	"finplan/internal/core"
	"finplan/internal/storage"

	"github.com/google/uuid"
)

// UserService manages users. Deleting a user deletes its goals through
// GoalService first so the mirror receives delete syncs.
type UserService struct {
	store storage.UserStore
	goals *GoalService
}

func NewUserService(store storage.UserStore, goals *GoalService) *UserService {
	return &UserService{store: store, goals: goals}
}

func (s *UserService) CreateUser(ctx context.Context, name string) (core.User, error) {
	u, err := core.NewUser(name)
	if err != nil {
		return core.User{}, fmt.Errorf("validate user: %w", err)
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("save user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// DeleteUser removes the user with its ledger, goals and snapshots.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if s.goals != nil {
		goals, err := s.goals.ListGoals(ctx, id)
		if err != nil {
			return err
		}
		for _, g := range goals {
			if err := s.goals.DeleteGoal(ctx, g.ID); err != nil {
				return err
			}
		}
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}
