// Package cloud defines the mirror that copies goals and monthly snapshots to
// a user's cloud account.
package cloud

import (
	"context"
	"errors"

	"finplan/internal/core"

	"github.com/google/uuid"
)

// AccountStatus reports whether the mirror can be written to right now.
type AccountStatus string

const (
	StatusAvailable         AccountStatus = "available"
	StatusNoAccount         AccountStatus = "no_account"
	StatusRestricted        AccountStatus = "restricted"
	StatusCouldNotDetermine AccountStatus = "could_not_determine"
)

func (s AccountStatus) Available() bool { return s == StatusAvailable }

// ErrUnavailable is returned by mirror writes when the account cannot be used.
var ErrUnavailable = errors.New("cloud account unavailable")

// Mirror is the outbound port for cloud sync. Pushes are idempotent: pushing
// the same goal or snapshot twice leaves one row.
type Mirror interface {
	AccountStatus(ctx context.Context) (AccountStatus, error)
	PushGoal(ctx context.Context, g *core.FinancialGoal) error
	PushSnapshot(ctx context.Context, s core.MonthlySpending) error
	// DeleteGoal removes the goal and its snapshots. Deleting a goal that was
	// never pushed is not an error.
	DeleteGoal(ctx context.Context, goalID uuid.UUID) error
}
