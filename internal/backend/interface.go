package backend

import (
	"errors"

	"finplan/internal/amqp"
	"finplan/internal/cloud"
	"finplan/internal/secrets"
	"finplan/internal/services"
	"finplan/internal/storage"
)

// BackendType selects the storage implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Backend is the wired application: storage, collaborators and the services
// built on them. Publisher is nil when AMQP is not configured.
type Backend struct {
	Store     storage.Store
	Secrets   secrets.Store
	Mirror    cloud.Mirror
	Publisher *amqp.Client

	Reports *services.ReportCache
	Users   *services.UserService
	Goals   *services.GoalService
	Ledger  *services.LedgerService
	Bills   *services.BillProcessor
	Sync    *services.SyncProcessor
}

// Close releases the publisher and the store.
func (b *Backend) Close() error {
	var errs []error
	if b.Publisher != nil {
		errs = append(errs, b.Publisher.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}
