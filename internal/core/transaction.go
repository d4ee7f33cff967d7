package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 200

// User owns every ledger entry and goal. Deleting a user removes all of them.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a user with a fresh identifier.
func NewUser(name string) (User, error) {
	u := User{ID: uuid.New(), Name: strings.TrimSpace(name), CreatedAt: time.Now().UTC()}
	return u, u.Validate()
}

func (u User) Validate() error {
	return validateName("name", u.Name)
}

// Transaction is a single discrete expense. Amount is a non-negative
// magnitude; the sign is never used to encode direction.
type Transaction struct {
	ID       uuid.UUID           `json:"id"`
	UserID   uuid.UUID           `json:"user_id"`
	Name     string              `json:"name"`
	Amount   Money               `json:"amount"`
	Category TransactionCategory `json:"category"`
	Date     Date                `json:"date"`
	Notes    string              `json:"notes,omitempty"`
	Shared   bool                `json:"shared"`
}

// NewTransaction builds and validates a transaction with a fresh identifier.
func NewTransaction(userID uuid.UUID, name string, amount Money, category TransactionCategory, date Date) (Transaction, error) {
	t := Transaction{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     strings.TrimSpace(name),
		Amount:   amount,
		Category: category,
		Date:     date,
	}
	return t, t.Validate()
}

func (t Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return invalid("user_id", ErrMissingUser)
	}
	if err := validateName("name", t.Name); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return invalid("amount", ErrNegativeAmount)
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !t.Category.IsValid() {
		return invalid("category", ErrInvalidCategory)
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid(field, ErrEmptyName)
	}
	if len(name) > maxNameLength {
		return invalid(field, ErrNameTooLong)
	}
	return nil
}
