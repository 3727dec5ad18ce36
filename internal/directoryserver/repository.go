package directoryserver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contact-sync/internal/types"
)

// DirectoryUser is one registered platform user in the directory
type DirectoryUser struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phoneNumber"` // canonical E.164 form
	Handle        string    `json:"handle"`
	WalletAddress string    `json:"walletAddress"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Repository is the directory user lookup contract
type Repository interface {
	// LookupByPhones resolves phone numbers to registered users; numbers
	// without a registered user are absent from the result
	LookupByPhones(ctx context.Context, phones []string) ([]types.DirectoryMember, error)
}

// UserRepository handles directory user persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new directory user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create registers a new directory user
func (r *UserRepository) Create(ctx context.Context, user *DirectoryUser) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO directory_users (id, phone_number, handle, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.PhoneNumber,
		user.Handle,
		user.WalletAddress,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create directory user: %w", err)
	}

	return nil
}

// LookupByPhones resolves a batch of phone numbers to registered users.
// Both the query numbers and the stored numbers are expected in canonical
// E.164 form; matching is exact.
func (r *UserRepository) LookupByPhones(ctx context.Context, phones []string) ([]types.DirectoryMember, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	query := `
		SELECT phone_number, id, handle, wallet_address
		FROM directory_users
		WHERE phone_number = ANY($1)
	`

	rows, err := r.db.Pool().Query(ctx, query, phones)
	if err != nil {
		return nil, fmt.Errorf("failed to look up directory users: %w", err)
	}
	defer rows.Close()

	var members []types.DirectoryMember
	for rows.Next() {
		var m types.DirectoryMember
		if err := rows.Scan(&m.PhoneNumber, &m.UserID, &m.Handle, &m.WalletAddress); err != nil {
			return nil, fmt.Errorf("failed to scan directory user: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read directory users: %w", err)
	}

	return members, nil
}
