package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

type AliasRepository struct {
	db *sql.DB
}

func NewAliasRepository(db *sql.DB) *AliasRepository {
	return &AliasRepository{db: db}
}

func (r *AliasRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.EmailAlias, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, local_part, domain, full_address, active, created_at, updated_at
FROM email_aliases
WHERE user_id = $1 AND active
ORDER BY updated_at DESC
LIMIT 1
`, userID)
	return scanAliasRow(row, "get active alias by user")
}

func (r *AliasRepository) GetActiveByAddress(ctx context.Context, fullAddress string) (*domain.EmailAlias, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, local_part, domain, full_address, active, created_at, updated_at
FROM email_aliases
WHERE full_address = $1 AND active
`, fullAddress)
	return scanAliasRow(row, "get active alias by address")
}

// Insert fails with domain.ErrUniqueViolation when the address is taken or
// the user already has an active alias.
func (r *AliasRepository) Insert(ctx context.Context, alias *domain.EmailAlias) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO email_aliases (id, user_id, local_part, domain, full_address, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, alias.ID, alias.UserID, alias.LocalPart, alias.Domain, alias.FullAddress, alias.Active, alias.CreatedAt, alias.UpdatedAt)
	if err != nil {
		return classifyWriteError("insert alias", err)
	}
	return nil
}

// UpdateAddress rewrites the address of an existing row, keeping its id.
func (r *AliasRepository) UpdateAddress(ctx context.Context, alias *domain.EmailAlias) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE email_aliases
SET local_part = $3, domain = $4, full_address = $5, updated_at = $6
WHERE user_id = $1 AND id = $2
`, alias.UserID, alias.ID, alias.LocalPart, alias.Domain, alias.FullAddress, alias.UpdatedAt)
	if err != nil {
		return classifyWriteError("update alias", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alias rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update alias", fmt.Errorf("alias not found: id=%s", alias.ID))
	}
	return nil
}

func scanAliasRow(row rowScanner, operation string) (*domain.EmailAlias, error) {
	var alias domain.EmailAlias
	err := row.Scan(
		&alias.ID,
		&alias.UserID,
		&alias.LocalPart,
		&alias.Domain,
		&alias.FullAddress,
		&alias.Active,
		&alias.CreatedAt,
		&alias.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, operation, err)
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &alias, nil
}
