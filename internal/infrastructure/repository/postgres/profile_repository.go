package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, account_type, company_name, first_name, last_name, display_name, email,
	accountant_email, period_mode, archive_root_folder
FROM profiles
WHERE user_id = $1
`, userID)

	var (
		profile     domain.UserProfile
		accountType string
		periodMode  string
	)
	err := row.Scan(
		&profile.UserID,
		&accountType,
		&profile.CompanyName,
		&profile.FirstName,
		&profile.LastName,
		&profile.DisplayName,
		&profile.Email,
		&profile.AccountantEmail,
		&periodMode,
		&profile.ArchiveRootFolder,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get profile", fmt.Errorf("profile not found: user_id=%s", userID))
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.Type = domain.AccountType(accountType)
	profile.PeriodMode = domain.PeriodMode(periodMode)
	return &profile, nil
}
