package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

func TestGetProfileScansRow(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewProfileRepository(db)

	rows := sqlmock.NewRows([]string{
		"user_id", "account_type", "company_name", "first_name", "last_name", "display_name", "email",
		"accountant_email", "period_mode", "archive_root_folder",
	}).AddRow("u1", "company", "Talleres Pérez SL", "", "", "", "owner@example.com",
		"gestoria@example.com", "week", "/Empresa")
	mock.ExpectQuery("FROM profiles").WithArgs("u1").WillReturnRows(rows)

	profile, err := repo.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.Type != domain.AccountCompany || profile.PeriodMode != domain.PeriodWeek {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.AccountantEmail != "gestoria@example.com" || profile.ArchiveRootFolder != "/Empresa" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewProfileRepository(db)

	mock.ExpectQuery("FROM profiles").WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetProfile(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
