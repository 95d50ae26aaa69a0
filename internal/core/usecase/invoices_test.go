package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

func TestInvoiceQueryFillsMissingPeriod(t *testing.T) {
	repo := newInvoiceRepoFake(&domain.Invoice{ID: "inv-1", UserID: "u1", Date: "2025-02-14"})
	profiles := &profileRepoFake{profiles: map[string]*domain.UserProfile{
		"u1": {UserID: "u1", PeriodMode: domain.PeriodWeek, ArchiveRootFolder: "/Empresa"},
	}}
	uc := NewInvoiceQueryUseCase(repo, profiles, domain.PeriodMonth, "/FaktuGo")

	inv, err := uc.GetByID(context.Background(), "u1", "inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if inv.PeriodKey != "2025-S07" || inv.FolderPath != "/Empresa/2025-S07" || inv.PeriodType != domain.PeriodWeek {
		t.Fatalf("unexpected period %q %q %q", inv.PeriodType, inv.PeriodKey, inv.FolderPath)
	}
	if repo.periodUpdates != 1 || repo.invoices["inv-1"].PeriodKey != "2025-S07" {
		t.Fatalf("expected the period to be stored, updates=%d", repo.periodUpdates)
	}
}

func TestInvoiceQueryUnparseableDateUsesRootFolder(t *testing.T) {
	repo := newInvoiceRepoFake(&domain.Invoice{ID: "inv-1", UserID: "u1", Date: "sin fecha"})
	uc := NewInvoiceQueryUseCase(repo, nil, domain.PeriodMonth, "/FaktuGo")

	inv, err := uc.GetByID(context.Background(), "u1", "inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if inv.PeriodKey != "" || inv.FolderPath != "/FaktuGo" {
		t.Fatalf("expected root folder without key, got %q %q", inv.PeriodKey, inv.FolderPath)
	}
}

func TestInvoiceQueryLeavesStoredPeriodAlone(t *testing.T) {
	repo := newInvoiceRepoFake(&domain.Invoice{
		ID: "inv-1", UserID: "u1", Date: "2025-02-14",
		PeriodType: domain.PeriodMonth, PeriodKey: "2025-02", FolderPath: "/FaktuGo/2025-02",
	})
	uc := NewInvoiceQueryUseCase(repo, nil, domain.PeriodWeek, "/FaktuGo")

	inv, err := uc.GetByID(context.Background(), "u1", "inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if inv.PeriodKey != "2025-02" || repo.periodUpdates != 0 {
		t.Fatalf("stored period must not change, got %q updates=%d", inv.PeriodKey, repo.periodUpdates)
	}
}

func TestInvoiceQueryUpdateFailureStillReturnsInvoice(t *testing.T) {
	repo := newInvoiceRepoFake(&domain.Invoice{ID: "inv-1", UserID: "u1", Date: "2025-02-14"})
	repo.updateErr = errors.New("read-only replica")
	uc := NewInvoiceQueryUseCase(repo, nil, domain.PeriodMonth, "")

	inv, err := uc.GetByID(context.Background(), "u1", "inv-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if inv.PeriodKey != "2025-02" || inv.FolderPath != "/FaktuGo/2025-02" {
		t.Fatalf("unexpected period %q %q", inv.PeriodKey, inv.FolderPath)
	}
}

func TestInvoiceQueryNotFound(t *testing.T) {
	uc := NewInvoiceQueryUseCase(newInvoiceRepoFake(), nil, "", "")
	if _, err := uc.GetByID(context.Background(), "u1", "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
