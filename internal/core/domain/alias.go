package domain

import (
	"strings"
	"time"
)

type EmailAlias struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LocalPart   string    `json:"local_part"`
	Domain      string    `json:"domain"`
	FullAddress string    `json:"full_address"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FullAddress(localPart, domain string) string {
	return localPart + "@" + domain
}

type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountCompany    AccountType = "company"
)

// UserProfile is the subset of the account profile the pipeline reads.
type UserProfile struct {
	UserID          string
	Type            AccountType
	CompanyName     string
	FirstName       string
	LastName        string
	DisplayName     string
	Email           string
	AccountantEmail string

	PeriodMode        PeriodMode
	ArchiveRootFolder string
}

// PersonName is "first last", trimmed.
func (p *UserProfile) PersonName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// SenderName prefers the person name, then the stored display name, then the
// account email.
func (p *UserProfile) SenderName() string {
	if p == nil {
		return ""
	}
	if name := p.PersonName(); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(p.Email)
}
