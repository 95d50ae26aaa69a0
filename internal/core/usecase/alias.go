package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/core/ports"
)

const (
	DefaultInboundDomain      = "in.faktugo.com"
	defaultAliasMaxAttempts   = 5
	defaultLegacyLocalPartLen = 40
)

type AliasOptions struct {
	Domain             string
	LegacyDomains      []string
	LegacyPrefixes     []string
	MaxAttempts        int
	SlugMaxLen         int
	LegacyLocalPartLen int
}

func (o AliasOptions) normalize() AliasOptions {
	o.Domain = strings.ToLower(strings.TrimSpace(o.Domain))
	if o.Domain == "" {
		o.Domain = DefaultInboundDomain
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultAliasMaxAttempts
	}
	if o.SlugMaxLen <= 0 {
		o.SlugMaxLen = defaultSlugMaxLen
	}
	if o.LegacyLocalPartLen <= 0 {
		o.LegacyLocalPartLen = defaultLegacyLocalPartLen
	}
	o.LegacyDomains = normalizeList(o.LegacyDomains)
	o.LegacyPrefixes = normalizeList(o.LegacyPrefixes)
	return o
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// AliasUseCase hands out the inbound address of each user and resolves
// inbound addresses back to their owner.
type AliasUseCase struct {
	aliases  ports.AliasRepository
	profiles ports.ProfileRepository
	opts     AliasOptions
	observer ports.PipelineObserver
	newToken func() string
	now      func() time.Time
}

func NewAliasUseCase(aliases ports.AliasRepository, profiles ports.ProfileRepository, opts AliasOptions) *AliasUseCase {
	return &AliasUseCase{
		aliases:  aliases,
		profiles: profiles,
		opts:     opts.normalize(),
		observer: noopObserver{},
		newToken: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AliasUseCase) WithObserver(observer ports.PipelineObserver) *AliasUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// IsLegacy reports whether an alias uses a retired prefix, an overlong local
// part or a retired domain.
func (uc *AliasUseCase) IsLegacy(alias *domain.EmailAlias) bool {
	local := strings.ToLower(alias.LocalPart)
	if _, ok := uc.legacyPrefix(local); ok {
		return true
	}
	if len(local) > uc.opts.LegacyLocalPartLen {
		return true
	}
	aliasDomain := strings.ToLower(alias.Domain)
	for _, d := range uc.opts.LegacyDomains {
		if aliasDomain == d {
			return true
		}
	}
	return false
}

// currentSlug slugs name so that the generated local part never matches a
// legacy prefix; otherwise the next call would migrate it again.
func (uc *AliasUseCase) currentSlug(name string) string {
	slug := Slugify(name, uc.opts.SlugMaxLen)
	usedPlaceholder := slug == placeholderName
	for {
		// The suffix separator is part of the local part, so "user" + "-" counts.
		prefix, ok := uc.legacyPrefix(slug + "-")
		if !ok {
			return slug
		}
		slug = strings.Trim(strings.TrimPrefix(slug+"-", prefix), "-")
		if slug == "" {
			if usedPlaceholder {
				return placeholderName
			}
			slug, usedPlaceholder = placeholderName, true
		}
	}
}

func (uc *AliasUseCase) legacyPrefix(local string) (string, bool) {
	for _, prefix := range uc.opts.LegacyPrefixes {
		if strings.HasPrefix(local, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// GetOrCreateAlias returns the user's active inbound address, creating it or
// migrating a legacy one when needed. Address collisions are retried with a
// fresh suffix up to MaxAttempts times.
func (uc *AliasUseCase) GetOrCreateAlias(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "get or create alias", errors.New("user id is required"))
	}

	current, err := uc.activeAlias(ctx, userID)
	if err != nil {
		return "", err
	}
	if current != nil && !uc.IsLegacy(current) {
		uc.observer.RecordAliasAllocation("existing", 0)
		return current.FullAddress, nil
	}

	profile, err := uc.profiles.GetProfile(ctx, userID)
	if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
		return "", fmt.Errorf("load profile: %w", err)
	}
	slug := uc.currentSlug(AliasBaseName(profile))

	collisions := 0
	for attempt := 1; attempt <= uc.opts.MaxAttempts; attempt++ {
		localPart := slug + "-" + aliasSuffix(uc.newToken())
		candidate := uc.candidate(userID, localPart, current)

		err := uc.write(ctx, candidate, current != nil)
		if err == nil {
			result := "created"
			if current != nil {
				result = "migrated"
				slog.Info("alias_migrated", "user_id", userID, "from", current.FullAddress, "to", candidate.FullAddress)
			}
			uc.observer.RecordAliasAllocation(result, collisions)
			return candidate.FullAddress, nil
		}
		if !domain.IsKind(err, domain.ErrUniqueViolation) {
			uc.observer.RecordAliasAllocation("error", collisions)
			return "", fmt.Errorf("write alias: %w", err)
		}

		collisions++
		slog.Warn("alias_collision", "user_id", userID, "attempt", attempt, "address", candidate.FullAddress)

		if current == nil {
			// A concurrent request may have created the user's alias first.
			winner, err := uc.activeAlias(ctx, userID)
			if err != nil {
				return "", err
			}
			if winner != nil && !uc.IsLegacy(winner) {
				uc.observer.RecordAliasAllocation("existing", collisions)
				return winner.FullAddress, nil
			}
			current = winner
		}
	}

	uc.observer.RecordAliasAllocation("exhausted", collisions)
	return "", domain.WrapError(domain.ErrAliasExhausted, "get or create alias",
		fmt.Errorf("%d attempts collided", uc.opts.MaxAttempts))
}

// ResolveAlias maps an inbound address to the owning user.
func (uc *AliasUseCase) ResolveAlias(ctx context.Context, fullAddress string) (string, error) {
	address := strings.ToLower(strings.TrimSpace(fullAddress))
	if address == "" || !strings.Contains(address, "@") {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve alias", fmt.Errorf("malformed address %q", fullAddress))
	}
	alias, err := uc.aliases.GetActiveByAddress(ctx, address)
	if err != nil {
		return "", err
	}
	return alias.UserID, nil
}

func (uc *AliasUseCase) activeAlias(ctx context.Context, userID string) (*domain.EmailAlias, error) {
	alias, err := uc.aliases.GetActiveByUser(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active alias: %w", err)
	}
	return alias, nil
}

func (uc *AliasUseCase) candidate(userID, localPart string, current *domain.EmailAlias) *domain.EmailAlias {
	now := uc.now()
	alias := &domain.EmailAlias{
		ID:          uuid.NewString(),
		UserID:      userID,
		LocalPart:   localPart,
		Domain:      uc.opts.Domain,
		FullAddress: domain.FullAddress(localPart, uc.opts.Domain),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if current != nil {
		alias.ID = current.ID
		alias.CreatedAt = current.CreatedAt
	}
	return alias
}

func (uc *AliasUseCase) write(ctx context.Context, alias *domain.EmailAlias, existing bool) error {
	if existing {
		return uc.aliases.UpdateAddress(ctx, alias)
	}
	return uc.aliases.Insert(ctx, alias)
}
