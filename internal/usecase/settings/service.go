// Package settings provides use cases for digest mail recipient
// configuration. Main recipients receive the run digest; debug recipients
// additionally receive the run log.
package settings

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// maxRecipients caps each recipient list. A digest fan-out beyond this is a
// configuration mistake, not a use case.
const maxRecipients = 50

// PutInput represents the input parameters for replacing the recipient lists.
type PutInput struct {
	MainRecipients  []string
	DebugRecipients []string
}

// Service provides email settings use cases.
// It validates recipient addresses and delegates persistence to the
// repository.
type Service struct {
	Repo repository.EmailSettingsRepository
}

// Get retrieves the recipient configuration. A never-configured system yields
// empty lists, not an error.
func (s *Service) Get(ctx context.Context) (*entity.EmailSettings, error) {
	settings, err := s.Repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get email settings: %w", err)
	}
	return settings, nil
}

// Put replaces both recipient lists and returns the stored configuration.
// Addresses are trimmed, blank entries dropped, and duplicates removed while
// preserving order. Empty lists are allowed and disable the corresponding
// mail.
// Returns a ValidationError if any address does not parse.
func (s *Service) Put(ctx context.Context, in PutInput) (*entity.EmailSettings, error) {
	main, err := normalizeRecipients("mainRecipients", in.MainRecipients)
	if err != nil {
		return nil, err
	}
	debug, err := normalizeRecipients("debugRecipients", in.DebugRecipients)
	if err != nil {
		return nil, err
	}

	settings := &entity.EmailSettings{
		MainRecipients:  main,
		DebugRecipients: debug,
	}
	if err := s.Repo.Put(ctx, settings); err != nil {
		return nil, fmt.Errorf("put email settings: %w", err)
	}
	return settings, nil
}

// normalizeRecipients cleans one recipient list. The returned slice is never
// nil so the JSON encoding stays [] rather than null.
func normalizeRecipients(field string, addrs []string) ([]string, error) {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, raw := range addrs {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		// 表示名付き ("Alice <a@example.com>") は宛先リストでは扱わない
		parsed, err := mail.ParseAddress(addr)
		if err != nil || parsed.Address != addr {
			return nil, &entity.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid address %q", addr),
			}
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	if len(out) > maxRecipients {
		return nil, &entity.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must not exceed %d addresses", maxRecipients),
		}
	}
	return out, nil
}
