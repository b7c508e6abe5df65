package website

import (
	"context"
	"fmt"
	"time"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// CreateInput represents the input parameters for registering a new site.
// Kind defaults to html when empty.
type CreateInput struct {
	Name string
	URL  string
	Kind string
}

// UpdateInput represents the input parameters for updating an existing site.
// Empty string fields and a nil Enabled field will not be updated.
type UpdateInput struct {
	ID      int64
	Name    string
	URL     string
	Kind    string
	Enabled *bool
}

// Service provides website management use cases.
// It handles business logic for the crawl set and delegates persistence to
// the repository.
type Service struct {
	Repo repository.WebsiteRepository
}

// List retrieves all configured sites.
// Returns an error if the repository operation fails.
func (s *Service) List(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	sites, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	return sites, nil
}

// ListEnabled retrieves the active crawl set in id order.
// Returns an error if the repository operation fails.
func (s *Service) ListEnabled(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	sites, err := s.Repo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled websites: %w", err)
	}
	return sites, nil
}

// Get retrieves a single site by its ID.
// Returns a ValidationError if the ID is not positive.
// Returns ErrWebsiteNotFound if the site does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.WebsiteSettings, error) {
	if id <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	site, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	if site == nil {
		return nil, ErrWebsiteNotFound
	}
	return site, nil
}

// Create registers a new site with the provided input. New sites start
// enabled.
// Returns a ValidationError if any input field is invalid.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.WebsiteSettings, error) {
	site := &entity.WebsiteSettings{
		Name:      in.Name,
		URL:       in.URL,
		Kind:      in.Kind,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("create website: %w", err)
	}
	return site, nil
}

// Update modifies an existing site with the provided input.
// Empty string fields and a nil Enabled field will not be updated.
// Returns ErrWebsiteNotFound if the site does not exist.
// Returns a ValidationError if any updated field is invalid.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*entity.WebsiteSettings, error) {
	if in.ID <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	site, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("get website: %w", err)
	}
	if site == nil {
		return nil, ErrWebsiteNotFound
	}

	if in.Name != "" {
		site.Name = in.Name
	}
	if in.URL != "" {
		site.URL = in.URL
	}
	if in.Kind != "" {
		site.Kind = in.Kind
	}
	if in.Enabled != nil {
		site.Enabled = *in.Enabled
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("update website: %w", err)
	}
	return site, nil
}

// Delete removes a site by its ID. Processed rows and exclusions keyed to the
// site remain untouched.
// Returns a ValidationError if the ID is not positive.
// Returns an error if the repository operation fails.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	return nil
}
