package rfp

import (
	"context"
	"errors"
	"fmt"

	"rfp-radar/internal/common/pagination"
	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"
)

// Service provides processed-RFP management use cases.
// It handles business logic for record queries and delegates persistence to
// the repository.
type Service struct {
	Repo repository.RfpRepository
}

// PaginatedResult represents the result of a paginated query.
// It contains both the data and pagination metadata.
type PaginatedResult struct {
	Data       []*entity.ProcessedRfp
	Pagination pagination.Metadata
}

// List retrieves all processed records, newest first.
// Returns an error if the repository operation fails.
func (s *Service) List(ctx context.Context) ([]*entity.ProcessedRfp, error) {
	rfps, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rfps: %w", err)
	}
	return rfps, nil
}

// ListPaginated retrieves processed records with pagination support.
// It calculates the appropriate offset, retrieves the data and total count,
// and returns a PaginatedResult with both data and metadata.
func (s *Service) ListPaginated(ctx context.Context, params pagination.Params) (*PaginatedResult, error) {
	offset := pagination.CalculateOffset(params.Page, params.Limit)

	total, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count rfps: %w", err)
	}

	rfps, err := s.Repo.ListPaginated(ctx, offset, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("list rfps paginated: %w", err)
	}

	return &PaginatedResult{
		Data: rfps,
		Pagination: pagination.Metadata{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: pagination.CalculateTotalPages(total, params.Limit),
		},
	}, nil
}

// Get retrieves a single record by its hash.
// Returns ErrInvalidHash if the key is malformed.
// Returns ErrRfpNotFound if no record exists for the hash.
func (s *Service) Get(ctx context.Context, hash string) (*entity.ProcessedRfp, error) {
	if !validHash(hash) {
		return nil, ErrInvalidHash
	}

	rfp, err := s.Repo.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("get rfp: %w", err)
	}
	if rfp == nil {
		return nil, ErrRfpNotFound
	}
	return rfp, nil
}

// GetPDF retrieves the stored PDF bytes for a record.
// Returns ErrInvalidHash if the key is malformed.
// Returns ErrPDFNotFound if the record is missing or carries no PDF.
func (s *Service) GetPDF(ctx context.Context, hash string) ([]byte, error) {
	if !validHash(hash) {
		return nil, ErrInvalidHash
	}

	pdf, err := s.Repo.GetPDF(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("get rfp pdf: %w", err)
	}
	if len(pdf) == 0 {
		return nil, ErrPDFNotFound
	}
	return pdf, nil
}

// Delete removes a record by its hash.
// Returns ErrInvalidHash if the key is malformed.
// Returns ErrRfpNotFound if no record exists for the hash.
func (s *Service) Delete(ctx context.Context, hash string) error {
	if !validHash(hash) {
		return ErrInvalidHash
	}

	if err := s.Repo.Delete(ctx, hash); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrRfpNotFound
		}
		return fmt.Errorf("delete rfp: %w", err)
	}
	return nil
}

// DeleteAll removes every processed record and returns the number deleted.
// Used by the maintenance CLI to reset discovery state.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	count, err := s.Repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all rfps: %w", err)
	}
	return count, nil
}

// validHash reports whether the key looks like a hex SHA-256 digest.
// 生の URL やパストラバーサル片が鍵として流れ込むのを入口で止める。
func validHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
