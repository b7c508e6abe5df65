package repository

import (
	"context"

	"rfp-radar/internal/domain/entity"
)

type EmailSettingsRepository interface {
	// Get returns the singleton recipients row; a missing row yields empty
	// recipient lists, not an error.
	Get(ctx context.Context) (*entity.EmailSettings, error)
	Put(ctx context.Context, settings *entity.EmailSettings) error
}

type WebsiteRepository interface {
	Get(ctx context.Context, id int64) (*entity.WebsiteSettings, error)
	List(ctx context.Context) ([]*entity.WebsiteSettings, error)
	// ListEnabled returns the crawl set in id order.
	ListEnabled(ctx context.Context) ([]*entity.WebsiteSettings, error)
	Create(ctx context.Context, site *entity.WebsiteSettings) error
	Update(ctx context.Context, site *entity.WebsiteSettings) error
	Delete(ctx context.Context, id int64) error
}
