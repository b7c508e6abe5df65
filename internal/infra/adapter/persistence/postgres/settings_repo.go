package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rfp-radar/internal/domain/entity"
	"rfp-radar/internal/repository"

	"github.com/lib/pq"
)

type EmailSettingsRepo struct {
	db *sql.DB
}

func NewEmailSettingsRepo(db *sql.DB) repository.EmailSettingsRepository {
	return &EmailSettingsRepo{db: db}
}

// Get returns the singleton recipients row. A missing row is represented as
// empty recipient lists so callers never special-case first use.
func (repo *EmailSettingsRepo) Get(ctx context.Context) (*entity.EmailSettings, error) {
	const query = `
SELECT main_recipients, debug_recipients, updated_at
FROM email_settings
WHERE id = 1
LIMIT 1`
	var settings entity.EmailSettings
	err := repo.db.QueryRowContext(ctx, query).
		Scan(pq.Array(&settings.MainRecipients), pq.Array(&settings.DebugRecipients), &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return &entity.EmailSettings{
			MainRecipients:  []string{},
			DebugRecipients: []string{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &settings, nil
}

func (repo *EmailSettingsRepo) Put(ctx context.Context, settings *entity.EmailSettings) error {
	const query = `
INSERT INTO email_settings (id, main_recipients, debug_recipients, updated_at)
VALUES (1, $1, $2, NOW())
ON CONFLICT (id) DO UPDATE SET
	main_recipients  = EXCLUDED.main_recipients,
	debug_recipients = EXCLUDED.debug_recipients,
	updated_at       = NOW()`
	_, err := repo.db.ExecContext(ctx, query,
		pq.Array(settings.MainRecipients), pq.Array(settings.DebugRecipients))
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

type WebsiteRepo struct {
	db *sql.DB
}

func NewWebsiteRepo(db *sql.DB) repository.WebsiteRepository {
	return &WebsiteRepo{db: db}
}

func (repo *WebsiteRepo) Get(ctx context.Context, id int64) (*entity.WebsiteSettings, error) {
	const query = `
SELECT id, name, url, enabled, kind, created_at
FROM website_settings
WHERE id = $1
LIMIT 1`
	var site entity.WebsiteSettings
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&site.ID, &site.Name, &site.URL, &site.Enabled, &site.Kind, &site.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &site, nil
}

func (repo *WebsiteRepo) List(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	const query = `
SELECT id, name, url, enabled, kind, created_at
FROM website_settings
ORDER BY id`
	return repo.queryList(ctx, query)
}

// ListEnabled returns the crawl set in id order; the dispatcher processes
// sites in exactly this order.
func (repo *WebsiteRepo) ListEnabled(ctx context.Context) ([]*entity.WebsiteSettings, error) {
	const query = `
SELECT id, name, url, enabled, kind, created_at
FROM website_settings
WHERE enabled = TRUE
ORDER BY id`
	return repo.queryList(ctx, query)
}

func (repo *WebsiteRepo) queryList(ctx context.Context, query string) ([]*entity.WebsiteSettings, error) {
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queryList: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sites := make([]*entity.WebsiteSettings, 0, 20)
	for rows.Next() {
		var site entity.WebsiteSettings
		if err := rows.Scan(&site.ID, &site.Name, &site.URL,
			&site.Enabled, &site.Kind, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("queryList: Scan: %w", err)
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

func (repo *WebsiteRepo) Create(ctx context.Context, site *entity.WebsiteSettings) error {
	if err := site.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO website_settings (name, url, enabled, kind, created_at)
VALUES ($1, $2, $3, $4, NOW())
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		site.Name, site.URL, site.Enabled, site.Kind).
		Scan(&site.ID, &site.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *WebsiteRepo) Update(ctx context.Context, site *entity.WebsiteSettings) error {
	if err := site.Validate(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	const query = `
UPDATE website_settings SET
       name    = $1,
       url     = $2,
       enabled = $3,
       kind    = $4
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query,
		site.Name, site.URL, site.Enabled, site.Kind, site.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *WebsiteRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM website_settings WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
