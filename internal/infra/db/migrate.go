package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/defaults.sql
var seedDefaultsSQL string

func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS processed_rfps (
    hash           TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    url            TEXT NOT NULL UNIQUE,
    site           TEXT NOT NULL DEFAULT '',
    processed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    detail_content TEXT NOT NULL DEFAULT '',
    ai_summary     TEXT NOT NULL DEFAULT '',
    pdf_content    BYTEA
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS rfp_exclusions (
    hash        TEXT PRIMARY KEY,
    reason      TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    site        TEXT NOT NULL DEFAULT '',
    listing_url TEXT NOT NULL DEFAULT '',
    detail_url  TEXT,
    decided_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS scrape_config (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    enabled        BOOLEAN NOT NULL DEFAULT FALSE,
    interval_hours DOUBLE PRECISION NOT NULL DEFAULT 24,
    next_run_at    TIMESTAMPTZ,
    last_run_at    TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS email_settings (
    id               INTEGER PRIMARY KEY CHECK (id = 1),
    main_recipients  TEXT[] NOT NULL DEFAULT '{}',
    debug_recipients TEXT[] NOT NULL DEFAULT '{}',
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS website_settings (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL,
    enabled    BOOLEAN NOT NULL DEFAULT TRUE,
    kind       TEXT NOT NULL DEFAULT 'html',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	// パフォーマンス最適化: インデックス追加
	indexes := []string{
		// GET /rfps と known-rows クエリで使用
		`CREATE INDEX IF NOT EXISTS idx_processed_rfps_processed_at ON processed_rfps(processed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_rfps_site ON processed_rfps(site)`,
		// 既知行コンテキスト用
		`CREATE INDEX IF NOT EXISTS idx_rfp_exclusions_site_reason ON rfp_exclusions(site, reason)`,
		`CREATE INDEX IF NOT EXISTS idx_rfp_exclusions_decided_at ON rfp_exclusions(decided_at DESC)`,
		// 有効サイト絞り込み用(WHERE enabled = TRUE)
		`CREATE INDEX IF NOT EXISTS idx_website_settings_enabled ON website_settings(enabled) WHERE enabled = TRUE`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// kind制約追加
	// PostgreSQL特有の制約構文のため、エラーを無視(既に存在する場合)
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_website_kind'
    ) THEN
        ALTER TABLE website_settings ADD CONSTRAINT chk_website_kind
        CHECK (kind IN ('html', 'rss'));
    END IF;
END $$;
`)

	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_exclusion_reason'
    ) THEN
        ALTER TABLE rfp_exclusions ADD CONSTRAINT chk_exclusion_reason
        CHECK (reason IN ('out_of_scope', 'expired', 'unknown'));
    END IF;
END $$;
`)

	// pgvector拡張を有効化
	// エラーを無視(既に存在する場合やスーパーユーザー権限がない場合)
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	// rfp_embeddings はベクトル検索のサイドチャネル。pgvector拡張がない
	// 環境ではテーブル作成に失敗するが、パイプライン本体は動作する。
	// Note: vector(1536) matches amazon.titan-embed-text-v2:0 and
	//       text-embedding-3-small output dimensions.
	_, _ = db.Exec(`
CREATE TABLE IF NOT EXISTS rfp_embeddings (
    rfp_hash   TEXT PRIMARY KEY REFERENCES processed_rfps(hash) ON DELETE CASCADE,
    embedding  vector(1536) NOT NULL,
    model      TEXT NOT NULL,
    dimension  INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)

	// IVFFlat ベクトル類似検索インデックス
	// エラーを無視(pgvector拡張がない場合にエラーとなるため)
	// lists=100 は <1M レコードに適した値
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_rfp_embeddings_vector
    ON rfp_embeddings USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	// シングルトン行の初期投入(重複は自動的にスキップ)
	if _, err := db.Exec(seedDefaultsSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown rolls back the embedding side-channel only. The five core
// tables hold operator data and are never dropped automatically.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_rfp_embeddings_vector`,
		`DROP TABLE IF EXISTS rfp_embeddings CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
