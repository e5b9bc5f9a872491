package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Geometry columns are generated from the plain lat/lng and GeoJSON columns
// the models carry, so bun never scans PostGIS types.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		token_version INT NOT NULL DEFAULT 0,
		roles TEXT[] DEFAULT '{}',
		provider TEXT NOT NULL DEFAULT 'local',
		name TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		activation_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower ON users (lower(email))`,
	`CREATE INDEX IF NOT EXISTS users_activation_key ON users (activation_key) WHERE activation_key <> ''`,

	`CREATE TABLE IF NOT EXISTS service_areas (
		id BIGSERIAL PRIMARY KEY,
		name_en TEXT NOT NULL DEFAULT '',
		name_ar TEXT NOT NULL DEFAULT '',
		name_fr TEXT NOT NULL DEFAULT '',
		parent_id BIGINT REFERENCES service_areas(id) ON DELETE SET NULL,
		region_geojson JSONB,
		region geometry(Geometry, 4326) GENERATED ALWAYS AS
			(ST_SetSRID(ST_GeomFromGeoJSON(region_geojson::text), 4326)) STORED
	)`,
	`CREATE INDEX IF NOT EXISTS service_areas_parent ON service_areas (parent_id)`,
	`CREATE INDEX IF NOT EXISTS service_areas_region ON service_areas USING GIST (region)`,

	`CREATE TABLE IF NOT EXISTS service_types (
		id BIGSERIAL PRIMARY KEY,
		number INT NOT NULL UNIQUE,
		name_en TEXT NOT NULL DEFAULT '',
		name_ar TEXT NOT NULL DEFAULT '',
		name_fr TEXT NOT NULL DEFAULT '',
		comments_en TEXT NOT NULL DEFAULT '',
		comments_ar TEXT NOT NULL DEFAULT '',
		comments_fr TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS provider_types (
		id BIGSERIAL PRIMARY KEY,
		number INT NOT NULL UNIQUE,
		name_en TEXT NOT NULL DEFAULT '',
		name_ar TEXT NOT NULL DEFAULT '',
		name_fr TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS providers (
		id BIGSERIAL PRIMARY KEY,
		name_en TEXT NOT NULL DEFAULT '',
		name_ar TEXT NOT NULL DEFAULT '',
		name_fr TEXT NOT NULL DEFAULT '',
		type_id BIGINT NOT NULL REFERENCES provider_types(id),
		phone_number TEXT NOT NULL,
		website TEXT NOT NULL DEFAULT '',
		description_en TEXT NOT NULL DEFAULT '',
		description_ar TEXT NOT NULL DEFAULT '',
		description_fr TEXT NOT NULL DEFAULT '',
		user_id UUID NOT NULL UNIQUE REFERENCES users(id),
		number_of_monthly_beneficiaries INT NOT NULL CHECK (number_of_monthly_beneficiaries >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS services (
		id BIGSERIAL PRIMARY KEY,
		provider_id BIGINT NOT NULL REFERENCES providers(id),
		type_id BIGINT NOT NULL REFERENCES service_types(id),
		area_id BIGINT NOT NULL REFERENCES service_areas(id),
		name_en TEXT NOT NULL DEFAULT '',
		name_ar TEXT NOT NULL DEFAULT '',
		name_fr TEXT NOT NULL DEFAULT '',
		description_en TEXT NOT NULL DEFAULT '',
		description_ar TEXT NOT NULL DEFAULT '',
		description_fr TEXT NOT NULL DEFAULT '',
		additional_info_en TEXT NOT NULL DEFAULT '',
		additional_info_ar TEXT NOT NULL DEFAULT '',
		additional_info_fr TEXT NOT NULL DEFAULT '',
		cost_of_service TEXT NOT NULL DEFAULT '',
		sunday_open TIME, sunday_close TIME,
		monday_open TIME, monday_close TIME,
		tuesday_open TIME, tuesday_close TIME,
		wednesday_open TIME, wednesday_close TIME,
		thursday_open TIME, thursday_close TIME,
		friday_open TIME, friday_close TIME,
		saturday_open TIME, saturday_close TIME,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		location geometry(Point, 4326) GENERATED ALWAYS AS
			(ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)) STORED,
		status TEXT NOT NULL DEFAULT 'draft'
			CHECK (status IN ('draft', 'current', 'rejected', 'canceled', 'archived')),
		update_of_id BIGINT REFERENCES services(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS services_status ON services (status)`,
	`CREATE INDEX IF NOT EXISTS services_provider ON services (provider_id)`,
	`CREATE INDEX IF NOT EXISTS services_update_of ON services (update_of_id) WHERE status = 'draft'`,
	`CREATE INDEX IF NOT EXISTS services_location ON services USING GIST (location)`,

	`CREATE TABLE IF NOT EXISTS selection_criteria (
		id BIGSERIAL PRIMARY KEY,
		service_id BIGINT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		text_en TEXT NOT NULL DEFAULT '',
		text_fr TEXT NOT NULL DEFAULT '',
		text_ar TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS selection_criteria_service ON selection_criteria (service_id)`,

	`CREATE TABLE IF NOT EXISTS jira_update_records (
		id BIGSERIAL PRIMARY KEY,
		service_id BIGINT REFERENCES services(id),
		provider_id BIGINT REFERENCES providers(id),
		update_type TEXT NOT NULL,
		jira_issue_key TEXT NOT NULL DEFAULT '',
		claimed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK ((service_id IS NULL) <> (provider_id IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS jira_update_records_service_type
		ON jira_update_records (service_id, update_type) WHERE service_id IS NOT NULL`,
	`ALTER TABLE jira_update_records ADD COLUMN IF NOT EXISTS claimed_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS jira_update_records_unsynced
		ON jira_update_records (id) WHERE jira_issue_key = ''`,
}

// EnsureSchema creates the tables and indexes the bun store needs. Every
// statement is idempotent, so it runs on each start.
func EnsureSchema(ctx context.Context, db bun.IDB, log *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
		log.Debug("schema statement applied", zap.Int("idx", i))
	}
	log.Info("database schema ready", zap.Int("statements", len(schema)))
	return nil
}
