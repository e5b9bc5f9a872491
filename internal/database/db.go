package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"serviceinfo/internal/config"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// sessionParams are SET on every new pooled connection. Transitions run in
// short transactions; a stuck one should not hold row locks.
var sessionParams = map[string]string{
	"statement_timeout":                   "30s",
	"idle_in_transaction_session_timeout": "60s",
}

func newConnector(cfg *config.Config) *pgdriver.Connector {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DatabaseURL),
		pgdriver.WithTimeout(30*time.Second),
		pgdriver.WithDialTimeout(10*time.Second),
		pgdriver.WithReadTimeout(30*time.Second),
		pgdriver.WithWriteTimeout(15*time.Second),
	)

	// Values given in the DSN query string win.
	conf := connector.Config()
	if conf.ConnParams == nil {
		conf.ConnParams = make(map[string]interface{}, len(sessionParams))
	}
	for k, v := range sessionParams {
		if _, ok := conf.ConnParams[k]; !ok {
			conf.ConnParams[k] = v
		}
	}
	return connector
}

// New connects to Postgres and returns a Bun DB handle.
func New(cfg *config.Config) (*bun.DB, error) {
	sqldb := sql.OpenDB(newConnector(cfg))
	db := bun.NewDB(sqldb, pgdialect.New())

	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(10)
	sqldb.SetConnMaxLifetime(5 * time.Minute)
	sqldb.SetConnMaxIdleTime(10 * time.Minute)

	if cfg.BunDebug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
