// Package postgres implements repository.Store with bun on PostgreSQL and
// PostGIS. The schema lives in internal/database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"serviceinfo/internal/repository"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

type Store struct {
	db   bun.IDB
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Areas() repository.AreaRepository { return areaRepo{s.db} }
func (s *Store) Types() repository.TypeRepository { return typeRepo{s.db} }
func (s *Store) Providers() repository.ProviderRepository { return providerRepo{s.db} }
func (s *Store) Services() repository.ServiceRepository { return serviceRepo{s.db} }
func (s *Store) JiraRecords() repository.JiraRecordRepository { return jiraRepo{s.db} }
func (s *Store) Users() repository.UserRepository { return userRepo{s.db} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: tx, inTx: true})
	})
}

// translate maps driver errors onto the repository sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%s: %w", what, repository.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// affected turns a zero-row update into ErrNotFound.
func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return translate(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}
