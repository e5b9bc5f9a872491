// Package memory is an in-process repository.Store for tests and STORE=memory
// development runs. Writes are serialized; a transaction holds the write lock
// for its whole duration and restores a snapshot when fn fails. Reads never
// block on an open transaction and may observe its uncommitted writes.
package memory

import (
	"context"
	"maps"
	"sync"

	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"

	"github.com/google/uuid"
)

type tables struct {
	areas         map[int64]models.ServiceArea
	serviceTypes  map[int64]models.ServiceType
	providerTypes map[int64]models.ProviderType
	providers     map[int64]models.Provider
	services      map[int64]models.Service
	criteria      map[int64][]models.SelectionCriterion
	jira          map[int64]models.JiraUpdateRecord
	users         map[uuid.UUID]models.User
}

func (t tables) clone() tables {
	return tables{
		areas:         maps.Clone(t.areas),
		serviceTypes:  maps.Clone(t.serviceTypes),
		providerTypes: maps.Clone(t.providerTypes),
		providers:     maps.Clone(t.providers),
		services:      maps.Clone(t.services),
		criteria:      maps.Clone(t.criteria),
		jira:          maps.Clone(t.jira),
		users:         maps.Clone(t.users),
	}
}

type state struct {
	txMu sync.Mutex // held by a transaction or a single write

	mu   sync.RWMutex
	data tables
	seq  map[string]int64 // sequences are not rolled back, as in postgres
}

// Store implements repository.Store in memory.
type Store struct {
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New constructs an empty store.
func New() *Store {
	return &Store{st: &state{
		data: tables{
			areas:         make(map[int64]models.ServiceArea),
			serviceTypes:  make(map[int64]models.ServiceType),
			providerTypes: make(map[int64]models.ProviderType),
			providers:     make(map[int64]models.Provider),
			services:      make(map[int64]models.Service),
			criteria:      make(map[int64][]models.SelectionCriterion),
			jira:          make(map[int64]models.JiraUpdateRecord),
			users:         make(map[uuid.UUID]models.User),
		},
		seq: make(map[string]int64),
	}}
}

func (s *Store) Areas() repository.AreaRepository { return areaRepo{s} }
func (s *Store) Types() repository.TypeRepository { return typeRepo{s} }
func (s *Store) Providers() repository.ProviderRepository { return providerRepo{s} }
func (s *Store) Services() repository.ServiceRepository { return serviceRepo{s} }
func (s *Store) JiraRecords() repository.JiraRecordRepository { return jiraRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snapshot := s.st.data.clone()
	s.st.mu.RUnlock()

	if err := fn(ctx, &Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.data = snapshot
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// write runs fn under the write lock. Outside a transaction it also takes
// txMu so a single write cannot interleave with a running transaction.
func (s *Store) write(fn func(t *tables) error) error {
	if !s.inTx {
		s.st.txMu.Lock()
		defer s.st.txMu.Unlock()
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return fn(&s.st.data)
}

func (s *Store) read(fn func(t *tables)) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	fn(&s.st.data)
}

// next must be called under the write lock.
func (s *Store) next(table string) int64 {
	s.st.seq[table]++
	return s.st.seq[table]
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
