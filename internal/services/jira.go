package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serviceinfo/internal/jira"
	"serviceinfo/internal/metrics"
	"serviceinfo/internal/models"
	"serviceinfo/internal/optlock"
	"serviceinfo/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StaleClaimAfter is how long a record may hold the claim sentinel before a
// sweep assumes its worker died and puts it back. It must stay well above the
// tracker timeout.
const StaleClaimAfter = 15 * time.Minute

// JiraService pushes audit records to Jira at most once each.
type JiraService struct {
	store       repository.Store
	tracker     jira.Tracker
	siteURL     string
	concurrency int
	metrics     *metrics.Metrics
	logr        *zap.Logger

	now        func() time.Time
	background sync.WaitGroup
}

// NewJiraService returns a service that only claims and releases records
// when tracker is nil.
func NewJiraService(store repository.Store, tracker jira.Tracker, siteURL string, concurrency int, m *metrics.Metrics, logr *zap.Logger) *JiraService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &JiraService{
		store:       store,
		tracker:     tracker,
		siteURL:     siteURL,
		concurrency: concurrency,
		metrics:     m,
		logr:        logr,
		now:         time.Now,
	}
}

func (s *JiraService) Enabled() bool {
	return s.tracker != nil
}

// recordLock adapts a record's jira_issue_key column to optlock.Lock.
type recordLock struct {
	repo repository.JiraRecordRepository
	id   int64
}

func (l recordLock) Claim(ctx context.Context) (bool, error) {
	return l.repo.SwapIssueKey(ctx, l.id, "", optlock.Sentinel)
}

func (l recordLock) Commit(ctx context.Context, key string) error {
	ok, err := l.repo.SwapIssueKey(ctx, l.id, optlock.Sentinel, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %d lost its claim", l.id)
	}
	return nil
}

func (l recordLock) Release(ctx context.Context) error {
	_, err := l.repo.SwapIssueKey(ctx, l.id, optlock.Sentinel, "")
	return err
}

// Synchronize creates the Jira issue for record id. Records that are already
// keyed, or claimed by another worker, are left alone. A failed issue
// creation puts the record back so a later call can retry.
func (s *JiraService) Synchronize(ctx context.Context, id int64) (optlock.Outcome, error) {
	if id == 0 {
		return optlock.NotClaimed, nil
	}
	rec, err := s.store.JiraRecords().Get(ctx, id)
	if err != nil {
		return optlock.NotClaimed, err
	}
	if rec.JiraIssueKey != "" {
		return optlock.NotClaimed, nil
	}

	lock := recordLock{repo: s.store.JiraRecords(), id: id}
	out, err := optlock.Do(ctx, lock, func(ctx context.Context) (string, bool, error) {
		return s.createIssue(ctx, rec)
	})
	s.metrics.Synced(out.String())

	log := s.logr.With(zap.Int64("record_id", id), zap.String("update_type", string(rec.UpdateType)))
	switch {
	case err != nil:
		log.Error("jira sync failed", zap.Error(err))
	case out == optlock.Committed:
		log.Info("jira issue created")
	default:
		log.Debug("jira sync finished", zap.Stringer("outcome", out))
	}
	return out, err
}

// SynchronizeLater runs Synchronize in the background, detached from the
// request that produced the record. Wait blocks until these calls finish.
func (s *JiraService) SynchronizeLater(ctx context.Context, id int64) {
	if !s.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.Synchronize(ctx, id); err != nil {
			s.logr.Warn("jira sync deferred", zap.Int64("record_id", id), zap.Error(err))
		}
	}()
}

// Wait blocks until every SynchronizeLater call has returned.
func (s *JiraService) Wait() {
	s.background.Wait()
}

// createIssue only files tickets for submissions; other update types have
// nothing for staff to act on.
func (s *JiraService) createIssue(ctx context.Context, rec *models.JiraUpdateRecord) (string, bool, error) {
	if s.tracker == nil {
		return "", false, nil
	}

	var kind string
	switch rec.UpdateType {
	case models.UpdateNewService:
		kind = "New"
	case models.UpdateChangeService:
		kind = "Changed"
	default:
		return "", false, nil
	}
	if rec.ServiceID == nil {
		return "", false, fmt.Errorf("record %d has no service", rec.ID)
	}

	svc, err := s.store.Services().Get(ctx, *rec.ServiceID)
	if err != nil {
		return "", false, err
	}
	provider, err := s.store.Providers().Get(ctx, svc.ProviderID)
	if err != nil {
		return "", false, err
	}

	summary := fmt.Sprintf("%s service from %s", kind, provider)
	description := "Details here:\n" + s.siteURL + svc.AdminEditPath()

	start := time.Now()
	key, err := s.tracker.CreateIssue(ctx, summary, description)
	s.metrics.TicketSyncTimer.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

// SyncReport summarizes a sweep.
type SyncReport struct {
	Scanned   int `json:"scanned"`
	Committed int `json:"committed"`
	Released  int `json:"released"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	// Reclaimed counts claims dropped because their worker never finished.
	Reclaimed int `json:"reclaimed"`
}

// SynchronizePending sweeps up to limit unsynced records with bounded
// concurrency. Claims older than StaleClaimAfter are released first so a
// crashed worker cannot strand a record. Individual failures are counted, not
// returned.
func (s *JiraService) SynchronizePending(ctx context.Context, limit int) (*SyncReport, error) {
	reclaimed, err := s.store.JiraRecords().ReleaseStaleClaims(ctx, s.now().Add(-StaleClaimAfter))
	if err != nil {
		return nil, err
	}
	if reclaimed > 0 {
		s.logr.Warn("released stale jira claims", zap.Int("count", reclaimed))
	}

	recs, err := s.store.JiraRecords().ListUnsynced(ctx, limit)
	if err != nil {
		return nil, err
	}

	outcomes := make([]optlock.Outcome, len(recs))
	failed := make([]bool, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range recs {
		g.Go(func() error {
			out, err := s.Synchronize(gctx, rec.ID)
			outcomes[i] = out
			failed[i] = err != nil
			return nil
		})
	}
	_ = g.Wait()

	report := &SyncReport{Scanned: len(recs), Reclaimed: reclaimed}
	for i, out := range outcomes {
		switch {
		case failed[i]:
			report.Failed++
		case out == optlock.Committed:
			report.Committed++
		case out == optlock.Released:
			report.Released++
		default:
			report.Skipped++
		}
	}
	s.logr.Info("jira sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("committed", report.Committed),
		zap.Int("failed", report.Failed),
		zap.Int("reclaimed", report.Reclaimed))
	return report, ctx.Err()
}
