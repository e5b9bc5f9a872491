package services

import (
	"time"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"
	"serviceinfo/internal/optlock"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (s *ServicesSuite) auditRecord(serviceID int64, t models.UpdateType) *models.JiraUpdateRecord {
	recs, err := s.store.JiraRecords().ListByService(s.ctx, serviceID)
	s.Require().NoError(err)
	for _, r := range recs {
		if r.UpdateType == t {
			return r
		}
	}
	s.FailNow("audit record missing", "%s for service %d", t, serviceID)
	return nil
}

func (s *ServicesSuite) TestSynchronizeCreatesIssue() {
	svc := s.create("Clinic", nil)
	rec := s.auditRecord(svc.ID, models.UpdateNewService)
	s.Empty(rec.JiraIssueKey)

	out, err := s.jira.Synchronize(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(optlock.Committed, out)

	got, err := s.store.JiraRecords().Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("SI-1", got.JiraIssueKey)
	s.True(got.Synced())
	s.Equal([]string{"New service from Helping Hands"}, s.tracker.summary)
	s.Equal([]string{"Details here:\nhttps://example.org" + svc.AdminEditPath()}, s.tracker.desc)

	// Already keyed: nothing to do.
	out, err = s.jira.Synchronize(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(optlock.NotClaimed, out)
	s.EqualValues(1, s.tracker.calls.Load())
	s.InDelta(1, testutil.ToFloat64(s.metrics.TicketSync.WithLabelValues("committed")), 0)
}

func (s *ServicesSuite) TestSynchronizeChangeSummary() {
	d1 := s.create("Clinic", nil)
	_, err := s.records.Approve(s.ctx, d1.ID)
	s.Require().NoError(err)
	d2 := s.create("Clinic v2", &d1.ID)

	_, err = s.jira.Synchronize(s.ctx, s.auditRecord(d2.ID, models.UpdateChangeService).ID)
	s.Require().NoError(err)
	s.Equal([]string{"Changed service from Helping Hands"}, s.tracker.summary)
}

func (s *ServicesSuite) TestConcurrentSynchronizeCallsTrackerOnce() {
	svc := s.create("Clinic", nil)
	rec := s.auditRecord(svc.ID, models.UpdateNewService)

	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			_, err := s.jira.Synchronize(s.ctx, rec.ID)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	s.EqualValues(1, s.tracker.calls.Load())
	got, err := s.store.JiraRecords().Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("SI-1", got.JiraIssueKey)
}

func (s *ServicesSuite) TestSynchronizeReleasesOnTrackerFailure() {
	svc := s.create("Clinic", nil)
	rec := s.auditRecord(svc.ID, models.UpdateNewService)

	s.tracker.fail.Store(true)
	out, err := s.jira.Synchronize(s.ctx, rec.ID)
	s.Require().Error(err)
	s.Equal(optlock.Released, out)
	got, err := s.store.JiraRecords().Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Empty(got.JiraIssueKey)

	s.tracker.fail.Store(false)
	out, err = s.jira.Synchronize(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(optlock.Committed, out)
	s.EqualValues(2, s.tracker.calls.Load())
}

func (s *ServicesSuite) TestSynchronizeAuditOnlyRecord() {
	svc := s.create("Clinic", nil)
	_, err := s.records.Cancel(s.ctx, s.provider.ID, svc.ID)
	s.Require().NoError(err)
	rec := s.auditRecord(svc.ID, models.UpdateCancelDraftService)

	out, err := s.jira.Synchronize(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(optlock.Released, out)
	s.Zero(s.tracker.calls.Load())

	out, err = s.jira.Synchronize(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(optlock.NotClaimed, out)
}

func (s *ServicesSuite) TestSynchronizePending() {
	a := s.create("Clinic", nil)
	b := s.create("School", nil)
	_, err := s.records.Cancel(s.ctx, s.provider.ID, b.ID)
	s.Require().NoError(err)

	report, err := s.jira.SynchronizePending(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(&SyncReport{Scanned: 2, Committed: 2}, report)
	s.True(s.auditRecord(a.ID, models.UpdateNewService).Synced())
	s.Empty(s.auditRecord(b.ID, models.UpdateCancelDraftService).JiraIssueKey)

	report, err = s.jira.SynchronizePending(s.ctx, 10)
	s.Require().NoError(err)
	s.Zero(report.Scanned)
}

func (s *ServicesSuite) TestCreateSyncsWhenTrackerConfigured() {
	records := NewServiceRecordService(s.store, s.notifier, s.jira, s.metrics, zap.NewNop())
	svc, err := records.Create(s.ctx, s.provider.ID, s.input("Clinic", nil))
	s.Require().NoError(err)
	s.jira.Wait()
	s.Equal("SI-1", s.auditRecord(svc.ID, models.UpdateNewService).JiraIssueKey)

	// A tracker outage leaves the draft in place for the sweep.
	s.tracker.fail.Store(true)
	svc, err = records.Create(s.ctx, s.provider.ID, s.input("School", nil))
	s.Require().NoError(err)
	s.jira.Wait()
	s.Empty(s.auditRecord(svc.ID, models.UpdateNewService).JiraIssueKey)
}

func (s *ServicesSuite) TestCreateDoesNotWaitForTracker() {
	s.tracker.gate = make(chan struct{})
	records := NewServiceRecordService(s.store, s.notifier, s.jira, s.metrics, zap.NewNop())

	svc, err := records.Create(s.ctx, s.provider.ID, s.input("Clinic", nil))
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusDraft, svc.Status)
	s.Zero(s.tracker.calls.Load())

	close(s.tracker.gate)
	s.jira.Wait()
	s.Equal("SI-1", s.auditRecord(svc.ID, models.UpdateNewService).JiraIssueKey)
}

func (s *ServicesSuite) TestSweepReleasesStaleClaims() {
	stranded := s.create("Clinic", nil)
	other := s.create("School", nil)
	strandedRec := s.auditRecord(stranded.ID, models.UpdateNewService)
	otherRec := s.auditRecord(other.ID, models.UpdateNewService)

	// Both records were claimed by workers that never finished. While the
	// claims are young the sweep leaves them alone.
	for _, id := range []int64{strandedRec.ID, otherRec.ID} {
		ok, err := s.store.JiraRecords().SwapIssueKey(s.ctx, id, "", optlock.Sentinel)
		s.Require().NoError(err)
		s.Require().True(ok)
	}

	report, err := s.jira.SynchronizePending(s.ctx, 10)
	s.Require().NoError(err)
	s.Zero(report.Reclaimed)
	s.Zero(report.Scanned)
	s.Equal(optlock.Sentinel, s.auditRecord(stranded.ID, models.UpdateNewService).JiraIssueKey)

	s.jira.now = func() time.Time { return time.Now().Add(StaleClaimAfter + time.Minute) }
	report, err = s.jira.SynchronizePending(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(2, report.Reclaimed)
	s.Equal(2, report.Committed)
	s.True(s.auditRecord(stranded.ID, models.UpdateNewService).Synced())
	s.True(s.auditRecord(other.ID, models.UpdateNewService).Synced())
}
