package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"
	"serviceinfo/internal/optlock"
	"serviceinfo/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) insertService(status lifecycle.Status, updateOf *int64) *models.Service {
	svc := &models.Service{ProviderID: 1, TypeID: 1, AreaID: 1, NameEN: "Clinic", Status: status, UpdateOfID: updateOf}
	s.Require().NoError(s.store.Services().Insert(s.ctx, svc))
	return svc
}

func (s *StoreSuite) TestRunInTxRollsBackOnError() {
	boom := errors.New("boom")
	var insertedID int64

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx repository.Store) error {
		svc := &models.Service{ProviderID: 1, NameEN: "Tmp"}
		if err := tx.Services().Insert(ctx, svc); err != nil {
			return err
		}
		insertedID = svc.ID
		s.Require().NoError(tx.JiraRecords().Create(ctx, models.NewServiceRecord(svc.ID, models.UpdateNewService)))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.Services().Get(s.ctx, insertedID)
	s.ErrorIs(err, repository.ErrNotFound)
	recs, err := s.store.JiraRecords().ListByService(s.ctx, insertedID)
	s.Require().NoError(err)
	s.Empty(recs)
}

func (s *StoreSuite) TestRunInTxCommitsAndNests() {
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx repository.Store) error {
		return tx.RunInTx(ctx, func(ctx context.Context, inner repository.Store) error {
			return inner.Services().Insert(ctx, &models.Service{ProviderID: 1, NameEN: "Kept"})
		})
	})
	s.Require().NoError(err)

	got, err := s.store.Services().ListByProvider(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("Kept", got[0].NameEN)
	s.Equal(lifecycle.StatusDraft, got[0].Status)
}

func (s *StoreSuite) TestServiceCriteriaRoundTrip() {
	svc := &models.Service{ProviderID: 1, SelectionCriteria: []*models.SelectionCriterion{{TextEN: "Under 18"}, {TextEN: "Women"}}}
	s.Require().NoError(s.store.Services().Insert(s.ctx, svc))

	got, err := s.store.Services().Get(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Require().Len(got.SelectionCriteria, 2)
	s.Equal(svc.ID, got.SelectionCriteria[0].ServiceID)
	s.Equal("Women", got.SelectionCriteria[1].TextEN)

	got.SelectionCriteria[0].TextEN = "mutated"
	again, err := s.store.Services().Get(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal("Under 18", again.SelectionCriteria[0].TextEN, "reads return copies")
}

func (s *StoreSuite) TestListDraftsForSkipsSelfAndNonDrafts() {
	target := s.insertService(lifecycle.StatusCurrent, nil)
	a := s.insertService(lifecycle.StatusDraft, &target.ID)
	b := s.insertService(lifecycle.StatusDraft, &target.ID)
	s.insertService(lifecycle.StatusArchived, &target.ID)
	s.insertService(lifecycle.StatusDraft, nil)

	drafts, err := s.store.Services().ListDraftsFor(s.ctx, target.ID, b.ID)
	s.Require().NoError(err)
	s.Require().Len(drafts, 1)
	s.Equal(a.ID, drafts[0].ID)
}

func (s *StoreSuite) TestUpdateStatusOnlyTouchesLifecycleColumns() {
	svc := s.insertService(lifecycle.StatusDraft, nil)
	svc.Status = lifecycle.StatusCurrent
	svc.NameEN = "ignored"
	s.Require().NoError(s.store.Services().UpdateStatus(s.ctx, svc, lifecycle.StatusDraft))

	got, err := s.store.Services().Get(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCurrent, got.Status)
	s.Equal("Clinic", got.NameEN)

	err = s.store.Services().UpdateStatus(s.ctx, &models.Service{ID: 999}, lifecycle.StatusDraft)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *StoreSuite) TestUpdateStatusRejectsStalePriorStatus() {
	svc := s.insertService(lifecycle.StatusDraft, nil)

	// Another writer cancels the draft first.
	canceled := *svc
	canceled.Status = lifecycle.StatusCanceled
	s.Require().NoError(s.store.Services().UpdateStatus(s.ctx, &canceled, lifecycle.StatusDraft))

	// An approval decided on the earlier read must not land.
	svc.Status = lifecycle.StatusCurrent
	err := s.store.Services().UpdateStatus(s.ctx, svc, lifecycle.StatusDraft)
	s.ErrorIs(err, lifecycle.ErrInvalidTransition)

	got, err := s.store.Services().Get(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCanceled, got.Status)
}

func (s *StoreSuite) TestListCurrentFilters() {
	a := &models.Service{ProviderID: 1, TypeID: 1, AreaID: 10, NameEN: "Mobile clinic", Status: lifecycle.StatusCurrent}
	b := &models.Service{ProviderID: 2, TypeID: 2, AreaID: 11, NameFR: "École", Status: lifecycle.StatusCurrent}
	c := &models.Service{ProviderID: 1, TypeID: 1, AreaID: 10, NameEN: "Draft clinic", Status: lifecycle.StatusDraft}
	for _, svc := range []*models.Service{a, b, c} {
		s.Require().NoError(s.store.Services().Insert(s.ctx, svc))
	}

	all, total, err := s.store.Services().ListCurrent(s.ctx, models.ServiceQueryParams{})
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(2, total)

	byType, _, err := s.store.Services().ListCurrent(s.ctx, models.ServiceQueryParams{TypeIDs: []int64{2}})
	s.Require().NoError(err)
	s.Require().Len(byType, 1)
	s.Equal(b.ID, byType[0].ID)

	byText, _, err := s.store.Services().ListCurrent(s.ctx, models.ServiceQueryParams{Text: "CLINIC", AreaIDs: []int64{10, 11}})
	s.Require().NoError(err)
	s.Require().Len(byText, 1)
	s.Equal(a.ID, byText[0].ID)

	paged, total, err := s.store.Services().ListCurrent(s.ctx, models.ServiceQueryParams{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(paged, 1)
	s.Equal(b.ID, paged[0].ID)
	s.Equal(2, total, "total counts every match, not the page")
}

func (s *StoreSuite) TestJiraRecordUniquenessAndValidation() {
	repo := s.store.JiraRecords()
	s.Require().NoError(repo.Create(s.ctx, models.NewServiceRecord(1, models.UpdateNewService)))
	s.Require().NoError(repo.Create(s.ctx, models.NewServiceRecord(1, models.UpdateCancelDraftService)))

	err := repo.Create(s.ctx, models.NewServiceRecord(1, models.UpdateNewService))
	s.ErrorIs(err, repository.ErrConflict)

	err = repo.Create(s.ctx, &models.JiraUpdateRecord{UpdateType: models.UpdateNewService})
	s.ErrorIs(err, models.ErrInvalidJiraRecord)

	s.Require().NoError(repo.Create(s.ctx, models.NewProviderRecord(5)))
	s.Require().NoError(repo.Create(s.ctx, models.NewProviderRecord(5)), "provider changes may repeat")
}

func (s *StoreSuite) TestSwapIssueKeyIsConditional() {
	repo := s.store.JiraRecords()
	rec := models.NewServiceRecord(1, models.UpdateNewService)
	s.Require().NoError(repo.Create(s.ctx, rec))

	ok, err := repo.SwapIssueKey(s.ctx, rec.ID, "", optlock.Sentinel)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = repo.SwapIssueKey(s.ctx, rec.ID, "", optlock.Sentinel)
	s.Require().NoError(err)
	s.False(ok)

	unsynced, err := repo.ListUnsynced(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(unsynced, "claimed rows are not listed")

	ok, err = repo.SwapIssueKey(s.ctx, 999, "", optlock.Sentinel)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreSuite) TestSwapIssueKeyConcurrentClaims() {
	repo := s.store.JiraRecords()
	rec := models.NewServiceRecord(1, models.UpdateNewService)
	s.Require().NoError(repo.Create(s.ctx, rec))

	wins := make(chan struct{}, 32)
	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			ok, err := repo.SwapIssueKey(s.ctx, rec.ID, "", optlock.Sentinel)
			if ok {
				wins <- struct{}{}
			}
			return err
		})
	}
	s.Require().NoError(g.Wait())
	close(wins)
	s.Len(wins, 1)
}

func (s *StoreSuite) TestContaining() {
	parent := &models.ServiceArea{NameEN: "Country", Region: json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`)}
	s.Require().NoError(s.store.Areas().Create(s.ctx, parent))
	child := &models.ServiceArea{NameEN: "City", ParentID: &parent.ID, Region: json.RawMessage(`{"type":"Polygon","coordinates":[[[1,1],[3,1],[3,3],[1,3],[1,1]]]}`)}
	s.Require().NoError(s.store.Areas().Create(s.ctx, child))
	s.Require().NoError(s.store.Areas().Create(s.ctx, &models.ServiceArea{NameEN: "No region"}))

	inside, err := s.store.Areas().Containing(s.ctx, 2, 2)
	s.Require().NoError(err)
	s.Len(inside, 2)

	outer, err := s.store.Areas().Containing(s.ctx, 8, 8)
	s.Require().NoError(err)
	s.Require().Len(outer, 1)
	s.Equal(parent.ID, outer[0].ID)

	roots, err := s.store.Areas().List(s.ctx, models.ServiceAreaQueryParams{RootsOnly: true})
	s.Require().NoError(err)
	s.Len(roots, 2)

	children, err := s.store.Areas().List(s.ctx, models.ServiceAreaQueryParams{ParentID: parent.ID})
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal(child.ID, children[0].ID)

	err = s.store.Areas().Create(s.ctx, &models.ServiceArea{Region: json.RawMessage(`{"type":"Point"}`)})
	s.Error(err)
}

func (s *StoreSuite) TestUsers() {
	repo := s.store.Users()
	u := &models.User{Email: "org@example.com", ActivationKey: "k1"}
	s.Require().NoError(repo.Create(s.ctx, u))
	s.NotEqual(uuid.Nil, u.ID)

	s.ErrorIs(repo.Create(s.ctx, &models.User{Email: "ORG@example.com"}), repository.ErrConflict)

	got, err := repo.GetByActivationKey(s.ctx, "k1")
	s.Require().NoError(err)
	s.Require().NoError(repo.Activate(s.ctx, got.ID))

	_, err = repo.GetByActivationKey(s.ctx, "k1")
	s.ErrorIs(err, repository.ErrNotFound)
	_, err = repo.GetByActivationKey(s.ctx, "")
	s.ErrorIs(err, repository.ErrNotFound)

	s.Require().NoError(repo.IncrementTokenVersion(s.ctx, u.ID))
	s.Require().NoError(repo.TouchLastLogin(s.ctx, u.ID))
	got, err = repo.GetByEmail(s.ctx, "org@example.com")
	s.Require().NoError(err)
	s.True(got.IsActive)
	s.Equal(1, got.TokenVersion)
	s.NotNil(got.LastLoginAt)
}

func (s *StoreSuite) TestProviders() {
	repo := s.store.Providers()
	uid := uuid.New()
	p := &models.Provider{NameEN: "Org", UserID: uid}
	s.Require().NoError(repo.Create(s.ctx, p))
	s.ErrorIs(repo.Create(s.ctx, &models.Provider{UserID: uid}), repository.ErrConflict)

	p.NameEN = "Org 2"
	p.UserID = uuid.New()
	s.Require().NoError(repo.Update(s.ctx, p))

	got, err := repo.GetByUserID(s.ctx, uid)
	s.Require().NoError(err)
	s.Equal("Org 2", got.NameEN, "user link cannot be changed by Update")
}
