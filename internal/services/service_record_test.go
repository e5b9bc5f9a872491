package services

import (
	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"
)

func (s *ServicesSuite) TestVersioningScenario() {
	d1 := s.create("Clinic", nil)
	s.Equal(lifecycle.StatusDraft, d1.Status)
	s.Nil(d1.UpdateOfID)

	d1, err := s.records.Approve(s.ctx, d1.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCurrent, d1.Status)
	s.Nil(d1.UpdateOfID)

	d2 := s.create("Clinic v2", &d1.ID)
	s.Require().NotNil(d2.UpdateOfID)
	s.Equal(d1.ID, *d2.UpdateOfID)

	_, err = s.records.Approve(s.ctx, d2.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusArchived, s.reload(d1.ID).Status)
	d2 = s.reload(d2.ID)
	s.Equal(lifecycle.StatusCurrent, d2.Status)
	s.Nil(d2.UpdateOfID)

	d3 := s.create("Clinic v3", &d2.ID)
	d4 := s.create("Clinic v3b", &d2.ID)

	s.Equal(lifecycle.StatusArchived, s.reload(d3.ID).Status)
	s.Equal(lifecycle.StatusDraft, s.reload(d4.ID).Status)
	s.Equal(lifecycle.StatusCurrent, s.reload(d2.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateChangeService, models.UpdateCancelDraftService}, s.auditTypes(d3.ID))
	s.Equal([]models.UpdateType{models.UpdateChangeService}, s.auditTypes(d4.ID))
	s.Equal([]models.UpdateType{models.UpdateNewService}, s.auditTypes(d1.ID))
}

func (s *ServicesSuite) TestApproveLeavesOneCurrentPerLineage() {
	d1 := s.create("Clinic", nil)
	_, err := s.records.Approve(s.ctx, d1.ID)
	s.Require().NoError(err)

	d2 := s.create("Clinic v2", &d1.ID)
	_, err = s.records.Approve(s.ctx, d2.ID)
	s.Require().NoError(err)

	current, _, err := s.store.Services().ListByStatus(s.ctx, lifecycle.StatusCurrent, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(current, 1)
	s.Equal(d2.ID, current[0].ID)

	s.Equal("approved", s.notifier.last().kind)
	s.Equal(d2.APIPath(), s.notifier.last().id)
}

func (s *ServicesSuite) TestEditOfBareDraftReplacesIt() {
	d1 := s.create("Clinic", nil)
	d2 := s.create("Clinic fixed", &d1.ID)

	s.Nil(d2.UpdateOfID)
	s.Equal(lifecycle.StatusArchived, s.reload(d1.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateNewService, models.UpdateCancelDraftService}, s.auditTypes(d1.ID))
	s.Equal([]models.UpdateType{models.UpdateNewService}, s.auditTypes(d2.ID))
}

func (s *ServicesSuite) TestEditOfRejectedFallsThrough() {
	d1 := s.create("Clinic", nil)
	_, err := s.records.Reject(s.ctx, d1.ID)
	s.Require().NoError(err)

	d2 := s.create("Clinic again", &d1.ID)
	s.Require().NotNil(d2.UpdateOfID)
	s.Equal(d1.ID, *d2.UpdateOfID)
	s.Equal(lifecycle.StatusRejected, s.reload(d1.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateChangeService}, s.auditTypes(d2.ID))
}

func (s *ServicesSuite) TestCreateKeepsSelectionCriteria() {
	in := s.input("Clinic", nil)
	in.SelectionCriteria = []CriterionInput{{TextEN: "Under 18"}, {TextFR: "Femmes"}}
	svc, err := s.records.Create(s.ctx, s.provider.ID, in)
	s.Require().NoError(err)

	got := s.reload(svc.ID)
	s.Require().Len(got.SelectionCriteria, 2)
	s.Equal("Under 18", got.SelectionCriteria[0].TextEN)
	s.Equal("Femmes", got.SelectionCriteria[1].Text("en"))
}

func (s *ServicesSuite) TestRejectClearsUpdateOf() {
	d1 := s.create("Clinic", nil)
	_, err := s.records.Approve(s.ctx, d1.ID)
	s.Require().NoError(err)
	d2 := s.create("Clinic v2", &d1.ID)

	d2, err = s.records.Reject(s.ctx, d2.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusRejected, d2.Status)
	s.Nil(s.reload(d2.ID).UpdateOfID)
	s.Equal(lifecycle.StatusCurrent, s.reload(d1.ID).Status)
}

func (s *ServicesSuite) TestApproveNonDraftFails() {
	d1 := s.create("Clinic", nil)
	_, err := s.records.Approve(s.ctx, d1.ID)
	s.Require().NoError(err)

	_, err = s.records.Approve(s.ctx, d1.ID)
	s.ErrorIs(err, lifecycle.ErrInvalidTransition)
	_, err = s.records.Reject(s.ctx, d1.ID)
	s.ErrorIs(err, lifecycle.ErrInvalidTransition)
	s.Equal(lifecycle.StatusCurrent, s.reload(d1.ID).Status)
}

func (s *ServicesSuite) TestCancelWritesAuditByPreviousStatus() {
	draft := s.create("Draft", nil)
	_, err := s.records.Cancel(s.ctx, s.provider.ID, draft.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCanceled, s.reload(draft.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateNewService, models.UpdateCancelDraftService}, s.auditTypes(draft.ID))

	live := s.create("Live", nil)
	_, err = s.records.Approve(s.ctx, live.ID)
	s.Require().NoError(err)
	_, err = s.records.Cancel(s.ctx, s.provider.ID, live.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCanceled, s.reload(live.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateNewService, models.UpdateCancelCurrentService}, s.auditTypes(live.ID))
}

func (s *ServicesSuite) TestCancelFromTerminalStateIsRefused() {
	svc := s.create("Clinic", nil)
	_, err := s.records.Reject(s.ctx, svc.ID)
	s.Require().NoError(err)

	_, err = s.records.Cancel(s.ctx, s.provider.ID, svc.ID)
	s.ErrorIs(err, lifecycle.ErrInvalidTransition)
	s.Equal(lifecycle.StatusRejected, s.reload(svc.ID).Status)
	s.Equal([]models.UpdateType{models.UpdateNewService}, s.auditTypes(svc.ID))
}

func (s *ServicesSuite) TestCancelOtherProvidersService() {
	svc := s.create("Clinic", nil)
	other := s.seedProvider("other@example.org", "Other")

	_, err := s.records.Cancel(s.ctx, other.ID, svc.ID)
	s.ErrorIs(err, repository.ErrNotFound)
	s.Equal(lifecycle.StatusDraft, s.reload(svc.ID).Status)
}

func (s *ServicesSuite) TestCreateValidation() {
	_, err := s.records.Create(s.ctx, s.provider.ID, ServiceInput{})
	verr := s.requireFieldError(err, "type")
	s.Contains(verr.Fields, "area_of_service")
	s.Contains(verr.Fields, "name_en")
	s.Equal([]string{msgBlank}, verr.Fields["type"])

	in := s.input("Clinic", nil)
	in.TypeID = 999
	lat := 33.9
	in.Latitude = &lat
	open, closing := "17:00", "09:00"
	in.MondayOpen, in.MondayClose = &open, &closing
	bad := "25:99"
	in.TuesdayOpen = &bad
	_, err = s.records.Create(s.ctx, s.provider.ID, in)
	verr = s.requireFieldError(err, "type")
	s.Equal([]string{msgDoesNotExist}, verr.Fields["type"])
	s.Contains(verr.Fields, "location")
	s.Contains(verr.Fields, "monday_close")
	s.Contains(verr.Fields, "tuesday_open")
	s.Contains(verr.Fields, "tuesday_close")

	in = s.input("Clinic", nil)
	in.SelectionCriteria = []CriterionInput{{TextEN: string(make([]byte, 101))}}
	_, err = s.records.Create(s.ctx, s.provider.ID, in)
	s.requireFieldError(err, "selection_criteria[0].text_en")

	all, err := s.store.Services().ListByProvider(s.ctx, s.provider.ID)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ServicesSuite) TestCreateRejectsForeignUpdateOf() {
	other := s.seedProvider("other@example.org", "Other")
	theirs, err := s.records.Create(s.ctx, other.ID, s.input("Theirs", nil))
	s.Require().NoError(err)

	_, err = s.records.Create(s.ctx, s.provider.ID, s.input("Mine", &theirs.ID))
	s.requireFieldError(err, "update_of")
	s.Equal(lifecycle.StatusDraft, s.reload(theirs.ID).Status)

	missing := int64(404)
	_, err = s.records.Create(s.ctx, s.provider.ID, s.input("Mine", &missing))
	s.requireFieldError(err, "update_of")
}

func (s *ServicesSuite) TestPublicGetHidesNonCurrent() {
	svc := s.create("Clinic", nil)
	_, err := s.records.Get(s.ctx, svc.ID)
	s.ErrorIs(err, repository.ErrNotFound)

	_, err = s.records.Approve(s.ctx, svc.ID)
	s.Require().NoError(err)
	got, err := s.records.Get(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(svc.ID, got.ID)

	pending, total, err := s.records.ListPending(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Empty(pending)
	s.Zero(total)
}

func (s *ServicesSuite) TestApproveNotifyFailureIsNotReturned() {
	s.notifier.err = repository.ErrConflict
	svc := s.create("Clinic", nil)
	_, err := s.records.Approve(s.ctx, svc.ID)
	s.Require().NoError(err)
	s.Equal(lifecycle.StatusCurrent, s.reload(svc.ID).Status)
}

func (s *ServicesSuite) TestTransitionDecidedOnStaleReadIsRefused() {
	draft := s.create("Clinic", nil)
	stale := s.reload(draft.ID)

	_, err := s.records.Cancel(s.ctx, s.provider.ID, draft.ID)
	s.Require().NoError(err)

	// The approval read the record while it was still a draft.
	err = s.records.transition(s.ctx, s.store, stale, lifecycle.EventApprove)
	s.ErrorIs(err, lifecycle.ErrInvalidTransition)
	s.Equal(lifecycle.StatusCanceled, s.reload(draft.ID).Status)
}
