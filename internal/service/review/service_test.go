package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository/memstore"
	"sciencehub/internal/testutil"
)

type env struct {
	store      *memstore.Store
	svc        *Service
	company    caller.Caller
	researcher caller.Caller
}

func newEnv(t *testing.T, status model.ApplicationStatus) env {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	company := testutil.Company(t, store, "co", "Acme")
	researcher := testutil.Researcher(t, store, "re", "Ada", "Lovelace")

	require.NoError(t, store.CreateProject(ctx, &model.Project{ID: "p1", CompanyID: company.CompanyID, Title: "Genome", Status: model.ProjectPublished}))
	require.NoError(t, store.CreateApplication(ctx, &model.Application{ID: "a1", ProjectID: "p1", ResearcherID: researcher.ResearcherID, CoverLetter: "hi", Status: model.ApplicationPending}))
	if status != model.ApplicationPending {
		_, err := store.TransitionApplication(ctx, "a1", model.ApplicationPending, status)
		require.NoError(t, err)
	}
	return env{store: store, svc: NewService(store, store, zap.NewNop()), company: company, researcher: researcher}
}

func TestCreateRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)
	stranger := testutil.Researcher(t, e.store, "other", "Bob", "B")

	tests := []struct {
		name   string
		caller caller.Caller
		in     model.NewReview
		kind   apperr.Kind
	}{
		{name: "rating too high", caller: e.company, in: model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 6}, kind: apperr.KindValidation},
		{name: "rating zero", caller: e.company, in: model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 0}, kind: apperr.KindValidation},
		{name: "missing reviewee", caller: e.company, in: model.NewReview{ApplicationID: "a1", Rating: 3}, kind: apperr.KindValidation},
		{name: "unknown application", caller: e.company, in: model.NewReview{ApplicationID: "nope", RevieweeID: "re", Rating: 3}, kind: apperr.KindNotFound},
		{name: "outsider", caller: stranger, in: model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 3}, kind: apperr.KindForbidden},
		{name: "self review", caller: e.company, in: model.NewReview{ApplicationID: "a1", RevieweeID: "co", Rating: 3}, kind: apperr.KindValidation},
		{name: "third party reviewee", caller: e.company, in: model.NewReview{ApplicationID: "a1", RevieweeID: "other", Rating: 3}, kind: apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, tt.caller, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestCreateRequiresAccepted(t *testing.T) {
	e := newEnv(t, model.ApplicationRejected)
	_, err := e.svc.Create(context.Background(), e.company, model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 4})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestMutualReviewsAndUniqueness(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)

	byCompany, err := e.svc.Create(ctx, e.company, model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 4, Comment: testutil.String("great work")})
	require.NoError(t, err)
	assert.Equal(t, "co", byCompany.ReviewerID)
	assert.Equal(t, "Genome", byCompany.ProjectTitle)
	require.IsType(t, model.CompanyParticipant{}, byCompany.Reviewer)
	require.IsType(t, model.ResearcherParticipant{}, byCompany.Reviewee)
	assert.Equal(t, "Acme", byCompany.Reviewer.DisplayName())
	assert.Equal(t, "Ada Lovelace", byCompany.Reviewee.DisplayName())

	_, err = e.svc.Create(ctx, e.company, model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = e.svc.Create(ctx, e.researcher, model.NewReview{ApplicationID: "a1", RevieweeID: "co", Rating: 5})
	require.NoError(t, err)

	forResearcher, err := e.svc.List(ctx, model.ReviewFilter{RevieweeID: "re"})
	require.NoError(t, err)
	require.Len(t, forResearcher, 1)
	assert.Equal(t, byCompany.ID, forResearcher[0].ID)

	all, err := e.svc.List(ctx, model.ReviewFilter{ApplicationID: "a1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDeleteByReviewerOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)
	rv, err := e.svc.Create(ctx, e.company, model.NewReview{ApplicationID: "a1", RevieweeID: "re", Rating: 3})
	require.NoError(t, err)

	five, six := 5, 6
	_, err = e.svc.Update(ctx, e.researcher, rv.ID, model.ReviewPatch{Rating: &five})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = e.svc.Update(ctx, e.company, rv.ID, model.ReviewPatch{Rating: &six})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	updated, err := e.svc.Update(ctx, e.company, rv.ID, model.ReviewPatch{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)

	assert.True(t, apperr.Is(e.svc.Delete(ctx, e.researcher, rv.ID), apperr.KindForbidden))
	require.NoError(t, e.svc.Delete(ctx, e.company, rv.ID))
	_, err = e.svc.Get(ctx, rv.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
