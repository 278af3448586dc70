package chat

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
	store       *memstore.Store
	svc         *Service
	company     caller.Caller
	researcher  caller.Caller
	application *model.Application
}

// newEnv seeds one application in the given status.
func newEnv(t *testing.T, status model.ApplicationStatus) env {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	company := testutil.Company(t, store, "co", "Acme")
	researcher := testutil.Researcher(t, store, "re", "Ada", "Lovelace")

	require.NoError(t, store.CreateProject(ctx, &model.Project{ID: "p1", CompanyID: company.CompanyID, Title: "Genome", Status: model.ProjectPublished}))
	a := &model.Application{ID: "a1", ProjectID: "p1", ResearcherID: researcher.ResearcherID, CoverLetter: "hi", Status: model.ApplicationPending}
	require.NoError(t, store.CreateApplication(ctx, a))
	if status != model.ApplicationPending {
		_, err := store.TransitionApplication(ctx, a.ID, model.ApplicationPending, status)
		require.NoError(t, err)
	}

	return env{
		store:       store,
		svc:         NewService(store, store, zap.NewNop()),
		company:     company,
		researcher:  researcher,
		application: a,
	}
}

func TestCreateOnlyForAccepted(t *testing.T) {
	for _, status := range []model.ApplicationStatus{model.ApplicationPending, model.ApplicationRejected, model.ApplicationWithdrawn} {
		t.Run(string(status), func(t *testing.T) {
			e := newEnv(t, status)
			_, err := e.svc.Create(context.Background(), e.application.ID)
			assert.True(t, apperr.Is(err, apperr.KindInvalidState))
		})
	}

	e := newEnv(t, model.ApplicationAccepted)
	ctx := context.Background()

	_, err := e.svc.Create(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = e.svc.Create(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	ch, err := e.svc.Create(ctx, e.application.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChatActive, ch.Status)
	assert.Equal(t, e.company.CompanyID, ch.CompanyID)
	assert.Equal(t, e.researcher.ResearcherID, ch.ResearcherID)
	require.NotNil(t, ch.Application)
	assert.Equal(t, "Genome", ch.Application.ProjectTitle)

	_, err = e.svc.Create(ctx, e.application.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreateForCallerRequiresParticipant(t *testing.T) {
	e := newEnv(t, model.ApplicationAccepted)
	stranger := testutil.Company(t, e.store, "other", "Other")

	_, err := e.svc.CreateForCaller(context.Background(), stranger, e.application.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	ch, err := e.svc.CreateForCaller(context.Background(), e.researcher, e.application.ID)
	require.NoError(t, err)
	assert.Equal(t, e.application.ID, ch.ApplicationID)
}

func TestMessagingRequiresActiveChat(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)
	ch, err := e.svc.Create(ctx, e.application.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   model.NewMessage
		kind apperr.Kind
	}{
		{name: "defaults to text", in: model.NewMessage{Content: "hello"}},
		{name: "file", in: model.NewMessage{MessageType: model.MessageFile, FileURL: testutil.String("https://files/x.pdf")}},
		{name: "empty text", in: model.NewMessage{Content: " "}, kind: apperr.KindValidation},
		{name: "file without url", in: model.NewMessage{MessageType: model.MessageFile}, kind: apperr.KindValidation},
		{name: "unknown type", in: model.NewMessage{MessageType: "video", Content: "x"}, kind: apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.svc.SendMessage(ctx, e.researcher, ch.ID, tt.in)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, e.researcher.UserID, m.SenderID)
		})
	}

	stranger := testutil.Researcher(t, e.store, "other", "Bob", "B")
	_, err = e.svc.SendMessage(ctx, stranger, ch.ID, model.NewMessage{Content: "hi"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	for _, status := range []model.ChatStatus{model.ChatClosed, model.ChatArchived} {
		_, err = e.svc.UpdateStatus(ctx, e.company, ch.ID, status)
		require.NoError(t, err)
		_, err = e.svc.SendMessage(ctx, e.researcher, ch.ID, model.NewMessage{Content: "still there?"})
		assert.True(t, apperr.Is(err, apperr.KindInvalidState), "status %s", status)
	}

	// Reopening is allowed.
	reopened, err := e.svc.UpdateStatus(ctx, e.researcher, ch.ID, model.ChatActive)
	require.NoError(t, err)
	assert.Equal(t, model.ChatActive, reopened.Status)
	_, err = e.svc.SendMessage(ctx, e.researcher, ch.ID, model.NewMessage{Content: "back"})
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(ctx, e.researcher, ch.ID, "deleted")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	full, err := e.svc.Get(ctx, e.company, ch.ID)
	require.NoError(t, err)
	require.Len(t, full.Messages, 3)
	assert.Equal(t, "hello", full.Messages[0].Content)
	assert.Equal(t, "back", full.Messages[2].Content)
}

func TestUnreadTracking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)
	ch, err := e.svc.Create(ctx, e.application.ID)
	require.NoError(t, err)

	first, err := e.svc.SendMessage(ctx, e.company, ch.ID, model.NewMessage{Content: "welcome"})
	require.NoError(t, err)
	second, err := e.svc.SendMessage(ctx, e.company, ch.ID, model.NewMessage{Content: "kickoff monday"})
	require.NoError(t, err)

	chats, err := e.svc.ListForCaller(ctx, e.researcher)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, 2, chats[0].UnreadCount)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, second.ID, chats[0].LastMessage.ID)

	newer, err := e.svc.ListMessagesSince(ctx, e.researcher, ch.ID, &first.CreatedAt)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, second.ID, newer[0].ID)

	require.NoError(t, e.svc.MarkRead(ctx, e.researcher, ch.ID, first.ID))
	chats, err = e.svc.ListForCaller(ctx, e.researcher)
	require.NoError(t, err)
	assert.Equal(t, 1, chats[0].UnreadCount)

	require.NoError(t, e.svc.MarkRead(ctx, e.researcher, ch.ID, second.ID))
	require.NoError(t, e.svc.MarkRead(ctx, e.researcher, ch.ID, first.ID))
	chats, err = e.svc.ListForCaller(ctx, e.researcher)
	require.NoError(t, err)
	assert.Equal(t, 0, chats[0].UnreadCount, "marker never moves backward")

	assert.True(t, apperr.Is(e.svc.MarkRead(ctx, e.researcher, ch.ID, "nope"), apperr.KindNotFound))

	none, err := e.svc.ListForCaller(ctx, testutil.Anonymous("x"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSingleChatUnreadIsPerCaller(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, model.ApplicationAccepted)
	ch, err := e.svc.Create(ctx, e.application.ID)
	require.NoError(t, err)

	for _, content := range []string{"draft attached", "see section 2", "thoughts?"} {
		_, err := e.svc.SendMessage(ctx, e.researcher, ch.ID, model.NewMessage{Content: content})
		require.NoError(t, err)
	}

	own, err := e.svc.Get(ctx, e.researcher, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, own.UnreadCount)
	assert.Len(t, own.Messages, 3)

	other, err := e.svc.Get(ctx, e.company, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, other.UnreadCount)

	closed, err := e.svc.UpdateStatus(ctx, e.researcher, ch.ID, model.ChatClosed)
	require.NoError(t, err)
	assert.Equal(t, model.ChatClosed, closed.Status)
	assert.Equal(t, 0, closed.UnreadCount)

	reopened, err := e.svc.UpdateStatus(ctx, e.company, ch.ID, model.ChatActive)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.UnreadCount)
}
