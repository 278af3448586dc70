package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sciencehub/contracts/mq"
	"sciencehub/internal/apperr"
	"sciencehub/internal/model"
	"sciencehub/internal/repository/memstore"
	"sciencehub/internal/service/chat"
	"sciencehub/internal/testutil"
	"sciencehub/pkg/util"
)

type memDeduper struct {
	seen     map[string]bool
	released int
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	key := handler + ":" + id
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, handler, id string) {
	delete(d.seen, handler+":"+id)
	d.released++
}

type failingChats struct{ err error }

func (f failingChats) Create(context.Context, string) (*model.Chat, error) { return nil, f.err }

// acceptedApplication seeds an accepted application and returns the event
// the acceptance produced.
func acceptedApplication(t *testing.T, store *memstore.Store) json.RawMessage {
	t.Helper()
	ctx := context.Background()
	company := testutil.Company(t, store, "co", "Acme")
	researcher := testutil.Researcher(t, store, "re", "Ada", "Lovelace")
	require.NoError(t, store.CreateProject(ctx, &model.Project{ID: "p1", CompanyID: company.CompanyID, Title: "Genome", Status: model.ProjectPublished}))
	require.NoError(t, store.CreateApplication(ctx, &model.Application{ID: "a1", ProjectID: "p1", ResearcherID: researcher.ResearcherID, CoverLetter: "hi", Status: model.ApplicationPending}))
	_, err := store.TransitionApplication(ctx, "a1", model.ApplicationPending, model.ApplicationAccepted)
	require.NoError(t, err)

	events := store.AcceptedEvents()
	require.Len(t, events, 1)
	raw, err := json.Marshal(events[0])
	require.NoError(t, err)
	return raw
}

func TestHandleCreatesChatOnce(t *testing.T) {
	store := memstore.New()
	raw := acceptedApplication(t, store)
	deduper := newMemDeduper()
	h := NewApplicationAcceptedHandler(chat.NewService(store, store, zap.NewNop()), deduper, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), raw))
	exists, err := store.ChatExistsForApplication(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Redelivery is skipped by the deduper.
	require.NoError(t, h.Handle(context.Background(), raw))

	// Without the deduper key the existing chat still counts as success.
	deduper.seen = map[string]bool{}
	require.NoError(t, h.Handle(context.Background(), raw))

	chats, err := store.ListChats(context.Background(), model.ChatFilter{})
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	h := NewApplicationAcceptedHandler(failingChats{}, newMemDeduper(), zap.NewNop())

	err := h.Handle(context.Background(), json.RawMessage(`{"application_id":`))
	require.Error(t, err)
	retryable, _ := util.IsRetryableError(err)
	assert.False(t, retryable)
}

func TestHandleReleasesOnFailure(t *testing.T) {
	raw, err := json.Marshal(mq.ApplicationAcceptedPayload{ApplicationID: "a1"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "transient", err: apperr.Internal("failed to create chat", errors.New("connection reset")), retryable: true},
		{name: "not accepted", err: apperr.InvalidState("chats can only be opened for accepted applications"), retryable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deduper := newMemDeduper()
			h := NewApplicationAcceptedHandler(failingChats{err: tt.err}, deduper, zap.NewNop())

			err := h.Handle(context.Background(), raw)
			require.Error(t, err)
			assert.Equal(t, 1, deduper.released)
			assert.Empty(t, deduper.seen)

			retryable, _ := util.IsRetryableError(err)
			assert.Equal(t, tt.retryable, retryable)
		})
	}
}
