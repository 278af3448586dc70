package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"sciencehub/contracts/mq"
	"sciencehub/internal/apperr"
	"sciencehub/internal/model"
	"sciencehub/pkg/logger"
	"sciencehub/pkg/metrics"
	"sciencehub/pkg/trace"
)

const chatProvisionHandler = "chat_provision"

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type ChatCreator interface {
	Create(ctx context.Context, applicationID string) (*model.Chat, error)
}

// ApplicationAcceptedHandler opens the chat for an accepted application.
// Redelivery is harmless: an existing chat counts as success.
type ApplicationAcceptedHandler struct {
	chats   ChatCreator
	deduper Deduper
	logger  *zap.Logger
}

func NewApplicationAcceptedHandler(chats ChatCreator, deduper Deduper, logger *zap.Logger) *ApplicationAcceptedHandler {
	return &ApplicationAcceptedHandler{
		chats:   chats,
		deduper: deduper,
		logger:  logger,
	}
}

func (h *ApplicationAcceptedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.ApplicationAcceptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal application accepted payload", zap.Error(err))
		metrics.IncrementChatProvision("invalid")
		return err
	}
	if p.TraceID != "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(zap.String("application_id", p.ApplicationID))

	if !h.deduper.AcquireOnce(ctx, chatProvisionHandler, p.ApplicationID) {
		metrics.IncrementChatProvision("duplicate")
		return nil
	}

	ch, err := h.chats.Create(ctx, p.ApplicationID)
	switch {
	case err == nil:
		log.Info("Chat provisioned", zap.String("chat_id", ch.ID))
		metrics.IncrementChatProvision("created")
		return nil
	case apperr.Is(err, apperr.KindConflict):
		log.Info("Chat already exists")
		metrics.IncrementChatProvision("exists")
		return nil
	}

	h.deduper.Release(ctx, chatProvisionHandler, p.ApplicationID)
	if apperr.Is(err, apperr.KindInternal) {
		log.Warn("Chat provisioning failed, will retry", zap.Error(err))
		metrics.IncrementChatProvision("retry")
		return err
	}

	// Not found or no longer accepted: retrying cannot help.
	log.Error("Chat provisioning rejected", zap.Error(err))
	metrics.IncrementChatProvision("rejected")
	return err
}
