package http

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmehdipour/fax-gateway/internal/queue"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/store"
	"github.com/jmehdipour/fax-gateway/internal/util"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Fetcher downloads a remote attachment into staging.
type Fetcher interface {
	Fetch(ctx context.Context, remoteURL string) (string, error)
}

// Resolver is the read-only phone/email directory.
type Resolver interface {
	EmailFor(phoneNumber string) (string, bool)
	PhoneFor(email string) (string, bool)
}

// FaxWebhookDeps wires the fax-lifecycle handler.
type FaxWebhookDeps struct {
	Fetcher       Fetcher
	FaxStore      store.FaxStore
	Resolver      Resolver
	Queue         queue.Enqueuer
	Transmissions repository.TransmissionsRepository
	Events        kafka.Publisher
}

// faxWebhookHandler processes carrier lifecycle events. Recognized
// events always ack 200 whatever happens internally; only a body that
// cannot be parsed at all is the caller's fault.
func faxWebhookHandler(d FaxWebhookDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body model.FaxWebhook
		if err := c.Bind(&body); err != nil || body.Data.EventType == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		ev := body.Data
		logger.Log.Info("fax event",
			zap.String("event_type", ev.EventType),
			zap.String("direction", ev.Payload.Direction),
			zap.String("fax_id", ev.Payload.FaxID))

		switch {
		case ev.EventType == model.EventFaxReceived && ev.Payload.Direction == model.DirectionInbound:
			handleFaxReceived(c, d, ev.Payload)
		case ev.EventType == model.EventFaxDelivered, ev.EventType == model.EventFaxEmailDelivered:
			handleFaxDelivered(c, d, ev.Payload)
		default:
			metrics.EventsTotal.WithLabelValues(ev.EventType, "dropped").Inc()
		}

		return c.NoContent(http.StatusOK)
	}
}

func handleFaxReceived(c echo.Context, d FaxWebhookDeps, p model.FaxPayload) {
	ctx := c.Request().Context()

	// Blocking fetch; the carrier tolerates webhook latency. A failure
	// aborts this event without creating a fax record.
	localPath, err := d.Fetcher.Fetch(ctx, p.MediaURL)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(model.EventFaxReceived, "error").Inc()
		logger.Log.Error("media fetch failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
		return
	}

	if err := d.FaxStore.Set(ctx, p.FaxID, localPath); err != nil {
		metrics.EventsTotal.WithLabelValues(model.EventFaxReceived, "error").Inc()
		logger.Log.Error("fax record store failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
		return
	}

	email, ok := d.Resolver.EmailFor(p.To)
	if !ok {
		metrics.EventsTotal.WithLabelValues(model.EventFaxReceived, "dropped").Inc()
		logger.Log.Warn("no mailbox for phone number", zap.String("to", p.To))
		return
	}

	tid := util.NewID()
	if err := d.Transmissions.Insert(ctx, nil, model.Transmission{
		ID:        tid,
		Direction: model.TransmissionInbound,
		FaxID:     p.FaxID,
		FromPhone: p.From,
		ToPhone:   p.To,
		Email:     email,
		FileName:  filepath.Base(localPath),
		Status:    model.StatusQueued,
	}); err != nil {
		logger.Log.Warn("transmission insert failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
	}

	jobID, err := d.Queue.Enqueue(ctx, model.JobSendEmail, model.SendEmailPayload{
		TransmissionID: tid,
		FilePath:       localPath,
		FromNumber:     p.From,
		ToNumber:       p.To,
		Email:          email,
	})
	if err != nil {
		metrics.EventsTotal.WithLabelValues(model.EventFaxReceived, "error").Inc()
		logger.Log.Error("enqueue send-email failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
		return
	}

	metrics.EventsTotal.WithLabelValues(model.EventFaxReceived, "processed").Inc()
	d.Events.Publish(ctx, model.LifecycleEvent{
		Event:     model.EventFaxReceived,
		FaxID:     p.FaxID,
		Direction: model.DirectionInbound,
		At:        time.Now().Unix(),
	})
	logger.Log.Info("queued email relay",
		zap.String("fax_id", p.FaxID), zap.String("job_id", jobID))
}

func handleFaxDelivered(c echo.Context, d FaxWebhookDeps, p model.FaxPayload) {
	ctx := c.Request().Context()

	// Single-use record: Take is atomic, so a duplicate delivery
	// webhook finds nothing and becomes a no-op.
	localPath, found, err := d.FaxStore.Take(ctx, p.FaxID)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(model.EventFaxDelivered, "error").Inc()
		logger.Log.Error("fax record lookup failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
		return
	}
	if !found {
		metrics.EventsTotal.WithLabelValues(model.EventFaxDelivered, "dropped").Inc()
		logger.Log.Debug("no record for delivered fax", zap.String("fax_id", p.FaxID))
		return
	}

	if _, err := os.Stat(localPath); err != nil {
		logger.Log.Debug("staged file already gone", zap.String("path", localPath))
		return
	}
	if err := os.Remove(localPath); err != nil {
		logger.Log.Warn("staged file cleanup failed",
			zap.String("path", localPath), zap.Error(err))
		return
	}

	if _, err := d.Queue.Enqueue(ctx, model.JobPurgeBlob, model.PurgeBlobPayload{
		ObjectKey: filepath.Base(localPath),
	}); err != nil {
		logger.Log.Warn("enqueue purge failed",
			zap.String("fax_id", p.FaxID), zap.Error(err))
	}

	metrics.EventsTotal.WithLabelValues(model.EventFaxDelivered, "processed").Inc()
	d.Events.Publish(ctx, model.LifecycleEvent{
		Event: model.EventFaxDelivered,
		FaxID: p.FaxID,
		At:    time.Now().Unix(),
	})
}
