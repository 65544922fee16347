package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/gateway"
	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/store"
	"github.com/jmehdipour/fax-gateway/internal/storage"
	"go.uber.org/zap"
)

// Bridge executes the three job kinds. Job bodies stay free of retry
// logic: a returned error means "retry me", the worker owns the policy.
type Bridge struct {
	pipeline      *storage.Pipeline
	faxStore      store.FaxStore
	carrier       gateway.FaxCarrier
	email         gateway.EmailSender
	transmissions repository.TransmissionsRepository
	events        kafka.Publisher
	connectionID  string
}

func New(
	pipeline *storage.Pipeline,
	faxStore store.FaxStore,
	carrier gateway.FaxCarrier,
	email gateway.EmailSender,
	transmissions repository.TransmissionsRepository,
	events kafka.Publisher,
	connectionID string,
) *Bridge {
	return &Bridge{
		pipeline:      pipeline,
		faxStore:      faxStore,
		carrier:       carrier,
		email:         email,
		transmissions: transmissions,
		events:        events,
		connectionID:  connectionID,
	}
}

// Handle runs one job attempt.
func (b *Bridge) Handle(ctx context.Context, job *model.Job) error {
	switch job.Kind {
	case model.JobSendFax:
		return b.sendFax(ctx, job)
	case model.JobSendEmail:
		return b.sendEmail(ctx, job)
	case model.JobPurgeBlob:
		return b.purgeBlob(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (b *Bridge) sendFax(ctx context.Context, job *model.Job) error {
	var p model.SendFaxPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("send-fax: bad payload: %w", err)
	}

	if err := b.pipeline.Upload(ctx, p.FilePath, p.FileName); err != nil {
		return fmt.Errorf("send-fax: %w", err)
	}

	mediaURL, err := b.pipeline.Presign(ctx, p.FileName)
	if err != nil {
		return fmt.Errorf("send-fax: %w", err)
	}

	faxID, err := b.carrier.CreateFax(ctx, gateway.CreateFaxRequest{
		ConnectionID: p.ConnectionID,
		To:           p.To,
		From:         p.From,
		MediaURL:     mediaURL,
	})
	if err != nil {
		return fmt.Errorf("send-fax: %w", err)
	}

	// Track the staged file under the carrier id so the delivery
	// confirmation webhook can clean up both copies.
	if err := b.faxStore.Set(ctx, faxID, p.FilePath); err != nil {
		logger.Log.Warn("fax record store failed",
			zap.String("fax_id", faxID), zap.Error(err))
	}

	if p.TransmissionID != "" {
		if err := b.transmissions.SetFaxID(ctx, nil, p.TransmissionID, faxID, model.StatusSent); err != nil {
			logger.Log.Warn("transmission update failed",
				zap.String("id", p.TransmissionID), zap.Error(err))
		}
	}

	b.events.Publish(ctx, model.LifecycleEvent{
		Event:     "fax.queued",
		FaxID:     faxID,
		Direction: model.DirectionOutbound,
		At:        time.Now().Unix(),
	})

	logger.Log.Info("outbound fax created",
		zap.String("fax_id", faxID), zap.String("to", p.To))

	return nil
}

func (b *Bridge) sendEmail(ctx context.Context, job *model.Job) error {
	var p model.SendEmailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("send-email: bad payload: %w", err)
	}

	err := b.email.Send(ctx, gateway.EmailMessage{
		FilePath:   p.FilePath,
		FromNumber: p.FromNumber,
		ToNumber:   p.ToNumber,
		To:         p.Email,
	})
	if err != nil {
		return fmt.Errorf("send-email: %w", err)
	}

	if p.TransmissionID != "" {
		if err := b.transmissions.UpdateStatus(ctx, nil, p.TransmissionID, model.StatusSent); err != nil {
			logger.Log.Warn("transmission update failed",
				zap.String("id", p.TransmissionID), zap.Error(err))
		}
	}

	b.events.Publish(ctx, model.LifecycleEvent{
		Event:     "email.relayed",
		Direction: model.DirectionInbound,
		Detail:    p.Email,
		At:        time.Now().Unix(),
	})

	logger.Log.Info("fax relayed by email",
		zap.String("to", p.Email), zap.String("file", filepath.Base(p.FilePath)))

	return nil
}

// purgeBlob never reports an error: a missed purge is storage hygiene,
// not a correctness issue.
func (b *Bridge) purgeBlob(ctx context.Context, job *model.Job) error {
	var p model.PurgeBlobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		logger.Log.Warn("purge job with bad payload", zap.Error(err))
		return nil
	}

	b.pipeline.DeleteRemote(ctx, p.ObjectKey)

	return nil
}

// Exhausted is called by the worker after the final failed attempt. The
// outcome is terminal: mark the transmission failed, drop the staged
// file, and log. No external party is notified.
func (b *Bridge) Exhausted(ctx context.Context, job *model.Job) {
	var (
		transmissionID string
		filePath       string
	)

	switch job.Kind {
	case model.JobSendFax:
		var p model.SendFaxPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			transmissionID, filePath = p.TransmissionID, p.FilePath
		}
	case model.JobSendEmail:
		var p model.SendEmailPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			transmissionID, filePath = p.TransmissionID, p.FilePath
		}
	}

	if transmissionID != "" {
		if err := b.transmissions.UpdateStatus(ctx, nil, transmissionID, model.StatusFailed); err != nil {
			logger.Log.Warn("transmission update failed",
				zap.String("id", transmissionID), zap.Error(err))
		}
	}

	if filePath != "" {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Log.Warn("staged file cleanup failed",
				zap.String("path", filePath), zap.Error(err))
		}
	}

	b.events.Publish(ctx, model.LifecycleEvent{
		Event:  "job.exhausted",
		Detail: job.Kind.String(),
		At:     time.Now().Unix(),
	})
}
