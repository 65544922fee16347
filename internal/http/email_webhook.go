package http

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/logger"
	"github.com/jmehdipour/fax-gateway/internal/metrics"
	"github.com/jmehdipour/fax-gateway/internal/model"
	"github.com/jmehdipour/fax-gateway/internal/queue"
	"github.com/jmehdipour/fax-gateway/internal/repository"
	"github.com/jmehdipour/fax-gateway/internal/util"
	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Stager writes an attachment into the staging directory.
type Stager interface {
	Stage(name string, r io.Reader) (string, error)
}

// EmailWebhookDeps wires the inbound-email handler.
type EmailWebhookDeps struct {
	Stager        Stager
	Resolver      Resolver
	Queue         queue.Enqueuer
	Transmissions repository.TransmissionsRepository
	Events        kafka.Publisher
	ConnectionID  string
}

// emailWebhookHandler turns an inbound email into outbound fax jobs,
// one per accepted attachment.
func emailWebhookHandler(d EmailWebhookDeps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		toPhone, ok := util.PhoneFromMailbox(c.FormValue("To"))
		if !ok {
			logger.Log.Error("cannot extract destination number",
				zap.String("to", c.FormValue("To")))
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		fromEmail, ok := util.ExtractEmail(c.FormValue("From"))
		if !ok {
			metrics.EventsTotal.WithLabelValues("email.inbound", "dropped").Inc()
			logger.Log.Warn("no sender address in From field",
				zap.String("from", c.FormValue("From")))
			return c.NoContent(http.StatusOK)
		}

		fromPhone, ok := d.Resolver.PhoneFor(fromEmail)
		if !ok {
			metrics.EventsTotal.WithLabelValues("email.inbound", "dropped").Inc()
			logger.Log.Warn("no phone number for sender", zap.String("email", fromEmail))
			return c.NoContent(http.StatusOK)
		}

		count, _ := strconv.Atoi(c.FormValue("attachment-count"))

		processed := 0
		for i := 1; i <= count; i++ {
			name := "attachment-" + strconv.Itoa(i)
			fh, err := c.FormFile(name)
			if err != nil {
				// Gaps in numbering are skipped, not fatal.
				logger.Log.Warn("attachment part missing", zap.String("part", name))
				continue
			}

			filename := util.SanitizeFilename(fh.Filename)
			if !util.AllowedAttachment(filename) {
				logger.Log.Warn("attachment extension rejected", zap.String("file", filename))
				continue
			}
			if ct := partContentType(fh.Header.Get("Content-Type")); ct != "application/pdf" && ct != "text/plain" {
				logger.Log.Warn("attachment content type rejected",
					zap.String("file", filename), zap.String("content_type", ct))
				continue
			}

			src, err := fh.Open()
			if err != nil {
				logger.Log.Error("attachment open failed",
					zap.String("file", filename), zap.Error(err))
				continue
			}
			localPath, err := d.Stager.Stage(filename, src)
			_ = src.Close()
			if err != nil {
				logger.Log.Error("attachment staging failed",
					zap.String("file", filename), zap.Error(err))
				continue
			}

			tid := util.NewID()
			if err := d.Transmissions.Insert(ctx, nil, model.Transmission{
				ID:        tid,
				Direction: model.TransmissionOutbound,
				FromPhone: fromPhone,
				ToPhone:   toPhone,
				Email:     fromEmail,
				FileName:  filepath.Base(localPath),
				Status:    model.StatusQueued,
			}); err != nil {
				logger.Log.Warn("transmission insert failed",
					zap.String("file", filename), zap.Error(err))
			}

			jobID, err := d.Queue.Enqueue(ctx, model.JobSendFax, model.SendFaxPayload{
				TransmissionID: tid,
				FilePath:       localPath,
				FileName:       filepath.Base(localPath),
				To:             toPhone,
				From:           fromPhone,
				ConnectionID:   d.ConnectionID,
			})
			if err != nil {
				logger.Log.Error("enqueue send-fax failed",
					zap.String("file", filename), zap.Error(err))
				continue
			}

			processed++
			logger.Log.Info("queued outbound fax",
				zap.String("file", filename), zap.String("job_id", jobID))
		}

		if processed == 0 {
			metrics.EventsTotal.WithLabelValues("email.inbound", "dropped").Inc()
			logger.Log.Warn("no valid attachment processed",
				zap.String("from", fromEmail), zap.Int("declared", count))
			return c.NoContent(http.StatusOK)
		}

		metrics.EventsTotal.WithLabelValues("email.inbound", "processed").Inc()
		d.Events.Publish(ctx, model.LifecycleEvent{
			Event:     "email.inbound",
			Direction: model.DirectionOutbound,
			Detail:    fromEmail,
			At:        time.Now().Unix(),
		})

		return c.NoContent(http.StatusOK)
	}
}

// partContentType strips parameters like charset from a part header.
func partContentType(raw string) string {
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw
	}
	return mt
}
