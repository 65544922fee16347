package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/jmehdipour/fax-gateway/internal/kafka"
	"github.com/jmehdipour/fax-gateway/internal/model"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attachmentPart struct {
	field       string
	filename    string
	contentType string
	data        string
}

func postInboundEmail(t *testing.T, h echo.HandlerFunc, fields map[string]string, parts []attachmentPart) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		hdr.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/email/inbound", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()

	c := echo.New().NewContext(req, rec)
	require.NoError(t, h(c))

	return rec
}

func emailDeps(t *testing.T, q *fakeQueue, repo *fakeRepo) EmailWebhookDeps {
	t.Helper()

	return EmailWebhookDeps{
		Stager: fakeStager{dir: t.TempDir()},
		Resolver: fakeResolver{
			byEmail: map[string]string{"jane@example.com": "+15145556789"},
		},
		Queue:         q,
		Transmissions: repo,
		Events:        kafka.NopPublisher{},
		ConnectionID:  "conn-1",
	}
}

func TestEmailWebhook_OneAcceptedAttachment(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	repo := &fakeRepo{}
	h := emailWebhookHandler(emailDeps(t, q, repo))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "'+15145551234'@mx.example.com",
			"From":             "Jane Doe <jane@example.com>",
			"attachment-count": "1",
		},
		[]attachmentPart{
			{field: "attachment-1", filename: "fax.pdf", contentType: "application/pdf", data: "%PDF"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.jobs, 1)
	assert.Equal(t, model.JobSendFax, q.jobs[0].kind)

	p, ok := q.jobs[0].payload.(model.SendFaxPayload)
	require.True(t, ok)
	assert.Equal(t, "+15145551234", p.To)
	assert.Equal(t, "+15145556789", p.From)
	assert.Equal(t, "fax.pdf", p.FileName)
	assert.Equal(t, "conn-1", p.ConnectionID)

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, model.TransmissionOutbound, repo.inserted[0].Direction)
}

func TestEmailWebhook_OneJobPerAcceptedAttachment(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "jane@example.com",
			"attachment-count": "3",
		},
		[]attachmentPart{
			{field: "attachment-1", filename: "a.pdf", contentType: "application/pdf", data: "%PDF"},
			{field: "attachment-2", filename: "report.exe", contentType: "application/pdf", data: "MZ"},
			{field: "attachment-3", filename: "notes.txt", contentType: "text/plain; charset=utf-8", data: "hi"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.jobs, 2)
	assert.Equal(t, model.JobSendFax, q.jobs[0].kind)
	assert.Equal(t, model.JobSendFax, q.jobs[1].kind)
}

func TestEmailWebhook_RejectsDisallowedMIME(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "jane@example.com",
			"attachment-count": "1",
		},
		[]attachmentPart{
			{field: "attachment-1", filename: "fax.pdf", contentType: "application/octet-stream", data: "%PDF"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestEmailWebhook_GapInNumberingSkipped(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "jane@example.com",
			"attachment-count": "2",
		},
		[]attachmentPart{
			{field: "attachment-2", filename: "fax.pdf", contentType: "application/pdf", data: "%PDF"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.jobs, 1)
}

func TestEmailWebhook_BadToField(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "no-at-sign-here",
			"From":             "jane@example.com",
			"attachment-count": "1",
		}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestEmailWebhook_UnresolvableSenderDropped(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "garbled text no angle brackets",
			"attachment-count": "1",
		},
		[]attachmentPart{
			{field: "attachment-1", filename: "fax.pdf", contentType: "application/pdf", data: "%PDF"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestEmailWebhook_UnmappedSenderDropped(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "stranger@example.com",
			"attachment-count": "1",
		},
		[]attachmentPart{
			{field: "attachment-1", filename: "fax.pdf", contentType: "application/pdf", data: "%PDF"},
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestEmailWebhook_ZeroAttachmentsAcknowledged(t *testing.T) {
	t.Parallel()

	q := &fakeQueue{}
	h := emailWebhookHandler(emailDeps(t, q, &fakeRepo{}))

	rec := postInboundEmail(t, h,
		map[string]string{
			"To":               "+15145551234@mx.example.com",
			"From":             "jane@example.com",
			"attachment-count": "0",
		}, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, q.jobs)
}
