package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// EmailMessage carries a received fax to its mapped mailbox.
type EmailMessage struct {
	FilePath   string
	FromNumber string
	ToNumber   string
	To         string
}

// EmailSender relays a message with its attachment. Acceptance by the
// relay is success; later delivery is the relay's problem.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailClient is the HTTP email relay client (Mailgun-style messages API).
type EmailClient struct {
	baseURL string
	apiKey  string
	domain  string
	client  *http.Client
	br      *breaker
}

func NewEmailClient(baseURL, apiKey, domain string, timeoutMs, failThreshold, openForMs int) *EmailClient {
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	return &EmailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		domain:  domain,
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:      newBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) error {
	if !c.br.tryAcquire() {
		return fmt.Errorf("email: %w", ErrCircuitOpen)
	}

	f, err := os.Open(msg.FilePath)
	if err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: open attachment: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"from":    fmt.Sprintf("%s <%s@%s>", msg.FromNumber, msg.FromNumber, c.domain),
		"to":      msg.To,
		"subject": fmt.Sprintf("Fax recu au numero %s de %s", msg.ToNumber, msg.FromNumber),
		"text": fmt.Sprintf(
			"Vous avez recu un fax au numero %s de la part de %s. Vous trouverez le fichier en piece jointe.",
			msg.ToNumber, msg.FromNumber),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.br.onFailure()
			return fmt.Errorf("email: %w", err)
		}
	}

	part, err := mw.CreateFormFile("attachment", msg.FilePath)
	if err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: %w", err)
	}

	url := fmt.Sprintf("%s/v3/%s/messages", c.baseURL, c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth("api", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		c.br.onFailure()
		return fmt.Errorf("email: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		c.br.onFailure()
		return fmt.Errorf("email: status=%d", res.StatusCode)
	}

	c.br.onSuccess()

	return nil
}
