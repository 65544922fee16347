package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmehdipour/fax-gateway/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarrierClient_CreateFax(t *testing.T) {
	t.Parallel()

	var got gateway.CreateFaxRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/faxes", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"data":{"id":"fax-42","status":"queued"}}`))
	}))
	defer srv.Close()

	c := gateway.NewCarrierClient(srv.URL, "test-key", 0, 0, 0)
	faxID, err := c.CreateFax(context.Background(), gateway.CreateFaxRequest{
		ConnectionID: "conn-1",
		To:           "+15145551234",
		From:         "+15145556789",
		MediaURL:     "https://blobs.example/fax.pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, "fax-42", faxID)
	assert.Equal(t, "+15145551234", got.To)
	assert.Equal(t, "conn-1", got.ConnectionID)
}

func TestCarrierClient_CreateFax_RejectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"fax-9","status":"fail"}}`))
	}))
	defer srv.Close()

	c := gateway.NewCarrierClient(srv.URL, "test-key", 0, 0, 0)
	_, err := c.CreateFax(context.Background(), gateway.CreateFaxRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestCarrierClient_CreateFax_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := gateway.NewCarrierClient(srv.URL, "test-key", 0, 0, 0)
	_, err := c.CreateFax(context.Background(), gateway.CreateFaxRequest{})
	require.Error(t, err)
}

func TestCarrierClient_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := gateway.NewCarrierClient(srv.URL, "test-key", 0, 2, 60000)

	_, err := c.CreateFax(context.Background(), gateway.CreateFaxRequest{})
	require.Error(t, err)
	_, err = c.CreateFax(context.Background(), gateway.CreateFaxRequest{})
	require.Error(t, err)

	// breaker is now open for 60s
	_, err = c.CreateFax(context.Background(), gateway.CreateFaxRequest{})
	require.ErrorIs(t, err, gateway.ErrCircuitOpen)
}

func TestEmailClient_Send(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	attachment := filepath.Join(dir, "fax.pdf")
	require.NoError(t, os.WriteFile(attachment, []byte("%PDF"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/fax.example.com/messages", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "api", user)
		require.Equal(t, "relay-key", pass)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "jane@example.com", r.FormValue("to"))
		assert.Contains(t, r.FormValue("from"), "+15145556789@fax.example.com")
		assert.Contains(t, r.FormValue("subject"), "+15145551234")

		_, hdr, err := r.FormFile("attachment")
		require.NoError(t, err)
		assert.NotEmpty(t, hdr.Filename)

		_, _ = w.Write([]byte(`{"id":"<msg@relay>","message":"Queued."}`))
	}))
	defer srv.Close()

	c := gateway.NewEmailClient(srv.URL, "relay-key", "fax.example.com", 0, 0, 0)
	err := c.Send(context.Background(), gateway.EmailMessage{
		FilePath:   attachment,
		FromNumber: "+15145556789",
		ToNumber:   "+15145551234",
		To:         "jane@example.com",
	})
	require.NoError(t, err)
}

func TestEmailClient_Send_TransportFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	attachment := filepath.Join(dir, "fax.pdf")
	require.NoError(t, os.WriteFile(attachment, []byte("%PDF"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := gateway.NewEmailClient(srv.URL, "relay-key", "fax.example.com", 0, 0, 0)
	err := c.Send(context.Background(), gateway.EmailMessage{FilePath: attachment})
	require.Error(t, err)
}
