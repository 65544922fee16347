package middleware

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v4"
)

const (
	headerSignature = "telnyx-signature-ed25519"
	headerTimestamp = "telnyx-timestamp"
)

// SignatureMiddleware verifies the carrier's ed25519 webhook signature
// over "<timestamp>|<raw body>". An empty public key disables
// verification (dev/test).
func SignatureMiddleware(publicKeyB64 string) echo.MiddlewareFunc {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	keyOK := err == nil && len(pub) == ed25519.PublicKeySize

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if publicKeyB64 == "" {
				return next(c)
			}
			if !keyOK {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "signature key misconfigured"})
			}

			sig, err := base64.StdEncoding.DecodeString(c.Request().Header.Get(headerSignature))
			if err != nil || len(sig) == 0 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing signature"})
			}
			ts := c.Request().Header.Get(headerTimestamp)
			if ts == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing timestamp"})
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
			}
			// Hand the body back to the route handler.
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			signed := append([]byte(ts+"|"), body...)
			if !ed25519.Verify(ed25519.PublicKey(pub), signed, sig) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			}

			return next(c)
		}
	}
}
