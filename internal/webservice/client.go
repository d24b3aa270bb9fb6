// Package webservice talks to the municipal NFS-e endpoint. It wraps every
// call into a typed outcome: transport failures and unrecognizable envelopes
// come back as classified errors so the retry predicates can inspect their
// shape, and an explicit remote refusal is a Success=false result, never an
// error to retry.
package webservice

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// EnvelopeConfig names the outer envelope tag for each action. The wire schema
// is jurisdiction-specific, so the tags are configuration rather than a
// hard-coded contract. Defaults follow the ABRASF naming.
type EnvelopeConfig struct {
	Send   string
	Cancel string
	Query  string
}

// DefaultEnvelopes returns the ABRASF-style envelope tags.
func DefaultEnvelopes() EnvelopeConfig {
	return EnvelopeConfig{
		Send:   "EnviarLoteRpsEnvio",
		Cancel: "CancelarNfseEnvio",
		Query:  "ConsultarLoteRpsEnvio",
	}
}

// Config holds webservice client configuration
type Config struct {
	URL       string
	Timeout   time.Duration
	Envelopes EnvelopeConfig
}

// Client issues send/cancel/query calls against the webservice endpoint
type Client struct {
	config     Config
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a new webservice client. The timeout bounds each
// individual attempt; the retry engine bounds the overall call.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Envelopes == (EnvelopeConfig{}) {
		cfg.Envelopes = DefaultEnvelopes()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// NewClientWithHTTP creates a client with a custom HTTP client, used in tests.
func NewClientWithHTTP(cfg Config, httpClient HTTPClient, logger *zap.Logger) *Client {
	c := NewClient(cfg, logger)
	c.httpClient = httpClient
	return c
}

// Send transmits a signed RPS document and returns the parsed outcome.
func (c *Client) Send(ctx context.Context, signedPayload string) (*SendResult, error) {
	body, err := c.post(ctx, "send", c.envelope(c.config.Envelopes.Send, signedPayload))
	if err != nil {
		return nil, err
	}
	return parseSendResponse("send", body)
}

// Cancel transmits a signed cancellation request and returns the parsed outcome.
func (c *Client) Cancel(ctx context.Context, signedPayload string) (*SendResult, error) {
	body, err := c.post(ctx, "cancel", c.envelope(c.config.Envelopes.Cancel, signedPayload))
	if err != nil {
		return nil, err
	}
	return parseSendResponse("cancel", body)
}

// QueryStatus asks the webservice for the current processing status of a
// previously transmitted document, identified by its protocol.
func (c *Client) QueryStatus(ctx context.Context, protocol string) (*QueryResult, error) {
	payload := fmt.Sprintf("<Protocolo>%s</Protocolo>", xmlEscape(protocol))
	body, err := c.post(ctx, "query", c.envelope(c.config.Envelopes.Query, payload))
	if err != nil {
		return nil, err
	}
	return parseQueryResponse("query", body)
}

func (c *Client) envelope(tag, payload string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, payload, tag)
}

// post performs one HTTP attempt. Network failures and remote error statuses
// are converted into TransportError so they never escape as raw errors.
func (c *Client) post(ctx context.Context, op, envelope string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, strings.NewReader(envelope))
	if err != nil {
		return "", &emission.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Webservice call failed",
			zap.String("operation", op),
			zap.Error(err))
		return "", &emission.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", &emission.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Webservice returned non-OK status",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode))
		return "", &emission.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return body, nil
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
