package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
)

// Sender delivers a rendered message to one recipient address.
type Sender interface {
	Deliver(ctx context.Context, address string, msg *Rendered) (messageID string, err error)
}

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SenderConfig holds mail API configuration
type SenderConfig struct {
	APIURL     string
	APIToken   string
	SenderName string
	Timeout    time.Duration
}

// HTTPSender delivers messages through an HTTP mail API.
type HTTPSender struct {
	config     SenderConfig
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewHTTPSender creates a mail API sender
func NewHTTPSender(cfg SenderConfig, logger *zap.Logger) *HTTPSender {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPSender{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// NewHTTPSenderWithClient creates a sender with a custom HTTP client, used in tests.
func NewHTTPSenderWithClient(cfg SenderConfig, httpClient HTTPClient, logger *zap.Logger) *HTTPSender {
	s := NewHTTPSender(cfg, logger)
	s.httpClient = httpClient
	return s
}

type mailRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type mailResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Deliver posts the message to the mail API. Network failures and 5xx come
// back as TransportError so the email retry preset can distinguish them from
// permanent refusals.
func (s *HTTPSender) Deliver(ctx context.Context, address string, msg *Rendered) (string, error) {
	payload, err := json.Marshal(mailRequest{
		To:      address,
		From:    s.config.SenderName,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", &emission.TransportError{Op: "email", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Mail API call failed", zap.String("to", address), zap.Error(err))
		return "", &emission.TransportError{Op: "email", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &emission.TransportError{Op: "email", Err: err}
	}

	if resp.StatusCode >= 500 {
		return "", &emission.TransportError{
			Op:         "email",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("mail API status %d", resp.StatusCode),
		}
	}

	var parsed mailResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode mail response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		return "", fmt.Errorf("mail API refused delivery: %s", parsed.Error)
	}

	return parsed.MessageID, nil
}
