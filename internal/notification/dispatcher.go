package notification

import (
	"context"

	"go.uber.org/zap"
)

// Dispatcher renders a named template with data and hands it to the sender.
// It performs a single delivery attempt; callers apply the email retry preset.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher over the given sender
func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Send renders the named template and delivers it to the address, returning
// the provider's message id on success.
func (d *Dispatcher) Send(ctx context.Context, address, templateName string, data map[string]string) (string, error) {
	msg, err := Render(templateName, data)
	if err != nil {
		return "", err
	}

	messageID, err := d.sender.Deliver(ctx, address, msg)
	if err != nil {
		return "", err
	}

	d.logger.Info("Notification delivered",
		zap.String("template", templateName),
		zap.String("to", address),
		zap.String("message_id", messageID))
	return messageID, nil
}
