package port

import (
	"context"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
	"github.com/rafaelreis-se/gym-nfse/internal/webservice"
)

// WebserviceClient defines the municipal webservice operations
type WebserviceClient interface {
	Send(ctx context.Context, signedPayload string) (*webservice.SendResult, error)
	Cancel(ctx context.Context, signedPayload string) (*webservice.SendResult, error)
	QueryStatus(ctx context.Context, protocol string) (*webservice.QueryResult, error)
}

// DocumentSigner prepares the transmittable payload for an invoice
type DocumentSigner interface {
	BuildPayload(inv *entity.Invoice) (string, error)
	BuildCancelPayload(inv *entity.Invoice, reason string) (string, error)
	Sign(payload string) (string, error)
}

// NotificationDispatcher renders a named template and delivers it
type NotificationDispatcher interface {
	Send(ctx context.Context, address, templateName string, data map[string]string) (messageID string, err error)
}
