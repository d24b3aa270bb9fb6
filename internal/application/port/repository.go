package port

import (
	"context"
	"time"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
)

// InvoiceRepository defines persistence operations for Invoice.
//
// Status never changes through a plain update: every transition goes through
// CompareAndSwapStatus or SetTransmission, so a concurrent writer surfaces as
// emission.ErrConcurrentModification instead of a lost update.
type InvoiceRepository interface {
	// Create persists a new invoice, allocating the next sequence number for
	// its series atomically with the insert. Returns emission.ErrConflict when
	// (number, series) already exists.
	Create(ctx context.Context, inv *entity.Invoice) error

	// GetByID returns emission.ErrNotFound for unknown ids
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)

	ExistsByNumberAndSeries(ctx context.Context, number int64, series string) (bool, error)

	// CompareAndSwapStatus moves the invoice from expected to next and records
	// the observations text. Returns emission.ErrConcurrentModification when
	// the invoice is no longer in expected.
	CompareAndSwapStatus(ctx context.Context, id string, expected, next workflow.State, observations string) error

	// SetTransmission writes SENT plus the external-reference fields in one
	// atomic update, conditional on the expected current status. The reference
	// is written exactly once and never mutated afterward.
	SetTransmission(ctx context.Context, id string, expected workflow.State, ref *entity.TransmissionReference) error

	ListByStatus(ctx context.Context, status workflow.State, limit int) ([]*entity.Invoice, error)

	// ListSentBefore returns invoices still awaiting a processing outcome whose
	// emission date is at or before the cutoff, for the reminder sweep.
	ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Invoice, error)
}

// ContactResolver looks up the notification address for the customer entity an
// invoice is linked to.
type ContactResolver interface {
	// ResolveContact returns emission.ErrNotFound when the linked entity does
	// not exist or has no usable address.
	ResolveContact(ctx context.Context, linkedEntityID string) (name, address string, err error)
}
