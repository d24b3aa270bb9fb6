package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
)

// Invoice is the RPS/NFS-e aggregate. Status is the single source of truth for
// which operations are currently legal; it only moves through the workflow
// service, never directly by callers.
type Invoice struct {
	ID     string         `json:"id"`
	Number int64          `json:"number"`
	Series string         `json:"series"`
	Status workflow.State `json:"status"`

	ServiceDescription string          `json:"service_description"`
	ServiceValue       decimal.Decimal `json:"service_value"`
	ProviderTaxID      string          `json:"provider_tax_id"`
	RecipientName      string          `json:"recipient_name"`
	RecipientContact   string          `json:"recipient_contact"`

	EmissionDate time.Time `json:"emission_date"`

	// Transmission is populated exactly once, atomically with the SENT
	// transition, and never mutated afterward. A later cancellation records
	// its own evidence without erasing transmission data.
	Transmission *TransmissionReference `json:"transmission,omitempty"`

	// Observations carries the explanation for the latest terminal or error
	// transition (rejection reason, cancel reason, send failure). Overwritten,
	// not appended.
	Observations string `json:"observations,omitempty"`

	// LinkedEntityID references the student/customer used to resolve a
	// notification address. No ownership relation.
	LinkedEntityID *string `json:"linked_entity_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransmissionReference holds the external identifiers returned by the
// webservice on a successful send.
type TransmissionReference struct {
	Protocol         string    `json:"protocol"`
	RemoteNumber     string    `json:"remote_number"`
	RemoteCode       string    `json:"remote_code"`
	VerificationCode string    `json:"verification_code"`
	DocumentLink     string    `json:"document_link"`
	RemoteDate       time.Time `json:"remote_date"`
}

// Editable reports whether the invoice is still in a pre-transmission state
// where its payload may be changed by the surrounding application.
func (i *Invoice) Editable() bool {
	switch i.Status {
	case workflow.StateDraft, workflow.StateValidated, workflow.StateRejected:
		return true
	}
	return false
}

// Cancellable reports whether the invoice may still be cancelled.
func (i *Invoice) Cancellable() bool {
	return i.Status.IsCancellable()
}

// Transmitted reports whether the invoice has a remote reference, meaning a
// cancellation must go through the webservice before the local write.
func (i *Invoice) Transmitted() bool {
	return i.Transmission != nil && i.Transmission.Protocol != ""
}

// DaysSinceEmission returns whole calendar days between the emission date
// and now, counted at midnight boundaries in the emission date's location.
func (i *Invoice) DaysSinceEmission(now time.Time) int {
	loc := i.EmissionDate.Location()
	y, m, d := i.EmissionDate.Date()
	emission := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	// Rounding absorbs the hour lost or gained across a DST switch.
	return int(today.Sub(emission).Hours()/24 + 0.5)
}
