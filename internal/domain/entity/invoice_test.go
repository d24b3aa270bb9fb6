package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
)

func TestInvoice_Editable(t *testing.T) {
	tests := []struct {
		status workflow.State
		want   bool
	}{
		{workflow.StateDraft, true},
		{workflow.StateValidated, true},
		{workflow.StateRejected, true},
		{workflow.StateSending, false},
		{workflow.StateSent, false},
		{workflow.StateProcessing, false},
		{workflow.StateApproved, false},
		{workflow.StateCancelled, false},
	}

	for _, tt := range tests {
		inv := &Invoice{Status: tt.status}
		assert.Equal(t, tt.want, inv.Editable(), "status %s", tt.status)
	}
}

func TestInvoice_Transmitted(t *testing.T) {
	inv := &Invoice{Status: workflow.StateSent}
	assert.False(t, inv.Transmitted())

	inv.Transmission = &TransmissionReference{}
	assert.False(t, inv.Transmitted(), "empty protocol is not a transmission")

	inv.Transmission.Protocol = "PRT-001"
	assert.True(t, inv.Transmitted())
}

func TestInvoice_Cancellable(t *testing.T) {
	inv := &Invoice{Status: workflow.StateProcessing}
	assert.True(t, inv.Cancellable())

	inv.Status = workflow.StateApproved
	assert.False(t, inv.Cancellable())
}

func TestInvoice_DaysSinceEmission(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		emission time.Time
		want     int
	}{
		{"same day", time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC), 0},
		{"previous evening counts as one day", time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC), 1},
		{"ten days", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{EmissionDate: tt.emission}
			assert.Equal(t, tt.want, inv.DaysSinceEmission(now))
		})
	}
}

func TestInvoice_DaysSinceEmission_LocalMidnightBoundary(t *testing.T) {
	brt := time.FixedZone("-03", -3*60*60)

	// Emitted just before local midnight, checked just after: one
	// calendar day apart even though only an hour elapsed.
	inv := &Invoice{EmissionDate: time.Date(2025, 3, 14, 23, 30, 0, 0, brt)}
	now := time.Date(2025, 3, 15, 0, 30, 0, 0, brt)
	assert.Equal(t, 1, inv.DaysSinceEmission(now))

	// Same instants again with now expressed in UTC.
	assert.Equal(t, 1, inv.DaysSinceEmission(now.UTC()))

	// Late evening to late evening the next day stays at one.
	now = time.Date(2025, 3, 15, 23, 0, 0, 0, brt)
	assert.Equal(t, 1, inv.DaysSinceEmission(now))
}

func TestInvoice_ServiceValuePrecision(t *testing.T) {
	// decimal keeps exact cents through round trips
	v := decimal.RequireFromString("123.45")
	inv := &Invoice{ServiceValue: v}
	assert.Equal(t, "123.45", inv.ServiceValue.StringFixed(2))
	assert.True(t, inv.ServiceValue.Round(2).Equal(inv.ServiceValue))
}
