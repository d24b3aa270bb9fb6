package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rafaelreis-se/gym-nfse/internal/application/port"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
	"github.com/rafaelreis-se/gym-nfse/internal/retry"
	"github.com/rafaelreis-se/gym-nfse/internal/webservice"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Result is the tagged outcome of a workflow operation. Callers build
// user-facing responses from it without inspecting internal error types.
type Result struct {
	Success   bool                   `json:"success"`
	NewStatus workflow.State         `json:"new_status"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// StatusNotifier receives best-effort notifications after a status change.
// Implementations must never fail the triggering transition.
type StatusNotifier interface {
	OnStatusChange(ctx context.Context, invoiceID string, newStatus workflow.State) error
}

// CreateRPSInput carries the business payload for a new draft invoice
type CreateRPSInput struct {
	ServiceDescription string
	ServiceValue       decimal.Decimal
	ProviderTaxID      string
	RecipientName      string
	RecipientContact   string
	Series             string
	Number             int64
	LinkedEntityID     *string
}

// EmissionConfig holds workflow defaults. WebserviceRetry falls back to the
// webservice preset when left zero.
type EmissionConfig struct {
	DefaultSeries        string
	DefaultProviderTaxID string
	WebserviceRetry      retry.Options
}

// EmissionService orchestrates the RPS/NFS-e lifecycle
type EmissionService interface {
	CreateRPS(ctx context.Context, input CreateRPSInput) (*entity.Invoice, error)
	ValidateRPS(ctx context.Context, id string) (*Result, error)
	SendToWebservice(ctx context.Context, id string) (*Result, error)
	CheckProcessingStatus(ctx context.Context, id string) (*Result, error)
	CancelNFSe(ctx context.Context, id, reason string) (*Result, error)
	GetInvoice(ctx context.Context, id string) (*entity.Invoice, error)
	ListByStatus(ctx context.Context, status workflow.State, limit int) ([]*entity.Invoice, error)
}

type emissionServiceImpl struct {
	repo     port.InvoiceRepository
	ws       port.WebserviceClient
	signer   port.DocumentSigner
	retries  *retry.Engine
	notifier StatusNotifier
	config   EmissionConfig
	logger   Logger
}

// NewEmissionService creates a new EmissionService. notifier may be nil when
// no notification side effects are wanted.
func NewEmissionService(
	repo port.InvoiceRepository,
	ws port.WebserviceClient,
	docSigner port.DocumentSigner,
	retries *retry.Engine,
	notifier StatusNotifier,
	config EmissionConfig,
	logger Logger,
) EmissionService {
	if config.DefaultSeries == "" {
		config.DefaultSeries = "A"
	}
	if config.WebserviceRetry.MaxAttempts == 0 {
		config.WebserviceRetry = retry.WebservicePreset()
	}
	return &emissionServiceImpl{
		repo:     repo,
		ws:       ws,
		signer:   docSigner,
		retries:  retries,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// CreateRPS constructs a new invoice in DRAFT with a fresh sequence number.
func (s *emissionServiceImpl) CreateRPS(ctx context.Context, input CreateRPSInput) (*entity.Invoice, error) {
	series := input.Series
	if series == "" {
		series = s.config.DefaultSeries
	}
	providerTaxID := input.ProviderTaxID
	if providerTaxID == "" {
		providerTaxID = s.config.DefaultProviderTaxID
	}

	if input.Number != 0 {
		exists, err := s.repo.ExistsByNumberAndSeries(ctx, input.Number, series)
		if err != nil {
			return nil, fmt.Errorf("check sequence identity: %w", err)
		}
		if exists {
			return nil, emission.ErrConflict
		}
	}

	now := time.Now()
	inv := &entity.Invoice{
		ID:                 uuid.NewString(),
		Number:             input.Number,
		Series:             series,
		Status:             workflow.StateDraft,
		ServiceDescription: input.ServiceDescription,
		ServiceValue:       input.ServiceValue,
		ProviderTaxID:      providerTaxID,
		RecipientName:      input.RecipientName,
		RecipientContact:   input.RecipientContact,
		EmissionDate:       now,
		LinkedEntityID:     input.LinkedEntityID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("RPS created",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"series", inv.Series)
	return inv, nil
}

// ValidateRPS runs all business rules and moves DRAFT to VALIDATED. Every
// violated rule is reported, not just the first.
func (s *emissionServiceImpl) ValidateRPS(ctx context.Context, id string) (*Result, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != workflow.StateDraft {
		return nil, &emission.PreconditionError{
			Op:      "validate",
			Current: inv.Status,
			Message: "RPS must be in DRAFT to validate",
		}
	}

	violations := validateBusinessRules(inv)
	if len(violations) > 0 {
		s.logger.Info("RPS validation failed",
			"invoice_id", id,
			"violations", len(violations))
		return &Result{
			Success:   false,
			NewStatus: workflow.StateDraft,
			Message:   "validation failed",
			Data:      map[string]interface{}{"violations": violations},
		}, nil
	}

	if err := s.transition(ctx, inv, workflow.TriggerValidate, ""); err != nil {
		return nil, err
	}

	return &Result{Success: true, NewStatus: workflow.StateValidated, Message: "RPS validated"}, nil
}

func validateBusinessRules(inv *entity.Invoice) []string {
	var violations []string
	if inv.ServiceDescription == "" {
		violations = append(violations, "service description must not be empty")
	}
	if !inv.ServiceValue.IsPositive() {
		violations = append(violations, "service value must be greater than zero")
	}
	if !inv.ServiceValue.Round(2).Equal(inv.ServiceValue) {
		violations = append(violations, "service value must have at most 2 decimal places")
	}
	if inv.ProviderTaxID == "" {
		violations = append(violations, "provider tax id must not be empty")
	}
	if inv.RecipientName == "" {
		violations = append(violations, "recipient name must not be empty")
	}
	return violations
}

// SendToWebservice signs and transmits a VALIDATED invoice. The SENDING status
// is written before any network call so concurrent readers see it in flight.
func (s *emissionServiceImpl) SendToWebservice(ctx context.Context, id string) (*Result, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.Status != workflow.StateValidated {
		return nil, &emission.PreconditionError{
			Op:      "send",
			Current: inv.Status,
			Message: "RPS must be validated before sending",
		}
	}

	if err := s.transition(ctx, inv, workflow.TriggerStartSend, ""); err != nil {
		return nil, err
	}
	inv.Status = workflow.StateSending

	signedPayload, err := s.buildSignedPayload(inv)
	if err != nil {
		s.logger.Error("Failed to prepare RPS document", "invoice_id", id, "error", err)
		return s.failSend(ctx, inv, err.Error(), 0)
	}

	var sendResult *webservice.SendResult
	outcome := s.retries.Execute(ctx, "webservice-send", s.config.WebserviceRetry, func(ctx context.Context) error {
		result, err := s.ws.Send(ctx, signedPayload)
		if err != nil {
			return err
		}
		if !result.Success {
			// Explicit business rejection, never retried
			return &emission.RemoteRejectionError{Code: result.RemoteCode, Message: result.Observations}
		}
		sendResult = result
		return nil
	})

	if !outcome.Success() {
		s.logger.Error("RPS transmission failed",
			"invoice_id", id,
			"attempts", outcome.Attempts,
			"error", outcome.Err)
		return s.failSend(ctx, inv, outcome.Err.Error(), outcome.Attempts)
	}

	ref := &entity.TransmissionReference{
		Protocol:         sendResult.Protocol,
		RemoteNumber:     sendResult.RemoteNumber,
		RemoteCode:       sendResult.RemoteCode,
		VerificationCode: sendResult.VerificationCode,
		DocumentLink:     sendResult.DocumentLink,
		RemoteDate:       sendResult.RemoteDate,
	}
	if err := s.repo.SetTransmission(ctx, id, workflow.StateSending, ref); err != nil {
		return nil, err
	}

	s.logger.Info("RPS sent",
		"invoice_id", id,
		"protocol", ref.Protocol,
		"attempts", outcome.Attempts)
	s.notify(id, workflow.StateSent)

	return &Result{
		Success:   true,
		NewStatus: workflow.StateSent,
		Message:   "RPS transmitted",
		Data: map[string]interface{}{
			"attempts": outcome.Attempts,
			"protocol": ref.Protocol,
		},
	}, nil
}

func (s *emissionServiceImpl) buildSignedPayload(inv *entity.Invoice) (string, error) {
	payload, err := s.signer.BuildPayload(inv)
	if err != nil {
		return "", err
	}
	return s.signer.Sign(payload)
}

func (s *emissionServiceImpl) failSend(ctx context.Context, inv *entity.Invoice, observations string, attempts int) (*Result, error) {
	if err := s.transition(ctx, inv, workflow.TriggerFailSend, observations); err != nil {
		return nil, err
	}
	return &Result{
		Success:   false,
		NewStatus: workflow.StateSendError,
		Message:   observations,
		Data:      map[string]interface{}{"attempts": attempts},
	}, nil
}

// CheckProcessingStatus queries the remote status of a transmitted invoice and
// maps it onto the local lifecycle. Intended to be called repeatedly by an
// external scheduler; safe to invoke multiple times.
func (s *emissionServiceImpl) CheckProcessingStatus(ctx context.Context, id string) (*Result, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !inv.Transmitted() {
		return nil, &emission.PreconditionError{
			Op:      "check status",
			Current: inv.Status,
			Message: "invoice has no transmission protocol",
		}
	}

	var queryResult *webservice.QueryResult
	outcome := s.retries.Execute(ctx, "webservice-query", s.config.WebserviceRetry, func(ctx context.Context) error {
		result, err := s.ws.QueryStatus(ctx, inv.Transmission.Protocol)
		if err != nil {
			return err
		}
		queryResult = result
		return nil
	})

	if !outcome.Success() {
		s.logger.Error("Processing status query failed",
			"invoice_id", id,
			"attempts", outcome.Attempts,
			"error", outcome.Err)
		if err := s.transition(ctx, inv, workflow.TriggerFailProcessing, outcome.Err.Error()); err != nil {
			return nil, err
		}
		return &Result{
			Success:   false,
			NewStatus: workflow.StateProcessingError,
			Message:   outcome.Err.Error(),
			Data:      map[string]interface{}{"attempts": outcome.Attempts},
		}, nil
	}

	trigger, newStatus := mapRemoteStatus(queryResult.Status)
	observations := ""
	if newStatus == workflow.StateRejected {
		observations = queryResult.Observations
	}

	machine := workflow.BuildInvoiceStateMachine(inv.Status)
	if !machine.CanFire(trigger) {
		if inv.Status == newStatus {
			// Already there; polling is idempotent
			return &Result{Success: true, NewStatus: newStatus, Message: "status unchanged"}, nil
		}
		return nil, &emission.PreconditionError{Op: "check status", Current: inv.Status}
	}

	if err := s.repo.CompareAndSwapStatus(ctx, id, inv.Status, newStatus, observations); err != nil {
		return nil, err
	}

	s.logger.Info("Processing status updated",
		"invoice_id", id,
		"remote_status", queryResult.Status,
		"new_status", newStatus)
	if newStatus == workflow.StateApproved || newStatus == workflow.StateRejected {
		s.notify(id, newStatus)
	}

	return &Result{
		Success:   true,
		NewStatus: newStatus,
		Message:   fmt.Sprintf("remote status: %s", queryResult.Status),
	}, nil
}

// mapRemoteStatus maps the remote vocabulary onto the local lifecycle. Unknown
// statuses stay conservative: keep polling, never silently approve.
func mapRemoteStatus(remote string) (workflow.Trigger, workflow.State) {
	switch remote {
	case webservice.StatusApproved:
		return workflow.TriggerApprove, workflow.StateApproved
	case webservice.StatusRejected:
		return workflow.TriggerReject, workflow.StateRejected
	default:
		return workflow.TriggerMarkProcessing, workflow.StateProcessing
	}
}

// CancelNFSe cancels an invoice. For transmitted invoices the remote
// cancellation must succeed before the local CANCELLED write, so local and
// remote state never diverge.
func (s *emissionServiceImpl) CancelNFSe(ctx context.Context, id, reason string) (*Result, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !inv.Cancellable() {
		return nil, &emission.PreconditionError{
			Op:      "cancel",
			Current: inv.Status,
			Message: fmt.Sprintf("cannot cancel invoice in status %s", inv.Status),
		}
	}

	remoteActive := inv.Status == workflow.StateSent || inv.Status == workflow.StateProcessing
	if remoteActive {
		if err := s.cancelRemote(ctx, inv, reason); err != nil {
			s.logger.Error("Remote cancellation failed, local status unchanged",
				"invoice_id", id,
				"status", inv.Status,
				"error", err)
			return nil, err
		}
	}

	if err := s.transition(ctx, inv, workflow.TriggerCancel, reason); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cancelled", "invoice_id", id, "reason", reason)
	s.notify(id, workflow.StateCancelled)

	return &Result{Success: true, NewStatus: workflow.StateCancelled, Message: "invoice cancelled"}, nil
}

func (s *emissionServiceImpl) cancelRemote(ctx context.Context, inv *entity.Invoice, reason string) error {
	payload, err := s.signer.BuildCancelPayload(inv, reason)
	if err != nil {
		return err
	}
	signedPayload, err := s.signer.Sign(payload)
	if err != nil {
		return err
	}

	outcome := s.retries.Execute(ctx, "webservice-cancel", s.config.WebserviceRetry, func(ctx context.Context) error {
		result, err := s.ws.Cancel(ctx, signedPayload)
		if err != nil {
			return err
		}
		if !result.Success {
			return &emission.RemoteRejectionError{Code: result.RemoteCode, Message: result.Observations}
		}
		return nil
	})
	return outcome.Err
}

// GetInvoice loads one invoice by id
func (s *emissionServiceImpl) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByStatus lists invoices currently in the given status
func (s *emissionServiceImpl) ListByStatus(ctx context.Context, status workflow.State, limit int) ([]*entity.Invoice, error) {
	return s.repo.ListByStatus(ctx, status, limit)
}

// transition fires the trigger against the lifecycle machine and commits the
// resulting state with a conditional update, so a concurrent writer surfaces
// as ErrConcurrentModification instead of a lost update.
func (s *emissionServiceImpl) transition(ctx context.Context, inv *entity.Invoice, trigger workflow.Trigger, observations string) error {
	machine := workflow.BuildInvoiceStateMachine(inv.Status)
	next, ok := machine.TargetState(trigger)
	if !ok {
		return &emission.PreconditionError{Op: trigger.String(), Current: inv.Status}
	}
	return s.repo.CompareAndSwapStatus(ctx, inv.ID, inv.Status, next, observations)
}

// notify fires the best-effort status-change notification. Detached from the
// caller's context: delivery retries must not delay or fail the transition.
func (s *emissionServiceImpl) notify(invoiceID string, status workflow.State) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.notifier.OnStatusChange(ctx, invoiceID, status); err != nil {
			s.logger.Error("Status notification failed", "invoice_id", invoiceID, "status", status, "error", err)
		}
	}()
}
