package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rafaelreis-se/gym-nfse/internal/application/port"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
	"github.com/rafaelreis-se/gym-nfse/internal/notification"
	"github.com/rafaelreis-se/gym-nfse/internal/retry"
)

// statusTemplates maps lifecycle states to their notification templates.
// Statuses absent here produce no notification.
var statusTemplates = map[workflow.State]string{
	workflow.StateSent:      notification.TemplateSent,
	workflow.StateApproved:  notification.TemplateApproved,
	workflow.StateRejected:  notification.TemplateRejected,
	workflow.StateCancelled: notification.TemplateCancelled,
}

// NotificationService handles the customer-facing side effects of the
// emission workflow. All status-change notifications are best-effort: delivery
// failure is logged and swallowed, never propagated to the workflow.
type NotificationService interface {
	// OnStatusChange delivers the notification for a status transition, if
	// any. Missing contact is a logged no-op.
	OnStatusChange(ctx context.Context, invoiceID string, newStatus workflow.State) error

	// SendDocumentToCustomer explicitly hands the approved invoice to the
	// customer. Unlike the trigger, callers learn whether it worked.
	SendDocumentToCustomer(ctx context.Context, invoiceID string) (bool, error)

	// NotifyBatch delivers the customer document for each id concurrently.
	NotifyBatch(ctx context.Context, invoiceIDs []string) retry.BatchOutcome

	// SendReminders notifies customers of invoices awaiting processing for at
	// least olderThanDays days, returning how many reminders were delivered.
	SendReminders(ctx context.Context, olderThanDays int) (int, error)
}

type notificationServiceImpl struct {
	repo       port.InvoiceRepository
	contacts   port.ContactResolver
	dispatcher port.NotificationDispatcher
	retries    *retry.Engine
	emailRetry retry.Options
	logger     Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	repo port.InvoiceRepository,
	contacts port.ContactResolver,
	dispatcher port.NotificationDispatcher,
	retries *retry.Engine,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		repo:       repo,
		contacts:   contacts,
		dispatcher: dispatcher,
		retries:    retries,
		emailRetry: retry.EmailPreset(),
		logger:     logger,
	}
}

// OnStatusChange delivers the notification mapped to the new status.
func (s *notificationServiceImpl) OnStatusChange(ctx context.Context, invoiceID string, newStatus workflow.State) error {
	templateName, ok := statusTemplates[newStatus]
	if !ok {
		return nil
	}

	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}

	address := s.resolveAddress(ctx, inv)
	if address == "" {
		s.logger.Info("No contact resolvable, skipping notification",
			"invoice_id", invoiceID,
			"status", newStatus)
		return nil
	}

	outcome := s.retries.Execute(ctx, "notify-"+string(newStatus), s.emailRetry, func(ctx context.Context) error {
		_, err := s.dispatcher.Send(ctx, address, templateName, templateData(inv))
		return err
	})
	if !outcome.Success() {
		// Notification is a side effect, not part of the transition contract
		s.logger.Error("Notification delivery failed after retries",
			"invoice_id", invoiceID,
			"template", templateName,
			"attempts", outcome.Attempts,
			"error", outcome.Err)
		return nil
	}

	s.logger.Info("Status notification delivered",
		"invoice_id", invoiceID,
		"template", templateName,
		"attempts", outcome.Attempts)
	return nil
}

// SendDocumentToCustomer delivers the approved invoice to its customer.
func (s *notificationServiceImpl) SendDocumentToCustomer(ctx context.Context, invoiceID string) (bool, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return false, err
	}

	if inv.Status != workflow.StateApproved {
		s.logger.Info("Invoice not approved, document not sent",
			"invoice_id", invoiceID,
			"status", inv.Status)
		return false, nil
	}

	address := s.resolveAddress(ctx, inv)
	if address == "" {
		return false, nil
	}

	outcome := s.retries.Execute(ctx, "customer-delivery", s.emailRetry, func(ctx context.Context) error {
		_, err := s.dispatcher.Send(ctx, address, notification.TemplateCustomerDelivery, templateData(inv))
		return err
	})
	if !outcome.Success() {
		return false, outcome.Err
	}

	s.logger.Info("Invoice delivered to customer",
		"invoice_id", invoiceID,
		"attempts", outcome.Attempts)
	return true, nil
}

// NotifyBatch delivers the customer document for every id concurrently. Each
// id is an independent scheduling unit; outcomes come back in input order.
func (s *notificationServiceImpl) NotifyBatch(ctx context.Context, invoiceIDs []string) retry.BatchOutcome {
	ops := make([]retry.Operation, len(invoiceIDs))
	for i, id := range invoiceIDs {
		id := id
		ops[i] = retry.Operation{
			Name: "deliver-" + id,
			Run: func(ctx context.Context) error {
				return s.deliverOnce(ctx, id)
			},
		}
	}

	outcome := s.retries.ExecuteBatch(ctx, ops, s.emailRetry)
	s.logger.Info("Batch notification finished",
		"total", len(invoiceIDs),
		"succeeded", outcome.Succeeded,
		"failed", outcome.Failed)
	return outcome
}

// deliverOnce is a single delivery attempt for the batch path; the batch
// engine owns the retries.
func (s *notificationServiceImpl) deliverOnce(ctx context.Context, invoiceID string) error {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != workflow.StateApproved {
		return fmt.Errorf("invoice %s not approved", invoiceID)
	}
	address := s.resolveAddress(ctx, inv)
	if address == "" {
		return fmt.Errorf("invoice %s has no resolvable contact", invoiceID)
	}
	_, err = s.dispatcher.Send(ctx, address, notification.TemplateCustomerDelivery, templateData(inv))
	return err
}

// SendReminders sweeps invoices still awaiting processing and reminds their
// customers. Invoked by an external scheduler; this core owns no timer.
func (s *notificationServiceImpl) SendReminders(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	pending, err := s.repo.ListSentBefore(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	sent := 0
	now := time.Now()
	for _, inv := range pending {
		address := s.resolveAddress(ctx, inv)
		if address == "" {
			continue
		}

		data := templateData(inv)
		data["days"] = strconv.Itoa(inv.DaysSinceEmission(now))

		outcome := s.retries.Execute(ctx, "reminder-"+inv.ID, s.emailRetry, func(ctx context.Context) error {
			_, err := s.dispatcher.Send(ctx, address, notification.TemplateReminder, data)
			return err
		})
		if outcome.Success() {
			sent++
		} else {
			s.logger.Error("Reminder delivery failed",
				"invoice_id", inv.ID,
				"error", outcome.Err)
		}
	}

	s.logger.Info("Reminder sweep finished", "candidates", len(pending), "sent", sent)
	return sent, nil
}

// resolveAddress prefers the invoice's own contact, falling back to the linked
// customer entity.
func (s *notificationServiceImpl) resolveAddress(ctx context.Context, inv *entity.Invoice) string {
	if inv.RecipientContact != "" {
		return inv.RecipientContact
	}
	if inv.LinkedEntityID == nil {
		return ""
	}
	_, address, err := s.contacts.ResolveContact(ctx, *inv.LinkedEntityID)
	if err != nil {
		s.logger.Info("Contact lookup failed",
			"invoice_id", inv.ID,
			"linked_entity_id", *inv.LinkedEntityID,
			"error", err)
		return ""
	}
	return address
}

// templateData flattens the invoice into the substitution map shared by all
// templates.
func templateData(inv *entity.Invoice) map[string]string {
	data := map[string]string{
		"number":         strconv.FormatInt(inv.Number, 10),
		"series":         inv.Series,
		"recipient_name": inv.RecipientName,
		"service_value":  inv.ServiceValue.StringFixed(2),
		"observations":   inv.Observations,
	}
	if inv.Transmission != nil {
		data["protocol"] = inv.Transmission.Protocol
		data["document_link"] = inv.Transmission.DocumentLink
		data["verification_code"] = inv.Transmission.VerificationCode
	}
	return data
}
