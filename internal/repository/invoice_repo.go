package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/entity"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
	"github.com/rafaelreis-se/gym-nfse/pkg/database"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `
	id, number, series, status, service_description, service_value,
	provider_tax_id, recipient_name, recipient_contact, emission_date,
	protocol, remote_number, remote_code, verification_code, document_link,
	remote_date, observations, linked_entity_id, created_at, updated_at
`

// Create persists a new invoice. When Number is zero the next number for the
// series is allocated inside the same transaction as the insert, so
// concurrent creations cannot observe the same value: SQLite serializes
// writers, and the UNIQUE(number, series) index backstops other backends.
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		if inv.Number == 0 {
			row := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(number), 0) + 1 FROM invoices WHERE series = ?", inv.Series)
			if err := row.Scan(&inv.Number); err != nil {
				return fmt.Errorf("allocate sequence number: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (
				id, number, series, status, service_description, service_value,
				provider_tax_id, recipient_name, recipient_contact, emission_date,
				observations, linked_entity_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.Number, inv.Series, inv.Status.String(),
			inv.ServiceDescription, inv.ServiceValue.String(),
			inv.ProviderTaxID, inv.RecipientName, inv.RecipientContact,
			inv.EmissionDate, inv.Observations, inv.LinkedEntityID,
			inv.CreatedAt, inv.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return emission.ErrConflict
		}
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetByID loads one invoice by id
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, emission.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load invoice", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return inv, nil
}

// ExistsByNumberAndSeries reports whether the sequence identity is taken
func (r *InvoiceRepository) ExistsByNumberAndSeries(ctx context.Context, number int64, series string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM invoices WHERE number = ? AND series = ?", number, series).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check sequence identity: %w", err)
	}
	return count > 0, nil
}

// CompareAndSwapStatus conditionally moves the invoice between states.
func (r *InvoiceRepository) CompareAndSwapStatus(ctx context.Context, id string, expected, next workflow.State, observations string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, observations = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		next.String(), observations, time.Now(), id, expected.String())
	if err != nil {
		r.logger.Error("Failed to update invoice status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// SetTransmission writes SENT plus the external-reference fields atomically.
// The protocol IS NULL guard makes the reference write-once.
func (r *InvoiceRepository) SetTransmission(ctx context.Context, id string, expected workflow.State, ref *entity.TransmissionReference) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET
			status = ?, protocol = ?, remote_number = ?, remote_code = ?,
			verification_code = ?, document_link = ?, remote_date = ?, updated_at = ?
		WHERE id = ? AND status = ? AND protocol IS NULL`,
		workflow.StateSent.String(), ref.Protocol, ref.RemoteNumber, ref.RemoteCode,
		ref.VerificationCode, ref.DocumentLink, ref.RemoteDate, time.Now(),
		id, expected.String())
	if err != nil {
		r.logger.Error("Failed to record transmission", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to record transmission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

// ListByStatus lists invoices currently in the given status
func (r *InvoiceRepository) ListByStatus(ctx context.Context, status workflow.State, limit int) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE status = ? ORDER BY emission_date DESC LIMIT ?",
		status.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// ListSentBefore returns invoices still awaiting a processing outcome whose
// emission date is at or before the cutoff.
func (r *InvoiceRepository) ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN (?, ?) AND emission_date <= ?
		ORDER BY emission_date ASC LIMIT ?`,
		workflow.StateSent.String(), workflow.StateProcessing.String(), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// missReason distinguishes a missing invoice from a lost CAS race
func (r *InvoiceRepository) missReason(ctx context.Context, id string) error {
	var count int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM invoices WHERE id = ?", id).Scan(&count); err != nil {
		return fmt.Errorf("failed to check invoice existence: %w", err)
	}
	if count == 0 {
		return emission.ErrNotFound
	}
	return emission.ErrConcurrentModification
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var status, serviceValue string
	var protocol, remoteNumber, remoteCode, verificationCode, documentLink sql.NullString
	var remoteDate sql.NullTime
	var linkedEntityID sql.NullString

	err := row.Scan(
		&inv.ID, &inv.Number, &inv.Series, &status, &inv.ServiceDescription,
		&serviceValue, &inv.ProviderTaxID, &inv.RecipientName, &inv.RecipientContact,
		&inv.EmissionDate, &protocol, &remoteNumber, &remoteCode, &verificationCode,
		&documentLink, &remoteDate, &inv.Observations, &linkedEntityID,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = workflow.State(status)
	value, err := decimal.NewFromString(serviceValue)
	if err != nil {
		return nil, fmt.Errorf("invalid stored service value %q: %w", serviceValue, err)
	}
	inv.ServiceValue = value

	if linkedEntityID.Valid {
		inv.LinkedEntityID = &linkedEntityID.String
	}
	if protocol.Valid && protocol.String != "" {
		inv.Transmission = &entity.TransmissionReference{
			Protocol:         protocol.String,
			RemoteNumber:     remoteNumber.String,
			RemoteCode:       remoteCode.String,
			VerificationCode: verificationCode.String,
			DocumentLink:     documentLink.String,
			RemoteDate:       remoteDate.Time,
		}
	}
	return &inv, nil
}

func scanInvoices(rows *sql.Rows) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
