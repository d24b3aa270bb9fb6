package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/pkg/database"
)

// StudentContactResolver resolves a linked student entity to its notification
// address. It reads the surrounding application's students table; nothing in
// this subsystem writes to it.
type StudentContactResolver struct {
	db     *database.DB
	logger *zap.Logger
}

// NewStudentContactResolver creates a new contact resolver
func NewStudentContactResolver(db *database.DB, logger *zap.Logger) *StudentContactResolver {
	return &StudentContactResolver{db: db, logger: logger}
}

// ResolveContact returns the student's name and email address.
func (r *StudentContactResolver) ResolveContact(ctx context.Context, linkedEntityID string) (string, string, error) {
	var name, email string
	err := r.db.QueryRowContext(ctx,
		"SELECT name, email FROM students WHERE id = ?", linkedEntityID).Scan(&name, &email)
	if err == sql.ErrNoRows {
		return "", "", emission.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to resolve contact",
			zap.String("linked_entity_id", linkedEntityID),
			zap.Error(err))
		return "", "", fmt.Errorf("failed to resolve contact: %w", err)
	}
	if email == "" {
		return "", "", emission.ErrNotFound
	}
	return name, email, nil
}
