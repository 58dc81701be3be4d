package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// TransitionsRepository reads the status-transition audit trail. Records are
// written exclusively by TripsRepository.ApplyTransition; there is no write
// path here and no delete path anywhere.
type TransitionsRepository struct {
	db *sql.DB
}

// NewTransitionsRepository creates a new transitions repository.
func NewTransitionsRepository(db *sql.DB) *TransitionsRepository {
	return &TransitionsRepository{db: db}
}

// ListByTripID retrieves the audit trail of a trip, oldest first.
func (r *TransitionsRepository) ListByTripID(ctx context.Context, tripID uuid.UUID) ([]*domain.StatusTransition, error) {
	query := `
		SELECT id, trip_id, from_status, to_status, actor_id, reason, created_at
		FROM status_transitions
		WHERE trip_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.StatusTransition
	for rows.Next() {
		var rec domain.StatusTransition
		err := rows.Scan(
			&rec.ID, &rec.TripID, &rec.FromStatus, &rec.ToStatus,
			&rec.ActorID, &rec.Reason, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
