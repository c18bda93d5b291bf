package accounting

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SnapshotRepository handles valuation snapshot rows
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Save upserts today's snapshot row (one row per calendar date)
func (r *SnapshotRepository) Save(totalValue decimal.Decimal, positionCount int) (Snapshot, error) {
	now := time.Now()
	snap := Snapshot{
		Date:          now.Format("2006-01-02"),
		TotalValue:    totalValue,
		PositionCount: positionCount,
		CreatedAt:     now.Format(time.RFC3339),
	}

	res, err := r.db.Exec(`
		INSERT INTO snapshots (date, total_value, position_count, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_value = excluded.total_value,
			position_count = excluded.position_count,
			created_at = excluded.created_at
	`, snap.Date, snap.TotalValue.String(), snap.PositionCount, snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to save snapshot: %w", domain.ErrPersistence)
	}

	snap.ID, _ = res.LastInsertId()

	r.log.Info().
		Str("date", snap.Date).
		Str("total_value", snap.TotalValue.String()).
		Int("position_count", snap.PositionCount).
		Msg("Valuation snapshot saved")

	return snap, nil
}

// GetHistory returns up to limit snapshots, most recent first
func (r *SnapshotRepository) GetHistory(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 90
	}

	rows, err := r.db.Query(`
		SELECT id, date, total_value, position_count, created_at
		FROM snapshots
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", domain.ErrPersistence)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var total string
		if err := rows.Scan(&snap.ID, &snap.Date, &total, &snap.PositionCount, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.TotalValue, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("malformed total_value %q: %w", total, err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snaps, nil
}
