package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/magma/magma-sub003/internal/models"
)

// CreateStatusRecord appends a status history point
func (s *PostgresStore) CreateStatusRecord(ctx context.Context, rec *models.StatusRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO enodeb_status (
            id, created_at, serial, state, connected, configured, op_state,
            rf_tx_on, rf_tx_desired, gps_connected, ptp_connected, mme_connected,
            cell_id, latitude, longitude
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.getDB().ExecContext(ctx, query,
		rec.ID, rec.CreatedAt, rec.Serial, rec.State, rec.Connected, rec.Configured,
		rec.OpState, rec.RFTXOn, rec.RFTXDesired, rec.GPSConnected, rec.PTPConnected,
		rec.MMEConnected, rec.CellID, rec.Latitude, rec.Longitude,
	)
	return err
}

// ListStatusRecords lists the history of serial, newest first
func (s *PostgresStore) ListStatusRecords(ctx context.Context, serial string, limit, offset int) ([]*models.StatusRecord, int64, error) {
	var count int64
	err := s.getDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM enodeb_status WHERE serial = $1", serial,
	).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, created_at, serial, state, connected, configured, op_state,
               rf_tx_on, rf_tx_desired, gps_connected, ptp_connected, mme_connected,
               cell_id, latitude, longitude
        FROM enodeb_status
        WHERE serial = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := s.getDB().QueryContext(ctx, query, serial, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*models.StatusRecord
	for rows.Next() {
		rec := &models.StatusRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Serial, &rec.State, &rec.Connected, &rec.Configured,
			&rec.OpState, &rec.RFTXOn, &rec.RFTXDesired, &rec.GPSConnected, &rec.PTPConnected,
			&rec.MMEConnected, &rec.CellID, &rec.Latitude, &rec.Longitude,
		); err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}

	return recs, count, rows.Err()
}
