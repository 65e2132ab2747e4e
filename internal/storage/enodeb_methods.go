package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magma/magma-sub003/internal/models"
)

// UpsertENodeB records an eNodeB, keeping its original creation time
func (s *PostgresStore) UpsertENodeB(ctx context.Context, enb *models.ENodeB) error {
	if enb.Serial == "" {
		return fmt.Errorf("%w: empty serial", ErrInvalidData)
	}

	now := time.Now()
	if enb.CreatedAt.IsZero() {
		enb.CreatedAt = now
	}
	enb.UpdatedAt = now
	if enb.LastInformAt.IsZero() {
		enb.LastInformAt = now
	}

	query := `
        INSERT INTO enodebs (
            serial, vendor, oui, product_class, software_version,
            client_addr, created_at, updated_at, last_inform_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (serial) DO UPDATE SET
            vendor = EXCLUDED.vendor,
            oui = EXCLUDED.oui,
            product_class = EXCLUDED.product_class,
            software_version = EXCLUDED.software_version,
            client_addr = EXCLUDED.client_addr,
            updated_at = EXCLUDED.updated_at,
            last_inform_at = EXCLUDED.last_inform_at
        RETURNING created_at`

	return s.getDB().QueryRowContext(ctx, query,
		enb.Serial, enb.Vendor, enb.OUI, enb.ProductClass, enb.SoftwareVersion,
		enb.ClientAddr, enb.CreatedAt, enb.UpdatedAt, enb.LastInformAt,
	).Scan(&enb.CreatedAt)
}

// GetENodeB gets an eNodeB by serial
func (s *PostgresStore) GetENodeB(ctx context.Context, serial string) (*models.ENodeB, error) {
	query := `
        SELECT serial, vendor, oui, product_class, software_version,
               client_addr, created_at, updated_at, last_inform_at
        FROM enodebs
        WHERE serial = $1`

	enb := &models.ENodeB{}
	err := s.getDB().QueryRowContext(ctx, query, serial).Scan(
		&enb.Serial, &enb.Vendor, &enb.OUI, &enb.ProductClass, &enb.SoftwareVersion,
		&enb.ClientAddr, &enb.CreatedAt, &enb.UpdatedAt, &enb.LastInformAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return enb, nil
}

// ListENodeBs lists eNodeBs ordered by serial
func (s *PostgresStore) ListENodeBs(ctx context.Context, limit, offset int) ([]*models.ENodeB, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM enodebs").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT serial, vendor, oui, product_class, software_version,
               client_addr, created_at, updated_at, last_inform_at
        FROM enodebs
        ORDER BY serial
        LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var enbs []*models.ENodeB
	for rows.Next() {
		enb := &models.ENodeB{}
		if err := rows.Scan(
			&enb.Serial, &enb.Vendor, &enb.OUI, &enb.ProductClass, &enb.SoftwareVersion,
			&enb.ClientAddr, &enb.CreatedAt, &enb.UpdatedAt, &enb.LastInformAt,
		); err != nil {
			return nil, 0, err
		}
		enbs = append(enbs, enb)
	}

	return enbs, count, rows.Err()
}
