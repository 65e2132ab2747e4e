package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusRecord is one point of a radio's status history
type StatusRecord struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	Serial       string    `json:"serial" db:"serial"`
	State        string    `json:"state" db:"state"`
	Connected    bool      `json:"connected" db:"connected"`
	Configured   bool      `json:"configured" db:"configured"`
	OpState      bool      `json:"opState" db:"op_state"`
	RFTXOn       bool      `json:"rfTxOn" db:"rf_tx_on"`
	RFTXDesired  bool      `json:"rfTxDesired" db:"rf_tx_desired"`
	GPSConnected bool      `json:"gpsConnected" db:"gps_connected"`
	PTPConnected bool      `json:"ptpConnected" db:"ptp_connected"`
	MMEConnected bool      `json:"mmeConnected" db:"mme_connected"`
	CellID       int64     `json:"cellID" db:"cell_id"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
}
