package models

import "time"

// ENodeB is a radio that has opened at least one session
type ENodeB struct {
	Serial          string    `json:"serial" db:"serial"`
	Vendor          string    `json:"vendor" db:"vendor"`
	OUI             string    `json:"oui" db:"oui"`
	ProductClass    string    `json:"productClass,omitempty" db:"product_class"`
	SoftwareVersion string    `json:"softwareVersion,omitempty" db:"software_version"`
	ClientAddr      string    `json:"clientAddr,omitempty" db:"client_addr"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	LastInformAt    time.Time `json:"lastInformAt" db:"last_inform_at"`
}
