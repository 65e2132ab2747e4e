package models

import (
	"time"

	"github.com/google/uuid"
)

// EventLog represents an event log entry
type EventLog struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	Serial      string     `json:"serial,omitempty" db:"serial"`
	Type        EventType  `json:"type" db:"type"`
	Level       EventLevel `json:"level" db:"level"`
	Description string     `json:"description" db:"description"`
	Details     Variables  `json:"details,omitempty" db:"details"`
}

// EventType represents event types
type EventType string

const (
	// Device events
	EventTypeSessionEnd      EventType = "SESSION_END"
	EventTypeConfigured      EventType = "CONFIGURED"
	EventTypeUnconfigured    EventType = "UNCONFIGURED"
	EventTypeDisconnected    EventType = "DISCONNECTED"
	EventTypeRebootRequested EventType = "REBOOT_REQUESTED"

	// System events
	EventTypeConfigReload EventType = "CONFIG_RELOAD"
	EventTypeMMEAttach    EventType = "MME_ATTACH"
)

// EventLevel represents event severity levels
type EventLevel string

const (
	EventLevelDebug   EventLevel = "DEBUG"
	EventLevelInfo    EventLevel = "INFO"
	EventLevelWarning EventLevel = "WARNING"
	EventLevelError   EventLevel = "ERROR"
)
