// Package domain declares alert destinations and delivery records
package domain

import (
	"encoding/json"
	"time"
)

// Method names how a destination wants alerts shipped
type Method string

// Destination methods. Console is the only one with a working sink;
// webhook and transport rows keep their descriptors for an external
// shipper and only get delivery bookkeeping here
const (
	MethodConsole   Method = "console"
	MethodWebhook   Method = "webhook"
	MethodTransport Method = "transport"
)

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	return m == MethodConsole || m == MethodWebhook || m == MethodTransport
}

// Destination is one configured alert target. A nil RuleID subscribes it
// to every rule
type Destination struct {
	ID        string
	RuleID    *string
	Method    Method
	Target    json.RawMessage
	IsActive  bool
	CreatedAt time.Time
}

// Draft is the authorable subset of a destination
type Draft struct {
	RuleID   *string
	Method   Method
	Target   json.RawMessage
	IsActive *bool // nil -> active
}

// Patch mutates a destination's target or active flag
type Patch struct {
	Target   json.RawMessage // nil keeps the stored target
	IsActive *bool
}

// Delivery statuses
const (
	// DeliveryLogged means the console sink wrote the alert line
	DeliveryLogged = "logged"

	// DeliveryRecorded means the emission was booked for a method this
	// process does not transport
	DeliveryRecorded = "recorded"
)

// Delivery is one emission record. The primary key over rule, notice,
// and destination makes re-emission after a crash idempotent
type Delivery struct {
	RuleID        string
	NoticeID      string
	DestinationID string
	EmittedAt     time.Time
	Status        string
}
