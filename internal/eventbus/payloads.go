package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// CheckResultPayload mirrors the wire shape of event::CheckResult:
// {object, cr, authority}. HostName/ServiceDescription duplicate the
// envelope's ObjectRef for handlers that only look at the payload.
type CheckResultPayload struct {
	HostName           string
	ServiceDescription string
	CheckType          int
	ReturnCode         int
	Output             string
	StartTime          time.Time
	FinishTime         time.Time
	Latency            float64
	ExecutionTime      float64
}

// StateChangePayload mirrors event::StateChange: informational, canonical
// state is rederived by the receiver from its own Object Runtime.
type StateChangePayload struct {
	OldState     int
	NewState     int
	StateType    int
	HardChange   bool
	PluginOutput string
}

// NextCheckChangedPayload mirrors event::NextCheckChanged.
type NextCheckChangedPayload struct {
	NextCheck time.Time
}

// FlappingChangedPayload reports a flap-detection transition.
type FlappingChangedPayload struct {
	IsFlapping    bool
	PercentChange float64
}

// AcknowledgementPayload mirrors event::AcknowledgementSet / ...Cleared:
// {object, author, text, expiry, type}.
type AcknowledgementPayload struct {
	UUID   uuid.UUID
	Author string
	Text   string
	Expiry time.Time
	Type   int
}

// NotificationSentPayload records that a notification actually reached at
// least one contact.
type NotificationSentPayload struct {
	NotificationType int
	ContactsNotified int
}

// CommentPayload mirrors event::CommentAdded / ...Removed: {object, comment}.
type CommentPayload struct {
	UUID       uuid.UUID
	CommentID  uint64
	EntryType  int
	Author     string
	Text       string
	Persistent bool
}

// DowntimePayload mirrors event::DowntimeAdded / ...Removed / ...Triggered:
// {object, downtime}.
type DowntimePayload struct {
	UUID        uuid.UUID
	DowntimeID  uint64
	Author      string
	Comment     string
	StartTime   time.Time
	EndTime     time.Time
	Fixed       bool
	TriggeredBy uint64
}

// ConfigUpdatePayload mirrors config::Update, used both for locally
// originated config changes and for replay-log compaction (§ replay).
type ConfigUpdatePayload struct {
	Properties map[string]interface{}
}
