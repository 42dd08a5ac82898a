// Package eventlog provides the durable, rotating record of pipeline
// events. Writes are queued and flushed off the detection hot path;
// alert transitions and session boundaries are never dropped.
package eventlog

import "time"

// Kind discriminates event records in the persisted log.
type Kind string

const (
	KindDetection    Kind = "DETECTION"
	KindAlertRaised  Kind = "ALERT_RAISED"
	KindAlertCleared Kind = "ALERT_CLEARED"
	KindSessionStart Kind = "SESSION_START"
	KindSessionEnd   Kind = "SESSION_END"
	KindError        Kind = "ERROR"
)

// Critical reports whether events of this kind must never be dropped,
// even under queue or disk pressure.
func (k Kind) Critical() bool {
	switch k {
	case KindAlertRaised, KindAlertCleared, KindSessionStart, KindSessionEnd:
		return true
	default:
		return false
	}
}

// Event is one persisted log record. Once written it is immutable.
type Event struct {
	Ts      int64          `json:"ts"` // epoch milliseconds
	Kind    Kind           `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(kind Kind, payload map[string]any) Event {
	return Event{
		Ts:      time.Now().UnixMilli(),
		Kind:    kind,
		Payload: payload,
	}
}
