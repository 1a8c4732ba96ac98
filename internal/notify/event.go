package notify

import "time"

// Event types delivered to subscribers.
const (
	TypeConnected     = "connected"
	TypeStatusChanged = "status_changed"
	TypeRecordDeleted = "record_deleted"
)

// Event is one notification delivered to an owner's subscribers. Delivery is
// at-most-once: a subscriber that cannot keep up loses events rather than
// stalling the publisher.
type Event struct {
	Type      string    `json:"type"`
	RecordID  string    `json:"recordId,omitempty"`
	NewStatus string    `json:"newStatus,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// StatusChangedEvent builds the artifact status transition event.
func StatusChangedEvent(recordID, status, detail string) Event {
	return Event{
		Type:      TypeStatusChanged,
		RecordID:  recordID,
		NewStatus: status,
		Detail:    detail,
		At:        time.Now().UTC(),
	}
}

// RecordDeletedEvent builds the deletion event.
func RecordDeletedEvent(recordID string) Event {
	return Event{
		Type:     TypeRecordDeleted,
		RecordID: recordID,
		At:       time.Now().UTC(),
	}
}
