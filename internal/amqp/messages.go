package amqp

import (
	"encoding/json"
	"time"

	"timetrack/internal/core"
)

// EntryEventMessage announces a committed time entry change. Times are
// absolute instants; consumers format them for display.
type EntryEventMessage struct {
	Event       string    `json:"event"`
	EntryID     string    `json:"entryId"`
	OwnerID     string    `json:"ownerId"`
	ProjectID   string    `json:"projectId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationMin int64     `json:"duration"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewEntryEventMessage(event string, e core.TimeEntry) *EntryEventMessage {
	return &EntryEventMessage{
		Event:       event,
		EntryID:     e.ID,
		OwnerID:     e.OwnerID,
		ProjectID:   e.ProjectID,
		StartTime:   e.Start,
		EndTime:     e.End,
		DurationMin: e.Duration,
		Timestamp:   time.Now(),
	}
}

func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProjectDeactivatedMessage carries just enough to find the project's
// remaining entries; the worker reads everything else from the store.
type ProjectDeactivatedMessage struct {
	OwnerID        string    `json:"ownerId"`
	ProjectID      string    `json:"projectId"`
	EntriesRemoved int64     `json:"entriesRemoved"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewProjectDeactivatedMessage(ownerID, projectID string, removed int64) *ProjectDeactivatedMessage {
	return &ProjectDeactivatedMessage{
		OwnerID:        ownerID,
		ProjectID:      projectID,
		EntriesRemoved: removed,
		Timestamp:      time.Now(),
	}
}

func (m *ProjectDeactivatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProjectDeactivatedMessageFromJSON decodes and sanity checks a message.
func ProjectDeactivatedMessageFromJSON(data []byte) (*ProjectDeactivatedMessage, error) {
	var msg ProjectDeactivatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" || msg.ProjectID == "" {
		return nil, errMissingIDs
	}
	return &msg, nil
}
