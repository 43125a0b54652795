package events

import (
	"encoding/json"
	"time"
)

const (
	TypeSyncStarted   = "sync.started"
	TypeSyncCompleted = "sync.completed"
	TypeSyncFailed    = "sync.failed"
	TypeSectionFailed = "section.failed"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type SyncData struct {
	JobID      string `json:"jobId"`
	ProviderID string `json:"providerId"`
	Created    int    `json:"created,omitempty"`
	Updated    int    `json:"updated,omitempty"`
	Removed    int    `json:"removed,omitempty"`
	Errors     int    `json:"errors,omitempty"`
	Error      string `json:"error,omitempty"`
}

type SectionData struct {
	JobID    string `json:"jobId"`
	Category string `json:"category"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
