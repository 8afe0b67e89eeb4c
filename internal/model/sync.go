package model

import (
	"encoding/json"
	"time"
)

const (
	EntityProgress   = "progress"
	EntityAssignment = "assignment"
)

// ChangeRecord is what a client submits: an entity kind, a loosely typed
// payload and the client-side time of the change.
type ChangeRecord struct {
	Entity    string                 `json:"entity"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`

	// Malformed is set when the submitted element did not have the expected
	// shape. The change is then rejected on its own instead of failing the batch.
	Malformed string `json:"-"`
}

// UnmarshalJSON never fails, so one badly shaped change cannot fail the
// binding of the whole request.
func (c *ChangeRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		Entity    interface{} `json:"entity"`
		Data      interface{} `json:"data"`
		Timestamp interface{} `json:"timestamp"`
	}
	*c = ChangeRecord{}
	if err := json.Unmarshal(b, &raw); err != nil {
		c.Malformed = "change must be an object"
		return nil
	}

	switch entity := raw.Entity.(type) {
	case string:
		c.Entity = entity
	case nil:
	default:
		c.Malformed = "entity must be a string"
	}

	switch data := raw.Data.(type) {
	case map[string]interface{}:
		c.Data = data
	case nil:
	default:
		if c.Malformed == "" {
			c.Malformed = "data must be an object"
		}
	}

	switch ts := raw.Timestamp.(type) {
	case string:
		c.Timestamp = ts
	case nil:
	default:
		if c.Malformed == "" {
			c.Malformed = "timestamp must be an ISO8601 string"
		}
	}
	return nil
}

// ServerChange is what the server sends back during catch-up.
type ServerChange struct {
	Entity    string      `json:"entity"`
	ID        string      `json:"id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type ChangeStatus string

const (
	ChangeSynced   ChangeStatus = "synced"
	ChangeRejected ChangeStatus = "rejected"
	ChangeConflict ChangeStatus = "conflict"
)

// ChangeResult reports the outcome of one submitted change, by input index.
type ChangeResult struct {
	Index  int          `json:"index"`
	Entity string       `json:"entity"`
	ID     string       `json:"id,omitempty"`
	Status ChangeStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Conflict describes a client change that lost to a newer server state.
type Conflict struct {
	Entity          string          `json:"entity"`
	ID              string          `json:"id"`
	LessonID        string          `json:"lesson_id"`
	ClientTimestamp time.Time       `json:"client_timestamp"`
	ServerTimestamp time.Time       `json:"server_timestamp"`
	ServerData      *ProgressRecord `json:"server_data"`
}

type SyncRequest struct {
	LastSync *string        `json:"last_sync"`
	Changes  []ChangeRecord `json:"changes"`
}

type SyncResult struct {
	SyncToken string         `json:"sync_token"`
	Changes   []ServerChange `json:"changes"`
	Results   []ChangeResult `json:"results"`
	Conflicts []Conflict     `json:"conflicts"`
}
