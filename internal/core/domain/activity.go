package domain

import "time"

// Outcome values recorded in ActivityLogEntry.Detail["outcome"].
const (
	OutcomeAttempted = "attempted"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeForbidden = "forbidden"
	OutcomeDenied    = "denied"
)

// Origin describes where a request came from.
type Origin struct {
	IP        string `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty" bson:"request_id,omitempty"`
}

// ActivityLogEntry is an immutable audit record.
type ActivityLogEntry struct {
	ID         string         `json:"id" bson:"_id"`
	ActorID    string         `json:"actor_id" bson:"actor_id"`
	ActorRole  Role           `json:"actor_role" bson:"actor_role"`
	Action     string         `json:"action" bson:"action"`
	TargetType string         `json:"target_type,omitempty" bson:"target_type,omitempty"`
	TargetID   string         `json:"target_id,omitempty" bson:"target_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty" bson:"detail,omitempty"`
	Origin     Origin         `json:"origin" bson:"origin"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}
