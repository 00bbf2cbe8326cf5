package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// EntityKind identifies the kind of an entity. The set is open; kinds other
// than knowledge, incident and task carry no payload.
type EntityKind string

const (
	KindKnowledge EntityKind = "knowledge"
	KindIncident  EntityKind = "incident"
	KindTask      EntityKind = "task"
	KindGeneric   EntityKind = "generic"
)

// Entity is a typed record stored by recall.
type Entity struct {
	ID    string     `json:"id"`
	Kind  EntityKind `json:"kind"`
	Title string     `json:"title"`
	Body  string     `json:"body"`

	// Metadata holds caller-defined fields such as tags, status, priority
	// and category. Its shape is not validated.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// RelationshipRefs and SearchMetadata are opaque and never consulted
	// by the graph or the search pipeline.
	RelationshipRefs map[string]interface{} `json:"relationship_refs,omitempty"`
	SearchMetadata   map[string]interface{} `json:"search_metadata,omitempty"`

	Payload Payload `json:"kind_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type entityJSON struct {
	ID               string                 `json:"id"`
	Kind             EntityKind             `json:"kind"`
	Title            string                 `json:"title"`
	Body             string                 `json:"body"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	RelationshipRefs map[string]interface{} `json:"relationship_refs,omitempty"`
	SearchMetadata   map[string]interface{} `json:"search_metadata,omitempty"`
	Payload          json.RawMessage        `json:"kind_payload,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := entityJSON{
		ID:               e.ID,
		Kind:             e.Kind,
		Title:            e.Title,
		Body:             e.Body,
		Metadata:         e.Metadata,
		RelationshipRefs: e.RelationshipRefs,
		SearchMetadata:   e.SearchMetadata,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.Payload != nil {
		raw, err := EncodePayload(e.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The payload variant is chosen
// by the decoded kind.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var in entityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	payload, err := DecodePayload(in.Kind, in.Payload)
	if err != nil {
		return err
	}
	*e = Entity{
		ID:               in.ID,
		Kind:             in.Kind,
		Title:            in.Title,
		Body:             in.Body,
		Metadata:         in.Metadata,
		RelationshipRefs: in.RelationshipRefs,
		SearchMetadata:   in.SearchMetadata,
		Payload:          payload,
		CreatedAt:        in.CreatedAt,
		UpdatedAt:        in.UpdatedAt,
	}
	return nil
}

// Validate checks the fields required to persist the entity.
func (e *Entity) Validate() error {
	if e == nil {
		return NewValidationError("entity", "cannot be nil")
	}
	if strings.TrimSpace(string(e.Kind)) == "" {
		return NewValidationError("kind", "cannot be empty")
	}
	if strings.TrimSpace(e.Title) == "" {
		return NewValidationError("title", "cannot be empty")
	}
	if e.Payload == nil {
		return nil
	}
	if e.Payload.Kind() != e.Kind {
		return NewValidationError("kind_payload", fmt.Sprintf("%s payload does not match kind %s", e.Payload.Kind(), e.Kind))
	}
	switch p := e.Payload.(type) {
	case *KnowledgePayload:
		if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
			return NewValidationError("confidence_score", "must be between 0 and 1")
		}
	case *TaskPayload:
		if p.CompletionPercentage < 0 || p.CompletionPercentage > 100 {
			return NewValidationError("completion_percentage", "must be between 0 and 100")
		}
	}
	return nil
}

// ApplyDefaults fills a missing payload, and unset payload fields, with
// the defaults for the entity kind. A knowledge confidence score of 0 is
// kept as given.
func (e *Entity) ApplyDefaults() {
	if e.Payload == nil {
		e.Payload = DefaultPayload(e.Kind)
		return
	}
	e.Payload.applyDefaults()
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = cloneMap(e.Metadata)
	c.RelationshipRefs = cloneMap(e.RelationshipRefs)
	c.SearchMetadata = cloneMap(e.SearchMetadata)
	if e.Payload != nil {
		c.Payload = e.Payload.clone()
	}
	return &c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return cloneMap(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(v)
	}
	return v
}

// Knowledge returns the knowledge payload, if any.
func (e *Entity) Knowledge() (*KnowledgePayload, bool) {
	p, ok := e.Payload.(*KnowledgePayload)
	return p, ok && p != nil
}

// Incident returns the incident payload, if any.
func (e *Entity) Incident() (*IncidentPayload, bool) {
	p, ok := e.Payload.(*IncidentPayload)
	return p, ok && p != nil
}

// Task returns the task payload, if any.
func (e *Entity) Task() (*TaskPayload, bool) {
	p, ok := e.Payload.(*TaskPayload)
	return p, ok && p != nil
}

// Field looks up key in the metadata first and then in the payload.
func (e *Entity) Field(key string) (interface{}, bool) {
	if v, ok := e.Metadata[key]; ok {
		return v, true
	}
	if e.Payload != nil {
		return e.Payload.field(key)
	}
	return nil, false
}

// MetadataString returns metadata[key] when it is a string.
func (e *Entity) MetadataString(key string) string {
	if s, ok := e.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// Tags returns metadata["tags"] as a string slice. Comma separated strings
// are split.
func (e *Entity) Tags() []string {
	return StringList(e.Metadata["tags"])
}

// HasTag reports whether the entity carries tag, ignoring case.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// StringList converts a decoded value into a slice of strings. It accepts
// []string, []interface{} and comma separated strings.
func StringList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}
