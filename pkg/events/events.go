// Package events defines the domain events published after a workflow change
// is committed to the store.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow event.
const Topic = "librarian.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	StageInstantiatedEvent   EventType = "stage.instantiated"
	AssessmentCompletedEvent EventType = "assessment.completed"
	GraphRejectedEvent       EventType = "graph.rejected"
	ReleaseCreatedEvent      EventType = "release.created"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	GraphID   string         `json:"graph_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StageInstantiated is published once a stage and its actions are persisted.
type StageInstantiated struct {
	BaseEvent

	StageID        string   `json:"stage_id"`
	TemplateID     string   `json:"template_id"`
	Identifier     string   `json:"identifier"`
	ResultOf       string   `json:"result_of,omitempty"`
	ActionIDs      []string `json:"action_ids"`
	ReleaseVersion string   `json:"release_version,omitempty"`
}

func (e StageInstantiated) GetType() EventType {
	return StageInstantiatedEvent
}

// AssessmentCompleted is published when an editor's decision is recorded.
type AssessmentCompleted struct {
	BaseEvent

	AssessActionID string `json:"assess_action_id"`
	ResultID       string `json:"result_id"`
	RevisionType   string `json:"revision_type,omitempty"`
}

func (e AssessmentCompleted) GetType() EventType {
	return AssessmentCompletedEvent
}

// GraphRejected is published when an assessment ends the workflow.
type GraphRejected struct {
	BaseEvent

	RejectActionID string `json:"reject_action_id"`
}

func (e GraphRejected) GetType() EventType {
	return GraphRejectedEvent
}

// ReleaseCreated is published when a CreateReleaseAction completes and the
// latest release pointer moves to its result.
type ReleaseCreated struct {
	BaseEvent

	ActionID  string `json:"action_id"`
	ReleaseID string `json:"release_id"`
	Version   string `json:"version"`
}

func (e ReleaseCreated) GetType() EventType {
	return ReleaseCreatedEvent
}

func NewBaseEvent(eventType EventType, graphID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		GraphID:   graphID,
		Metadata:  make(map[string]any),
	}
}
