package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType is the closed vocabulary of action kinds a workflow can contain.
type ActionType string

const (
	ActionTypeCreateGraph        ActionType = "CreateGraphAction"
	ActionTypeStartWorkflowStage ActionType = "StartWorkflowStageAction"
	ActionTypeCreateRelease      ActionType = "CreateReleaseAction"
	ActionTypeAssess             ActionType = "AssessAction"
	ActionTypeReview             ActionType = "ReviewAction"
	ActionTypeDeclare            ActionType = "DeclareAction"
	ActionTypePay                ActionType = "PayAction"
	ActionTypePublish            ActionType = "PublishAction"
	ActionTypeInform             ActionType = "InformAction"
	ActionTypeAuthorize          ActionType = "AuthorizeAction"
	ActionTypeDeauthorize        ActionType = "DeauthorizeAction"
	ActionTypeEndorse            ActionType = "EndorseAction"
	ActionTypeReject             ActionType = "RejectAction"
	ActionTypeBuy                ActionType = "BuyAction"
	ActionTypeSchedule           ActionType = "ScheduleAction"
	ActionTypeTypesetting        ActionType = "TypesettingAction"
)

// ActionTypes lists every supported action type.
var ActionTypes = []ActionType{
	ActionTypeCreateGraph,
	ActionTypeStartWorkflowStage,
	ActionTypeCreateRelease,
	ActionTypeAssess,
	ActionTypeReview,
	ActionTypeDeclare,
	ActionTypePay,
	ActionTypePublish,
	ActionTypeInform,
	ActionTypeAuthorize,
	ActionTypeDeauthorize,
	ActionTypeEndorse,
	ActionTypeReject,
	ActionTypeBuy,
	ActionTypeSchedule,
	ActionTypeTypesetting,
}

// Valid reports whether t belongs to the action vocabulary.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}

	return false
}

// ActionStatus represents the lifecycle state of an action.
type ActionStatus string

const (
	ActionStatusPotential ActionStatus = "PotentialActionStatus"
	ActionStatusActive    ActionStatus = "ActiveActionStatus"
	ActionStatusStaged    ActionStatus = "StagedActionStatus"
	ActionStatusCompleted ActionStatus = "CompletedActionStatus"
	ActionStatusFailed    ActionStatus = "FailedActionStatus"
	ActionStatusCanceled  ActionStatus = "CanceledActionStatus"
)

// Started reports whether the status implies the action has a start time.
func (s ActionStatus) Started() bool {
	switch s {
	case ActionStatusActive, ActionStatusStaged, ActionStatusCompleted, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// Ended reports whether the status implies the action has an end time.
func (s ActionStatus) Ended() bool {
	return s == ActionStatusCompleted || s == ActionStatusFailed
}

// RevisionType is the editor's decision on how large the next revision must be.
type RevisionType string

const (
	RevisionTypeMajor RevisionType = "MajorRevision"
	RevisionTypeMinor RevisionType = "MinorRevision"
	RevisionTypePatch RevisionType = "PatchRevision"
)

// Action is a workflow action, either as a template inside a WorkflowSpecification
// or as a concrete document instantiated for a live Graph.
type Action struct {
	ID               string       `json:"@id,omitempty"`
	Type             ActionType   `json:"@type"`
	Name             string       `json:"name,omitempty"`
	Description      string       `json:"description,omitempty"`
	Identifier       string       `json:"identifier,omitempty"`
	ActionStatus     ActionStatus `json:"actionStatus,omitempty"`
	Agent            *Role        `json:"agent,omitempty"`
	Participant      Roles        `json:"participant,omitempty"`
	Object           string       `json:"object,omitempty"`
	InstanceOf       string       `json:"instanceOf,omitempty"`
	InstanceIndex    *int         `json:"instanceIndex,omitempty"`
	ResultOf         string       `json:"resultOf,omitempty"`
	SameAs           IDList       `json:"sameAs,omitempty"`
	MinInstances     int          `json:"minInstances,omitempty"`
	MaxInstances     int          `json:"maxInstances,omitempty"`
	StartTime        *time.Time   `json:"startTime,omitempty"`
	EndTime          *time.Time   `json:"endTime,omitempty"`
	ExpectedDuration string       `json:"expectedDuration,omitempty"`

	RequiresCompletionOf IDList `json:"requiresCompletionOf,omitempty"`
	ActivateOn           string `json:"activateOn,omitempty"`
	CompleteOn           string `json:"completeOn,omitempty"`
	EndorseOn            string `json:"endorseOn,omitempty"`
	IfMatch              IDRef  `json:"ifMatch,omitempty"`

	Instrument      Instruments   `json:"instrument,omitempty"`
	PotentialAction ActionRefs    `json:"potentialAction,omitempty"`
	PotentialResult ActionRefs    `json:"potentialResult,omitempty"`
	Result          *ActionResult `json:"result,omitempty"`

	// AssessAction
	RevisionType RevisionType `json:"revisionType,omitempty"`
	Comment      Comments     `json:"comment,omitempty"`
	Annotation   Annotations  `json:"annotation,omitempty"`

	// ReviewAction
	Answer       Answers `json:"answer,omitempty"`
	ResultReview *Review `json:"resultReview,omitempty"`

	// DeclareAction
	Question Questions `json:"question,omitempty"`
}

// UnmarshalJSON decodes an action; the shape of `result` depends on the action type.
func (a *Action) UnmarshalJSON(data []byte) error {
	type plain Action

	aux := struct {
		*plain
		Result json.RawMessage `json:"result,omitempty"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	a.Result = nil

	raw := bytes.TrimSpace(aux.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	result, err := decodeResult(a.Type, raw)
	if err != nil {
		return fmt.Errorf("decoding result of %s %s: %w", a.Type, a.ID, err)
	}

	a.Result = result

	return nil
}

// Clone returns a deep copy of the action tree.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}

	data, err := json.Marshal(a)
	if err != nil {
		panic(fmt.Sprintf("models: cloning action %s: %v", a.ID, err))
	}

	var clone Action
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("models: cloning action %s: %v", a.ID, err))
	}

	return &clone
}

// Is reports whether the action has type t.
func (a *Action) Is(t ActionType) bool {
	return a != nil && a.Type == t
}

// Release returns the Graph node carried in the action result, if any.
func (a *Action) Release() *Release {
	if a == nil || a.Result == nil {
		return nil
	}

	return a.Result.Release
}

// StageActions returns the action references of a StartWorkflowStageAction result.
func (a *Action) StageActions() ActionRefs {
	if a == nil || a.Result == nil {
		return nil
	}

	return a.Result.Actions
}

// InstrumentIDs returns the identifiers of every instrument.
func (a *Action) InstrumentIDs() []string {
	ids := make([]string, 0, len(a.Instrument))
	for _, instrument := range a.Instrument {
		ids = append(ids, instrument.Ident())
	}

	return ids
}

// ActionResult is the polymorphic `result` of an action.
// Exactly one of its fields is populated.
type ActionResult struct {
	// ID is a bare reference, e.g. the potential result an AssessAction selected.
	ID string
	// Actions are the stage actions of a StartWorkflowStageAction.
	Actions ActionRefs
	// Release is the Graph produced by CreateGraphAction, CreateReleaseAction or PublishAction.
	Release *Release
	// Answers are the answers of a DeclareAction.
	Answers Answers
}

// MarshalJSON encodes whichever variant is populated.
func (r *ActionResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Release != nil:
		return json.Marshal(r.Release)
	case r.Actions != nil:
		return json.Marshal([]*ActionRef(r.Actions))
	case r.Answers != nil:
		return json.Marshal([]*Answer(r.Answers))
	default:
		return json.Marshal(r.ID)
	}
}

func decodeResult(actionType ActionType, raw []byte) (*ActionResult, error) {
	switch actionType {
	case ActionTypeStartWorkflowStage:
		var refs ActionRefs
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, err
		}

		return &ActionResult{Actions: refs}, nil

	case ActionTypeCreateGraph, ActionTypeCreateRelease, ActionTypePublish:
		if raw[0] == '"' {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return nil, err
			}

			return &ActionResult{ID: id}, nil
		}

		var release Release
		if err := json.Unmarshal(raw, &release); err != nil {
			return nil, err
		}

		return &ActionResult{Release: &release}, nil

	case ActionTypeDeclare:
		var answers Answers
		if err := json.Unmarshal(raw, &answers); err != nil {
			return nil, err
		}

		return &ActionResult{Answers: answers}, nil

	default:
		var ref IDRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, err
		}

		return &ActionResult{ID: string(ref)}, nil
	}
}
