// Package models defines the documents of the editorial workflow: action templates,
// instantiated actions, graphs and their releases, and workflow specifications.
package models

import "time"

const WorkflowSpecificationType = "WorkflowSpecification"

// WorkflowSpecification is a versioned workflow template belonging to a Periodical.
// Its single CreateGraphAction template holds, through its Graph result, every
// stage and action template of the workflow.
type WorkflowSpecification struct {
	ID                  string     `json:"@id,omitempty"`
	Type                string     `json:"@type"                         validate:"required,eq=WorkflowSpecification"`
	Name                string     `json:"name,omitempty"`
	Description         string     `json:"description,omitempty"`
	Version             string     `json:"version,omitempty"`
	IsPotentialActionOf string     `json:"isPotentialActionOf,omitempty"`
	ExpectedDuration    string     `json:"expectedDuration,omitempty"`
	DateCreated         *time.Time `json:"dateCreated,omitempty"`
	PotentialAction     ActionRefs `json:"potentialAction"               validate:"required,min=1"`
}

// CreateGraphAction returns the CreateGraphAction template of the specification.
func (w *WorkflowSpecification) CreateGraphAction() *Action {
	if w == nil {
		return nil
	}

	for _, ref := range w.PotentialAction {
		if ref.Action.Is(ActionTypeCreateGraph) {
			return ref.Action
		}
	}

	return nil
}

// EntryStage returns the reference to the first StartWorkflowStageAction template,
// the potential action of the Graph produced by CreateGraphAction.
func (w *WorkflowSpecification) EntryStage() *ActionRef {
	graph := w.CreateGraphAction().Release()
	if graph == nil {
		return nil
	}

	for _, ref := range graph.PotentialAction {
		if ref.Action == nil || ref.Action.Is(ActionTypeStartWorkflowStage) {
			return ref
		}
	}

	return nil
}
