// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// GraphID is the live Graph used across tests.
const GraphID = "graph:paper"

// StartTime is the instant stages are started at in tests.
var StartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SeededReader returns a deterministic random source, so identifier factories
// reading from it mint the same identifiers on every run.
func SeededReader(seed uint64) io.Reader {
	var key [32]byte
	for i := range 8 {
		key[i] = byte(seed >> (8 * i))
	}

	return rand.NewChaCha8(key)
}

// CreateTestAction creates a test action template with default values that can be overridden.
func CreateTestAction(overrides ...func(*models.Action)) *models.Action {
	action := &models.Action{
		ID:    "workflow:test-action",
		Type:  models.ActionTypeReview,
		Name:  "Test Action",
		Agent: &models.Role{Type: models.RoleType, RoleName: "editor"},
	}

	for _, override := range overrides {
		override(action)
	}

	return action
}

// WithID sets the action ID.
func WithID(id string) func(*models.Action) {
	return func(a *models.Action) {
		a.ID = id
	}
}

// WithType sets the action type.
func WithType(t models.ActionType) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = t
	}
}

// WithName sets the action name.
func WithName(name string) func(*models.Action) {
	return func(a *models.Action) {
		a.Name = name
	}
}

// WithAgent sets the role name of the agent. An empty name removes the agent.
func WithAgent(roleName string) func(*models.Action) {
	return func(a *models.Action) {
		if roleName == "" {
			a.Agent = nil

			return
		}

		a.Agent = &models.Role{Type: models.RoleType, RoleName: roleName}
	}
}

// WithStatus sets the actionStatus of the template.
func WithStatus(status models.ActionStatus) func(*models.Action) {
	return func(a *models.Action) {
		a.ActionStatus = status
	}
}

// WithInstances sets minInstances and maxInstances.
func WithInstances(minInstances, maxInstances int) func(*models.Action) {
	return func(a *models.Action) {
		a.MinInstances = minInstances
		a.MaxInstances = maxInstances
	}
}

// WithRequires sets requiresCompletionOf.
func WithRequires(ids ...string) func(*models.Action) {
	return func(a *models.Action) {
		a.RequiresCompletionOf = ids
	}
}

// WithIfMatch sets ifMatch.
func WithIfMatch(id string) func(*models.Action) {
	return func(a *models.Action) {
		a.IfMatch = models.IDRef(id)
	}
}

// WithPotentialAction appends potential actions.
func WithPotentialAction(refs ...*models.ActionRef) func(*models.Action) {
	return func(a *models.Action) {
		a.PotentialAction = append(a.PotentialAction, refs...)
	}
}

// WithPotentialResult appends potential results.
func WithPotentialResult(refs ...*models.ActionRef) func(*models.Action) {
	return func(a *models.Action) {
		a.PotentialResult = append(a.PotentialResult, refs...)
	}
}

// WithStageActions sets the actions of a StartWorkflowStageAction template.
func WithStageActions(refs ...*models.ActionRef) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = models.ActionTypeStartWorkflowStage
		a.Agent = nil
		a.Result = &models.ActionResult{Actions: refs}
	}
}

// WithRelease sets the Graph result of a CreateReleaseAction template.
// releaseType may name the increment to apply ("premajor", "prepatch", ...).
func WithRelease(releaseType string, refs ...*models.ActionRef) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = models.ActionTypeCreateRelease
		a.Result = &models.ActionResult{Release: &models.Release{
			Type:            models.GraphType,
			Version:         releaseType,
			PotentialAction: refs,
		}}
	}
}

// WithEmail adds an EmailMessage instrument to an InformAction template.
func WithEmail(id string, about ...string) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = models.ActionTypeInform
		a.Instrument = append(a.Instrument, &models.InstrumentRef{Message: &models.EmailMessage{
			ID:    id,
			Type:  models.EmailMessageType,
			About: about,
		}})
	}
}

// WithQuestions sets the questions of a DeclareAction template.
func WithQuestions(ids ...string) func(*models.Action) {
	return func(a *models.Action) {
		for _, id := range ids {
			a.Question = append(a.Question, &models.Question{ID: id, Type: models.QuestionType, Text: "Question " + id})
		}
	}
}

// WithReviewQuestion adds an answer slot for a question to a ReviewAction template.
func WithReviewQuestion(id string) func(*models.Action) {
	return func(a *models.Action) {
		a.Answer = append(a.Answer, &models.Answer{
			Type:       models.AnswerType,
			ParentItem: &models.QuestionRef{Question: &models.Question{ID: id, Type: models.QuestionType}},
		})
	}
}

// CreateTestSpecification wraps the entry stage into a WorkflowSpecification.
func CreateTestSpecification(entry *models.ActionRef) *models.WorkflowSpecification {
	return &models.WorkflowSpecification{
		ID:   "workflow:spec",
		Type: models.WorkflowSpecificationType,
		Name: "Test Workflow",
		PotentialAction: models.ActionRefs{models.Embed(&models.Action{
			ID:    "workflow:create-graph",
			Type:  models.ActionTypeCreateGraph,
			Agent: &models.Role{Type: models.RoleType, RoleName: "author"},
			Result: &models.ActionResult{Release: &models.Release{
				Type:            models.GraphType,
				PotentialAction: models.ActionRefs{entry},
			}},
		})},
	}
}
