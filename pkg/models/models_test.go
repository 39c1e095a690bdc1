package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_UnmarshalSingularAndPlural(t *testing.T) {
	data := []byte(`{
		"@id": "workflow:assess",
		"@type": "AssessAction",
		"agent": {"roleName": "editor"},
		"participant": {"@type": "Audience", "audienceType": "editor"},
		"requiresCompletionOf": {"@id": "workflow:release", "@type": "CreateReleaseAction"},
		"potentialResult": ["workflow:reject", {"@id": "workflow:production", "@type": "StartWorkflowStageAction"}],
		"potentialAction": {
			"@id": "workflow:inform",
			"@type": "InformAction",
			"ifMatch": "workflow:reject",
			"instrument": {"@id": "workflow:email", "@type": "EmailMessage", "about": "workflow:assess"}
		}
	}`)

	var action Action
	require.NoError(t, json.Unmarshal(data, &action))

	assert.Equal(t, ActionTypeAssess, action.Type)
	assert.Equal(t, "editor", action.Agent.RoleName)
	require.Len(t, action.Participant, 1)
	assert.Equal(t, "editor", action.Participant[0].AudienceType)
	assert.Equal(t, IDList{"workflow:release"}, action.RequiresCompletionOf)

	require.Len(t, action.PotentialResult, 2)
	assert.Equal(t, "workflow:reject", action.PotentialResult[0].ID)
	assert.Nil(t, action.PotentialResult[0].Action)
	assert.Equal(t, "workflow:production", action.PotentialResult[1].Ident())

	require.Len(t, action.PotentialAction, 1)
	inform := action.PotentialAction[0].Action
	require.NotNil(t, inform)
	assert.Equal(t, IDRef("workflow:reject"), inform.IfMatch)
	require.Len(t, inform.Instrument, 1)
	require.NotNil(t, inform.Instrument[0].Message)
	assert.Equal(t, IDList{"workflow:assess"}, inform.Instrument[0].Message.About)
}

func TestAction_ResultVariants(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, a *Action)
	}{
		{
			name: "stage result is a list of actions",
			data: `{"@type": "StartWorkflowStageAction", "result": ["workflow:a", {"@id": "workflow:b", "@type": "ReviewAction"}]}`,
			check: func(t *testing.T, a *Action) {
				t.Helper()
				assert.Equal(t, []string{"workflow:a", "workflow:b"}, a.StageActions().IDs())
			},
		},
		{
			name: "release result is a graph",
			data: `{"@type": "CreateReleaseAction", "result": {"@id": "workflow:r", "@type": "Graph", "version": "preminor"}}`,
			check: func(t *testing.T, a *Action) {
				t.Helper()
				require.NotNil(t, a.Release())
				assert.Equal(t, "preminor", a.Release().Version)
			},
		},
		{
			name: "declare result is a list of answers",
			data: `{"@type": "DeclareAction", "result": {"@type": "Answer", "parentItem": "node:q"}}`,
			check: func(t *testing.T, a *Action) {
				t.Helper()
				require.Len(t, a.Result.Answers, 1)
				assert.Equal(t, "node:q", a.Result.Answers[0].ParentItem.Ident())
			},
		},
		{
			name: "assess result collapses to an id",
			data: `{"@type": "AssessAction", "result": {"@id": "action:next", "@type": "StartWorkflowStageAction"}}`,
			check: func(t *testing.T, a *Action) {
				t.Helper()
				assert.Equal(t, "action:next", a.Result.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var action Action
			require.NoError(t, json.Unmarshal([]byte(tt.data), &action))
			tt.check(t, &action)
		})
	}
}

func TestAction_CloneIsDeep(t *testing.T) {
	original := &Action{
		ID:    "workflow:stage",
		Type:  ActionTypeStartWorkflowStage,
		Agent: &Role{RoleName: "editor"},
		Result: &ActionResult{Actions: ActionRefs{
			Embed(&Action{ID: "workflow:review", Type: ActionTypeReview}),
		}},
	}

	clone := original.Clone()
	clone.Agent.RoleName = "author"
	clone.Result.Actions[0].Action.ID = "action:changed"

	assert.Equal(t, "editor", original.Agent.RoleName)
	assert.Equal(t, "workflow:review", original.Result.Actions[0].Action.ID)
}

func TestWorkflowSpecification_EntryStage(t *testing.T) {
	data := []byte(`{
		"@type": "WorkflowSpecification",
		"potentialAction": {
			"@type": "CreateGraphAction",
			"result": {
				"@type": "Graph",
				"potentialAction": {"@id": "workflow:submission", "@type": "StartWorkflowStageAction"}
			}
		}
	}`)

	var spec WorkflowSpecification
	require.NoError(t, json.Unmarshal(data, &spec))

	require.NotNil(t, spec.CreateGraphAction())
	entry := spec.EntryStage()
	require.NotNil(t, entry)
	assert.Equal(t, "workflow:submission", entry.Ident())
}

func TestActionStatus(t *testing.T) {
	assert.False(t, ActionStatusPotential.Started())
	assert.True(t, ActionStatusActive.Started())
	assert.True(t, ActionStatusCompleted.Ended())
	assert.True(t, ActionStatusFailed.Ended())
	assert.False(t, ActionStatusCanceled.Ended())
}
