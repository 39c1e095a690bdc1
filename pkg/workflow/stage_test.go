package workflow

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	actions []*models.Action
}

func (s memorySource) ActionsByType(_ context.Context, _ string, types ...models.ActionType) ([]*models.Action, error) {
	var out []*models.Action

	for _, a := range s.actions {
		if slices.Contains(types, a.Type) {
			out = append(out, a)
		}
	}

	return out, nil
}

func newTestInstantiator(seed uint64, opts ...Option) *Instantiator {
	factory := identifier.NewFactory(identifier.WithRandom(testutil.SeededReader(seed)))

	return NewInstantiator(append([]Option{WithIdentifierFactory(factory)}, opts...)...)
}

func ofType(actions []*models.Action, t models.ActionType) []*models.Action {
	var out []*models.Action

	for _, a := range actions {
		if a.Is(t) {
			out = append(out, a)
		}
	}

	return out
}

func oneOfType(t *testing.T, actions []*models.Action, at models.ActionType) *models.Action {
	t.Helper()

	found := ofType(actions, at)
	require.Len(t, found, 1, "expected exactly one %s", at)

	return found[0]
}

func stub(t *testing.T, actions []*models.Action, templateID string) *models.Action {
	t.Helper()

	for _, a := range actions {
		if a.Is(models.ActionTypeStartWorkflowStage) && a.InstanceOf == templateID {
			return a
		}
	}

	require.Failf(t, "stub not found", "no stage stub for %s", templateID)

	return nil
}

func startSubmission(t *testing.T, in *Instantiator, spec *models.WorkflowSpecification) *InstantiatedStage {
	t.Helper()

	start := testutil.StartTime

	stage, err := in.InstantiateStage(t.Context(), spec.EntryStage(), spec, testutil.GraphID, StageOptions{
		Agent:     &models.Role{RoleName: "author"},
		StartTime: &start,
	})
	require.NoError(t, err)

	return stage
}

func completed(assess *models.Action, resultID string, revision models.RevisionType) *models.Action {
	decision := assess.Clone()
	decision.ActionStatus = models.ActionStatusCompleted
	decision.Result = &models.ActionResult{ID: resultID}
	decision.RevisionType = revision

	return decision
}

func TestInstantiateStage_Submission(t *testing.T) {
	spec := testutil.TwoStageSpecification()

	stage := startSubmission(t, newTestInstantiator(1), spec)

	assert.Equal(t, "0", stage.Stage.Identifier)
	assert.Equal(t, models.ActionStatusActive, stage.Stage.ActionStatus)
	assert.Equal(t, testutil.SubmissionStageID, stage.Stage.InstanceOf)
	assert.True(t, identifier.Is(stage.Stage.ID, identifier.KindAction))
	assert.Equal(t, "author", stage.Stage.Agent.RoleName)
	assert.Equal(t, "0.0.0-0", stage.ReleaseVersion)

	release := oneOfType(t, stage.Actions, models.ActionTypeCreateRelease)
	assert.Equal(t, "0.0", release.Identifier)
	require.NotNil(t, release.Release())
	assert.Equal(t, "0.0.0-0", release.Release().Version)
	assert.Equal(t, testutil.GraphID+"?version=0.0.0-0", release.Release().ID)
	assert.Equal(t, testutil.GraphID, release.Object)
	assert.Equal(t, testutil.SubmissionReleaseID, release.InstanceOf)
	assert.Equal(t, stage.Stage.ID, release.ResultOf)
	assert.Equal(t, models.ActionStatusPotential, release.ActionStatus)
	require.NotNil(t, release.StartTime)
	assert.True(t, release.StartTime.Equal(testutil.StartTime))
	assert.Empty(t, release.Instrument)

	assess := oneOfType(t, stage.Actions, models.ActionTypeAssess)
	assert.Equal(t, "0.1", assess.Identifier)
	assert.Equal(t, release.Release().ID, assess.Object)
	assert.Equal(t, models.IDList{release.ID}, assess.RequiresCompletionOf)
	assert.Equal(t, []string{release.ID}, assess.InstrumentIDs())

	require.Len(t, assess.PotentialResult, 2)

	reject := oneOfType(t, stage.Actions, models.ActionTypeReject)
	production := stub(t, stage.Actions, testutil.ProductionStageID)
	assert.Equal(t, []string{reject.ID, production.ID}, assess.PotentialResult.IDs())
	assert.Equal(t, "0.2", reject.Identifier)
	assert.Equal(t, stage.Stage.ID, reject.ResultOf)

	assert.Nil(t, production.Result, "stub stages are not instantiated")
	assert.Equal(t, models.ActionStatusPotential, production.ActionStatus)
	assert.Empty(t, production.Identifier)

	assert.Len(t, stage.Documents(), len(stage.Actions)+1)
	assert.Equal(t, stage.Stage.ID, stage.Documents()[0].ID)
	assert.Equal(t, []string{release.ID}, stage.Documents()[0].StageActions().IDs())
	assert.Equal(t, []string{assess.ID}, stage.Documents()[1].Release().PotentialAction.IDs())
}

func TestInstantiateStage_FromStub(t *testing.T) {
	spec := testutil.TwoStageSpecification()
	first := startSubmission(t, newTestInstantiator(1), spec)

	assess := oneOfType(t, first.Actions, models.ActionTypeAssess)
	production := stub(t, first.Actions, testutil.ProductionStageID)
	decision := completed(assess, production.ID, "")

	in := newTestInstantiator(2, WithActionSource(memorySource{actions: first.Actions}))

	second, err := in.InstantiateStage(t.Context(), models.Embed(production), spec, first.Stage.Result.Actions[0].Action.Release().ID, StageOptions{
		Agent:    &models.Role{RoleName: "editor"},
		ResultOf: decision,
	})
	require.NoError(t, err)

	assert.Equal(t, production.ID, second.Stage.ID)
	assert.Equal(t, testutil.ProductionStageID, second.Stage.InstanceOf)
	assert.Equal(t, decision.ID, second.Stage.ResultOf)
	assert.Equal(t, "1", second.Stage.Identifier)
	assert.Empty(t, second.ReleaseVersion)

	publish := oneOfType(t, second.Actions, models.ActionTypePublish)
	assert.Equal(t, "1.0", publish.Identifier)
	assert.Equal(t, testutil.GraphID, publish.Object)
	assert.Equal(t, "0.0.0", publish.Release().Version)
	assert.Equal(t, testutil.GraphID+"?version=0.0.0", publish.Release().ID)

	release := oneOfType(t, first.Actions, models.ActionTypeCreateRelease)
	assert.Equal(t, []string{release.ID}, publish.InstrumentIDs())
}

func TestInstantiateStage_Deterministic(t *testing.T) {
	spec := testutil.PeerReviewSpecification()

	encode := func() []byte {
		stage := startSubmission(t, newTestInstantiator(42), spec)

		data, err := json.Marshal(stage.Documents())
		require.NoError(t, err)

		return data
	}

	assert.JSONEq(t, string(encode()), string(encode()))

	other, err := json.Marshal(startSubmission(t, newTestInstantiator(43), spec).Documents())
	require.NoError(t, err)
	assert.NotEqual(t, string(encode()), string(other))
}

// walkStrings calls fn for every string in a decoded JSON document together
// with the object key it sits under.
func walkStrings(key string, v any, fn func(key, value string)) {
	switch value := v.(type) {
	case map[string]any:
		for k, child := range value {
			walkStrings(k, child, fn)
		}
	case []any:
		for _, child := range value {
			walkStrings(key, child, fn)
		}
	case string:
		fn(key, value)
	}
}

func TestInstantiateStage_ReferentialClosure(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	stage := startSubmission(t, newTestInstantiator(7), spec)

	data, err := json.Marshal(stage.Documents())
	require.NoError(t, err)

	var docs any
	require.NoError(t, json.Unmarshal(data, &docs))

	templateRefs := map[string]bool{"instanceOf": true, "sameAs": true, "publishActionInstanceOf": true}

	walkStrings("", docs, func(key, value string) {
		if strings.HasPrefix(value, DefaultTemplatePrefix) {
			assert.True(t, templateRefs[key], "template reference %s left under %q", value, key)
		}
	})
}

func TestInstantiateStage_MultiplexFanOut(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	stage := startSubmission(t, newTestInstantiator(3), spec)

	reviews := ofType(stage.Actions, models.ActionTypeReview)
	require.Len(t, reviews, 3)

	ids := map[string]bool{}
	for i, review := range reviews {
		assert.Equal(t, testutil.ReviewID, review.InstanceOf)
		require.NotNil(t, review.InstanceIndex)
		assert.Equal(t, i, *review.InstanceIndex)
		ids[review.ID] = true

		require.NotNil(t, review.ResultReview)
		assert.True(t, identifier.Is(review.ResultReview.ID, identifier.KindNode))
		require.Len(t, review.Answer, 1)
		assert.True(t, identifier.Is(review.Answer[0].ParentItem.Ident(), identifier.KindNode))
	}

	assert.Len(t, ids, 3)

	assess := oneOfType(t, stage.Actions, models.ActionTypeAssess)
	assert.ElementsMatch(t, slices.Collect(maps.Keys(ids)), []string(assess.RequiresCompletionOf))

	// every review is an instrument of the assessment
	for id := range ids {
		assert.Contains(t, assess.InstrumentIDs(), id)
	}

	inform := instanceOf(t, stage.Actions, testutil.ReviseInformID)
	require.Len(t, inform.Instrument, 1)
	about := inform.Instrument[0].Message.About
	assert.Contains(t, []string(about), assess.ID)

	for id := range ids {
		assert.Contains(t, []string(about), id)
	}
}

func instanceOf(t *testing.T, actions []*models.Action, templateID string) *models.Action {
	t.Helper()

	for _, a := range actions {
		if a.InstanceOf == templateID {
			return a
		}
	}

	require.Failf(t, "instance not found", "no instance of %s", templateID)

	return nil
}

func TestInstantiateStage_Sequencing(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	stage := startSubmission(t, newTestInstantiator(5), spec)

	byTemplate := func(templateID string) []string {
		var identifiers []string

		for _, a := range stage.Actions {
			if a.InstanceOf == templateID && !a.Is(models.ActionTypeStartWorkflowStage) {
				identifiers = append(identifiers, a.Identifier)
			}
		}

		return identifiers
	}

	assert.Equal(t, []string{"0.0"}, byTemplate(testutil.SubmissionReleaseID))
	assert.Equal(t, []string{"0.1"}, byTemplate(testutil.DeclareID))
	assert.Equal(t, []string{"0.2", "0.3", "0.4"}, byTemplate(testutil.ReviewID))
	assert.Equal(t, []string{"0.5"}, byTemplate(testutil.SubmissionAssessID))
	assert.Equal(t, []string{"0.6"}, byTemplate(testutil.RejectID))
	assert.Equal(t, []string{"0.5.i.0"}, byTemplate(testutil.ReviseInformID))
	assert.Equal(t, []string{"0.5.i.1"}, byTemplate(testutil.RejectInformID))

	assert.Empty(t, stub(t, stage.Actions, testutil.SubmissionStageID).Identifier)
	assert.Empty(t, stub(t, stage.Actions, testutil.ProductionStageID).Identifier)

	inform := instanceOf(t, stage.Actions, testutil.ReviseInformID)
	assert.Equal(t, "0.5.i.0.e", inform.Instrument[0].Message.Identifier)
	assert.Equal(t, testutil.ReviseEmailID, inform.Instrument[0].Message.InstanceOf)
	assert.True(t, identifier.Is(inform.Instrument[0].Message.ID, identifier.KindNode))

	assess := oneOfType(t, stage.Actions, models.ActionTypeAssess)
	assert.Equal(t, assess.ID, inform.Object)

	// timeline positions are unique and dense
	var positions []string
	for _, a := range stage.Actions {
		if strings.Count(a.Identifier, ".") == 1 {
			positions = append(positions, a.Identifier)
		}
	}

	slices.Sort(positions)
	assert.Equal(t, []string{"0.0", "0.1", "0.2", "0.3", "0.4", "0.5", "0.6"}, positions)
}

func TestInstantiateStage_StageIndexIncreases(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	first := startSubmission(t, newTestInstantiator(9), spec)

	previous := first
	for want := 1; want <= 3; want++ {
		assess := oneOfType(t, previous.Actions, models.ActionTypeAssess)
		revision := stub(t, previous.Actions, testutil.SubmissionStageID)
		decision := completed(assess, revision.ID, models.RevisionTypeMinor)

		next, err := newTestInstantiator(uint64(10+want)).InstantiateStage(t.Context(), models.Embed(revision), spec,
			testutil.GraphID+"?version="+previous.ReleaseVersion, StageOptions{ResultOf: decision})
		require.NoError(t, err)

		assert.Equal(t, revision.ID, next.Stage.ID)
		assert.Equal(t, strconv.Itoa(want), next.Stage.Identifier)

		for _, a := range next.Actions {
			if a.Identifier != "" {
				assert.True(t, strings.HasPrefix(a.Identifier, strconv.Itoa(want)+"."), a.Identifier)
			}
		}

		previous = next
	}
}

func TestInstantiateStage_ReleaseVersion(t *testing.T) {
	tests := []struct {
		name        string
		object      string
		releaseType string
		revision    models.RevisionType
		want        string
	}{
		{name: "first release", object: testutil.GraphID, want: "0.0.0-0"},
		{name: "default increment", object: testutil.GraphID + "?version=0.0.0-0", want: "1.0.0-0"},
		{name: "patch revision", object: testutil.GraphID + "?version=0.0.0-0", revision: models.RevisionTypePatch, want: "0.0.1-0"},
		{name: "minor revision", object: testutil.GraphID + "?version=1.0.0-0", revision: models.RevisionTypeMinor, want: "1.1.0-0"},
		{name: "major revision", object: testutil.GraphID + "?version=1.0.0-0", revision: models.RevisionTypeMajor, want: "2.0.0-0"},
		{name: "template release type", object: testutil.GraphID + "?version=1.0.0-0", releaseType: "prerelease", want: "1.0.0-1"},
		{name: "revision overrides template", object: testutil.GraphID + "?version=1.0.0-0", releaseType: "prerelease", revision: models.RevisionTypePatch, want: "1.0.1-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testutil.TwoStageSpecification()
			templates := SpecificationMap(spec, "")
			templates[testutil.SubmissionReleaseID].Result.Release.Version = tt.releaseType

			opts := StageOptions{}
			if tt.object != testutil.GraphID {
				opts.ResultOf = &models.Action{
					ID:           "action:decision",
					Type:         models.ActionTypeAssess,
					Identifier:   "0.1",
					RevisionType: tt.revision,
				}
			}

			stage, err := newTestInstantiator(1).InstantiateStage(t.Context(), models.RefTo(testutil.SubmissionStageID), spec, tt.object, opts)
			require.NoError(t, err)

			release := oneOfType(t, stage.Actions, models.ActionTypeCreateRelease)
			assert.Equal(t, tt.want, release.Release().Version)
			assert.Equal(t, tt.want, stage.ReleaseVersion)

			if opts.ResultOf != nil {
				assert.Equal(t, []string{"action:decision"}, release.InstrumentIDs())
			}
		})
	}
}

func TestInstantiateStage_CycleSafety(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	stage := startSubmission(t, newTestInstantiator(11), spec)

	revision := stub(t, stage.Actions, testutil.SubmissionStageID)
	reject := oneOfType(t, stage.Actions, models.ActionTypeReject)

	revise := instanceOf(t, stage.Actions, testutil.ReviseInformID)
	assert.Equal(t, models.IDRef(revision.ID), revise.IfMatch)
	assert.NotEqual(t, stage.Stage.ID, revision.ID)
	assert.Equal(t, stage.Stage.ID, revision.ResultOf)

	rejectInform := instanceOf(t, stage.Actions, testutil.RejectInformID)
	assert.Equal(t, models.IDRef(reject.ID), rejectInform.IfMatch)
}

func TestInstantiateStage_BackportsComments(t *testing.T) {
	decisionStage := testutil.CreateTestAction(
		testutil.WithID("workflow:decision"),
		testutil.WithStageActions(models.Embed(testutil.CreateTestAction(
			testutil.WithID("workflow:decision-assess"),
			testutil.WithType(models.ActionTypeAssess),
			testutil.WithAgent("editor"),
		))),
	)
	spec := testutil.CreateTestSpecification(models.Embed(decisionStage))

	previous := &models.Action{
		ID:         "action:previous",
		Type:       models.ActionTypeAssess,
		Identifier: "2.3",
		Comment:    models.Comments{{ID: "cnode:old", Type: models.CommentType, Text: "please fix"}},
		Annotation: models.Annotations{{
			ID:               "cnode:old-annotation",
			Type:             models.AnnotationType,
			AnnotationTarget: "node:figure",
			AnnotationBody:   &models.Comment{ID: "cnode:old-body", Type: models.CommentType, Text: "unclear"},
		}},
	}

	stage, err := newTestInstantiator(1).InstantiateStage(t.Context(), models.RefTo("workflow:decision"), spec,
		testutil.GraphID+"?version=1.0.0-0", StageOptions{ResultOf: previous})
	require.NoError(t, err)

	assert.Equal(t, "3", stage.Stage.Identifier)

	assess := oneOfType(t, stage.Actions, models.ActionTypeAssess)
	assert.Equal(t, "3.0", assess.Identifier)

	require.Len(t, assess.Comment, 1)
	assert.Equal(t, "please fix", assess.Comment[0].Text)
	assert.True(t, identifier.Is(assess.Comment[0].ID, identifier.KindCNode))
	assert.NotEqual(t, "cnode:old", assess.Comment[0].ID)

	require.Len(t, assess.Annotation, 1)
	assert.Equal(t, "node:figure", assess.Annotation[0].AnnotationTarget)
	assert.NotEqual(t, "cnode:old-annotation", assess.Annotation[0].ID)
	assert.NotEqual(t, "cnode:old-body", assess.Annotation[0].AnnotationBody.ID)

	// the decision is left untouched
	assert.Equal(t, "cnode:old", previous.Comment[0].ID)
}

func TestInstantiateStage_TemplateNotFound(t *testing.T) {
	spec := testutil.TwoStageSpecification()

	tests := []struct {
		name string
		ref  *models.ActionRef
	}{
		{name: "unknown template", ref: models.RefTo("workflow:missing")},
		{name: "not a stage", ref: models.RefTo(testutil.SubmissionAssessID)},
		{name: "nil reference", ref: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestInstantiator(1).InstantiateStage(t.Context(), tt.ref, spec, testutil.GraphID, StageOptions{})
			require.ErrorIs(t, err, ErrTemplateNotFound)
		})
	}
}

func TestInstantiateStage_InvalidObject(t *testing.T) {
	spec := testutil.TwoStageSpecification()

	_, err := newTestInstantiator(1).InstantiateStage(t.Context(), spec.EntryStage(), spec, "journal:j", StageOptions{})
	require.ErrorIs(t, err, identifier.ErrInvalidScope)
}

func TestInstantiateStage_LeavesSpecificationUntouched(t *testing.T) {
	spec := testutil.PeerReviewSpecification()

	before, err := json.Marshal(spec)
	require.NoError(t, err)

	startSubmission(t, newTestInstantiator(1), spec)

	after, err := json.Marshal(spec)
	require.NoError(t, err)

	assert.JSONEq(t, string(before), string(after))
}

func TestInstantiateStage_TopLevelObject(t *testing.T) {
	stageTemplate := testutil.CreateTestAction(
		testutil.WithID("workflow:stage"),
		testutil.WithStageActions(
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:release"),
				testutil.WithAgent("author"),
				testutil.WithRelease("", models.Embed(testutil.CreateTestAction(
					testutil.WithID("workflow:declare"),
					testutil.WithType(models.ActionTypeDeclare),
					testutil.WithAgent("author"),
				))),
			)),
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:pay"),
				testutil.WithType(models.ActionTypePay),
				testutil.WithAgent("author"),
			)),
		),
	)
	spec := testutil.CreateTestSpecification(models.Embed(stageTemplate))

	tests := []struct {
		name     string
		object   string
		resultOf *models.Action
	}{
		{name: "graph", object: testutil.GraphID},
		{
			name:     "previous release",
			object:   testutil.GraphID + "?version=1.0.0-0",
			resultOf: &models.Action{ID: "action:decision", Type: models.ActionTypeAssess, Identifier: "0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, err := newTestInstantiator(1).InstantiateStage(t.Context(), spec.EntryStage(), spec, tt.object, StageOptions{ResultOf: tt.resultOf})
			require.NoError(t, err)

			assert.Equal(t, tt.object, stage.Stage.Object)

			release := oneOfType(t, stage.Actions, models.ActionTypeCreateRelease)
			assert.NotEqual(t, tt.object, release.Release().ID)

			pay := oneOfType(t, stage.Actions, models.ActionTypePay)
			assert.Equal(t, tt.object, pay.Object)
			assert.Empty(t, pay.Instrument, "the new release is not the object of a top-level action")

			declare := oneOfType(t, stage.Actions, models.ActionTypeDeclare)
			assert.Equal(t, release.Release().ID, declare.Object)
			assert.Equal(t, []string{release.ID}, declare.InstrumentIDs())
		})
	}
}

func TestInstantiateStage_DeclareAnswers(t *testing.T) {
	declareTemplate := testutil.CreateTestAction(
		testutil.WithID("workflow:declare"),
		testutil.WithType(models.ActionTypeDeclare),
		testutil.WithAgent("author"),
		testutil.WithQuestions("workflow:question-funding", "workflow:question-conflicts"),
	)
	spec := testutil.CreateTestSpecification(models.Embed(testutil.CreateTestAction(
		testutil.WithID("workflow:stage"),
		testutil.WithStageActions(models.Embed(declareTemplate)),
	)))

	stage, err := newTestInstantiator(4).InstantiateStage(t.Context(), spec.EntryStage(), spec, testutil.GraphID, StageOptions{})
	require.NoError(t, err)

	declare := oneOfType(t, stage.Actions, models.ActionTypeDeclare)
	require.Len(t, declare.Question, 2)
	require.NotNil(t, declare.Result)
	require.Len(t, declare.Result.Answers, len(declare.Question))

	answers := map[string]bool{}
	for i, question := range declare.Question {
		assert.True(t, identifier.Is(question.ID, identifier.KindNode), question.ID)
		assert.Equal(t, "Question "+declareTemplate.Question[i].ID, question.Text)

		answer := declare.Result.Answers[i]
		assert.True(t, identifier.Is(answer.ID, identifier.KindNode), answer.ID)
		assert.Equal(t, models.AnswerType, answer.Type)
		require.NotNil(t, answer.ParentItem)
		assert.Equal(t, question.ID, answer.ParentItem.Ident())

		answers[answer.ID] = true
	}

	assert.Len(t, answers, 2)
	assert.Equal(t, "workflow:question-funding", declareTemplate.Question[0].ID)
}

func TestInstantiateStage_AgentNameInput(t *testing.T) {
	named := testutil.CreateTestAction(
		testutil.WithID("workflow:schedule"),
		testutil.WithType(models.ActionTypeSchedule),
	)
	named.Agent.Name = "Managing editor"

	spec := testutil.CreateTestSpecification(models.Embed(testutil.CreateTestAction(
		testutil.WithID("workflow:stage"),
		testutil.WithStageActions(
			models.Embed(named),
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:pay"),
				testutil.WithType(models.ActionTypePay),
				testutil.WithAgent("author"),
			)),
		),
	)))

	stage, err := newTestInstantiator(6).InstantiateStage(t.Context(), spec.EntryStage(), spec, testutil.GraphID, StageOptions{})
	require.NoError(t, err)

	schedule := oneOfType(t, stage.Actions, models.ActionTypeSchedule)
	require.NotNil(t, schedule.Agent)
	assert.Equal(t, "Managing editor", schedule.Agent.Name)
	require.NotNil(t, schedule.Agent.NameInput)
	assert.True(t, schedule.Agent.NameInput.ReadonlyValue)
	assert.True(t, schedule.Agent.NameInput.ValueRequired)

	pay := oneOfType(t, stage.Actions, models.ActionTypePay)
	require.NotNil(t, pay.Agent)
	assert.Nil(t, pay.Agent.NameInput)

	assert.Nil(t, named.Agent.NameInput, "the template agent is left untouched")
}

func TestInstantiateStage_Timestamps(t *testing.T) {
	release := testutil.CreateTestAction(
		testutil.WithID("workflow:release"),
		testutil.WithAgent("author"),
		testutil.WithRelease("",
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:declare"),
				testutil.WithType(models.ActionTypeDeclare),
				testutil.WithAgent("author"),
			)),
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:pay"),
				testutil.WithType(models.ActionTypePay),
				testutil.WithAgent("author"),
				testutil.WithStatus(models.ActionStatusActive),
			)),
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:typesetting"),
				testutil.WithType(models.ActionTypeTypesetting),
				testutil.WithAgent("producer"),
				testutil.WithStatus(models.ActionStatusFailed),
			)),
		),
	)
	spec := testutil.CreateTestSpecification(models.Embed(testutil.CreateTestAction(
		testutil.WithID("workflow:stage"),
		testutil.WithStageActions(
			models.Embed(release),
			models.Embed(testutil.CreateTestAction(
				testutil.WithID("workflow:schedule"),
				testutil.WithType(models.ActionTypeSchedule),
				testutil.WithStatus(models.ActionStatusCompleted),
			)),
		),
	)))

	start := testutil.StartTime
	end := start.Add(time.Hour)

	stage, err := newTestInstantiator(8).InstantiateStage(t.Context(), spec.EntryStage(), spec, testutil.GraphID, StageOptions{
		StartTime: &start,
		EndTime:   &end,
	})
	require.NoError(t, err)

	tests := []struct {
		actionType models.ActionType
		started    bool
		ended      bool
	}{
		{actionType: models.ActionTypeCreateRelease, started: true},
		{actionType: models.ActionTypeDeclare},
		{actionType: models.ActionTypePay, started: true},
		{actionType: models.ActionTypeTypesetting, started: true, ended: true},
		{actionType: models.ActionTypeSchedule, started: true, ended: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.actionType), func(t *testing.T) {
			a := oneOfType(t, stage.Actions, tt.actionType)

			if tt.started {
				require.NotNil(t, a.StartTime)
				assert.True(t, a.StartTime.Equal(start))
			} else {
				assert.Nil(t, a.StartTime)
			}

			if tt.ended {
				require.NotNil(t, a.EndTime)
				assert.True(t, a.EndTime.Equal(end))
			} else {
				assert.Nil(t, a.EndTime)
			}
		})
	}
}

func TestInstantiateStage_ReviewInstruments(t *testing.T) {
	spec := testutil.PeerReviewSpecification()
	first := startSubmission(t, newTestInstantiator(21), spec)

	firstRelease := oneOfType(t, first.Actions, models.ActionTypeCreateRelease)
	for _, review := range ofType(first.Actions, models.ActionTypeReview) {
		assert.Equal(t, []string{firstRelease.ID}, review.InstrumentIDs())
	}

	assess := oneOfType(t, first.Actions, models.ActionTypeAssess)
	revision := stub(t, first.Actions, testutil.SubmissionStageID)
	decision := completed(assess, revision.ID, models.RevisionTypeMajor)

	in := newTestInstantiator(22, WithActionSource(memorySource{actions: first.Actions}))

	second, err := in.InstantiateStage(t.Context(), models.Embed(revision), spec, firstRelease.Release().ID, StageOptions{ResultOf: decision})
	require.NoError(t, err)

	release := oneOfType(t, second.Actions, models.ActionTypeCreateRelease)
	reviews := ofType(second.Actions, models.ActionTypeReview)
	require.Len(t, reviews, 3)

	for _, review := range reviews {
		assert.Equal(t, []string{release.ID, decision.ID}, review.InstrumentIDs())
	}
}
