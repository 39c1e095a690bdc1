package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/science-periodicals/librarian-sub000/pkg/eventbus"
	"github.com/science-periodicals/librarian-sub000/pkg/events"
	"github.com/science-periodicals/librarian-sub000/pkg/graph"
	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/otelhelper"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/workflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Lock prefixes of the resources guarded by Stages.
const (
	GraphLockPrefix      = "graph"
	StageLockPrefix      = "stage"
	AssessmentLockPrefix = "assess"
	ReleaseLockPrefix    = "release"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StartGraphRequest starts the workflow of a new Graph.
type StartGraphRequest struct {
	GraphID       string                        `validate:"required,startswith=graph:"`
	Specification *models.WorkflowSpecification `validate:"required"`
	Agent         *models.Role
	StartTime     *time.Time
}

// CompleteAssessmentRequest records an editor's decision and starts what it selects.
type CompleteAssessmentRequest struct {
	GraphID        string                        `validate:"required,startswith=graph:"`
	AssessActionID string                        `validate:"required,startswith=action:"`
	ResultID       string                        `validate:"required,startswith=action:"`
	Specification  *models.WorkflowSpecification `validate:"required"`
	Agent          *models.Role
	RevisionType   models.RevisionType `validate:"omitempty,oneof=MajorRevision MinorRevision PatchRevision"`
	EndTime        *time.Time
}

// CompleteReleaseRequest completes a CreateReleaseAction, making its result
// the latest release of the Graph.
type CompleteReleaseRequest struct {
	GraphID  string `validate:"required,startswith=graph:"`
	ActionID string `validate:"required,startswith=action:"`
	Agent    *models.Role
	EndTime  *time.Time
}

// StageResult is a committed stage.
type StageResult struct {
	Stage   *models.Action
	Actions []*models.Action
}

// AssessmentResult is a committed decision. Exactly one of Stage and Reject is set.
type AssessmentResult struct {
	Assessment *models.Action
	Stage      *StageResult
	Reject     *models.Action
}

// Stages instantiates workflow stages on behalf of the actions that trigger
// them, guarding each instantiation with a lock and an existence re-check.
type Stages struct {
	store        persistence.Store
	actions      *persistence.Actions
	releases     *persistence.Releases
	locker       lock.Locker
	publisher    eventbus.EventPublisher
	instantiator *workflow.Instantiator
	factory      *identifier.Factory
	tracer       trace.Tracer
	logger       *slog.Logger
	lockTTL      time.Duration
	now          func() time.Time
}

// StagesOption configures Stages.
type StagesOption func(*Stages)

// WithStagesIdentifierFactory sets the factory minting identifiers.
func WithStagesIdentifierFactory(f *identifier.Factory) StagesOption {
	return func(s *Stages) {
		s.factory = f
	}
}

// WithStagesTracer sets the tracer of the service spans.
func WithStagesTracer(tracer trace.Tracer) StagesOption {
	return func(s *Stages) {
		s.tracer = tracer
	}
}

// WithLockTTL sets how long stage locks live.
func WithLockTTL(ttl time.Duration) StagesOption {
	return func(s *Stages) {
		s.lockTTL = ttl
	}
}

// WithClock sets the clock used when requests carry no time.
func WithClock(now func() time.Time) StagesOption {
	return func(s *Stages) {
		s.now = now
	}
}

// NewStages creates the stage service. publisher may be nil.
func NewStages(store persistence.Store, locker lock.Locker, publisher eventbus.EventPublisher, logger *slog.Logger, opts ...StagesOption) *Stages {
	s := &Stages{
		store:     store,
		actions:   persistence.NewActions(store),
		releases:  persistence.NewReleases(store),
		locker:    locker,
		publisher: publisher,
		factory:   identifier.NewFactory(),
		tracer:    otel.Tracer("librarian/services"),
		logger:    logger.With("module", "stages"),
		lockTTL:   lock.DefaultTTL,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.instantiator = workflow.NewInstantiator(
		workflow.WithIdentifierFactory(s.factory),
		workflow.WithActionSource(s.actions),
		workflow.WithTracer(s.tracer),
		workflow.WithLogger(logger),
	)

	return s
}

func (s *Stages) timeOr(t *time.Time) *time.Time {
	if t != nil {
		return t
	}

	now := s.now().UTC()

	return &now
}

// StartGraph creates the Graph and instantiates the entry stage of the
// workflow for it.
func (s *Stages) StartGraph(ctx context.Context, req StartGraphRequest) (*StageResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.start_graph",
		attribute.String(otelhelper.GraphIDKey, req.GraphID),
	)
	defer span.End()

	result, err := s.startGraph(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

func (s *Stages) startGraph(ctx context.Context, req StartGraphRequest) (*StageResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("StartGraph", "invalid_request", err.Error(), ErrInvalidRequest)
	}

	if err := workflow.ValidateSpecification(req.Specification); err != nil {
		return nil, err
	}

	var (
		result         *StageResult
		releaseVersion string
	)

	graphExists := func(ctx context.Context) (bool, error) {
		return s.exists(ctx, req.GraphID)
	}

	err := lock.With(ctx, s.locker, req.GraphID, s.lockOptions(GraphLockPrefix, graphExists), func(ctx context.Context) error {
		startTime := s.timeOr(req.StartTime)

		stage, err := s.instantiator.InstantiateStage(ctx, req.Specification.EntryStage(), req.Specification, req.GraphID, workflow.StageOptions{
			Agent:     req.Agent,
			StartTime: startTime,
		})
		if err != nil {
			return err
		}

		graphDoc, err := persistence.EncodeGraph(&models.Graph{
			ID:          req.GraphID,
			Type:        models.GraphType,
			Workflow:    req.Specification.ID,
			Creator:     req.Agent.Clone(),
			DateCreated: startTime,
		})
		if err != nil {
			return err
		}

		docs, err := encodeActions(stage.Documents(), req.GraphID, nil)
		if err != nil {
			return err
		}

		if _, err := s.store.PutMany(ctx, append([]*persistence.Document{graphDoc}, docs...)); err != nil {
			return fmt.Errorf("persisting stage %s: %w", stage.Stage.ID, err)
		}

		result = &StageResult{Stage: stage.Stage, Actions: stage.Actions}
		releaseVersion = stage.ReleaseVersion

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, req.GraphID, s.stageInstantiated(req.GraphID, result, releaseVersion))

	s.logger.InfoContext(ctx, "Started graph", "graph_id", req.GraphID, "stage_id", result.Stage.ID)

	return result, nil
}

// CompleteAssessment completes an AssessAction with one of its potential
// results. A stage result is instantiated, a rejection ends the workflow.
// Repeating a call that already succeeded is rejected as locked, so a caller
// retrying after an ambiguous failure can tell the work is done.
func (s *Stages) CompleteAssessment(ctx context.Context, req CompleteAssessmentRequest) (*AssessmentResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.complete_assessment",
		attribute.String(otelhelper.GraphIDKey, req.GraphID),
		attribute.String(otelhelper.ActionIDKey, req.AssessActionID),
	)
	defer span.End()

	result, err := s.completeAssessment(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return result, nil
}

func (s *Stages) completeAssessment(ctx context.Context, req CompleteAssessmentRequest) (*AssessmentResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("CompleteAssessment", "invalid_request", err.Error(), ErrInvalidRequest)
	}

	assess, _, err := s.actions.Get(ctx, req.GraphID, req.AssessActionID)
	if err != nil {
		return nil, err
	}

	if !assess.Is(models.ActionTypeAssess) {
		return nil, NewValidationError("CompleteAssessment", "not_assess_action", req.AssessActionID+" is a "+string(assess.Type), ErrNotAssessAction)
	}

	if !slices.Contains(assess.PotentialResult.IDs(), req.ResultID) {
		return nil, NewValidationError("CompleteAssessment", "invalid_result", req.ResultID, ErrInvalidResult)
	}

	if err := checkUndecided(assess, req.ResultID); err != nil {
		return nil, err
	}

	next, _, err := s.actions.Get(ctx, req.GraphID, req.ResultID)
	if err != nil {
		return nil, err
	}

	switch {
	case next.Is(models.ActionTypeStartWorkflowStage):
		return s.startNextStage(ctx, req)
	case next.Is(models.ActionTypeReject):
		return s.reject(ctx, req)
	default:
		return nil, NewValidationError("CompleteAssessment", "unexpected_result", req.ResultID+" is a "+string(next.Type), ErrUnexpectedResult)
	}
}

// checkUndecided fails when assess was already completed with another result.
func checkUndecided(assess *models.Action, resultID string) error {
	if assess.ActionStatus == models.ActionStatusCompleted && assess.Result != nil && assess.Result.ID != resultID {
		return &ServiceError{Op: "CompleteAssessment", Code: "already_assessed", Message: assess.ID + " selected " + assess.Result.ID, Err: ErrAlreadyAssessed}
	}

	return nil
}

// complete marks the stored assessment as decided on req.ResultID.
func (s *Stages) complete(assess *models.Action, req CompleteAssessmentRequest) {
	assess.ActionStatus = models.ActionStatusCompleted
	assess.EndTime = s.timeOr(req.EndTime)
	assess.Result = &models.ActionResult{ID: req.ResultID}

	if req.RevisionType != "" {
		assess.RevisionType = req.RevisionType
	}

	if req.Agent != nil {
		assess.Agent = req.Agent.Clone()
	}
}

func (s *Stages) startNextStage(ctx context.Context, req CompleteAssessmentRequest) (*AssessmentResult, error) {
	var result *AssessmentResult

	instantiated := func(ctx context.Context) (bool, error) {
		stub, _, err := s.actions.Get(ctx, req.GraphID, req.ResultID)
		if err != nil {
			return false, err
		}

		return stub.ActionStatus != models.ActionStatusPotential, nil
	}

	err := lock.With(ctx, s.locker, req.ResultID, s.lockOptions(StageLockPrefix, instantiated), func(ctx context.Context) error {
		assess, assessRev, err := s.actions.Get(ctx, req.GraphID, req.AssessActionID)
		if err != nil {
			return err
		}

		stub, stubRev, err := s.actions.Get(ctx, req.GraphID, req.ResultID)
		if err != nil {
			return err
		}

		if err := checkUndecided(assess, req.ResultID); err != nil {
			return err
		}

		s.complete(assess, req)

		object, err := s.currentObject(ctx, req.GraphID)
		if err != nil {
			return err
		}

		stage, err := s.instantiator.InstantiateStage(ctx, models.Embed(stub), req.Specification, object, workflow.StageOptions{
			Agent:     req.Agent,
			StartTime: assess.EndTime,
			ResultOf:  assess.Clone(),
		})
		if err != nil {
			return err
		}

		docs, err := encodeActions(stage.Documents(), req.GraphID, map[string]int64{stub.ID: stubRev})
		if err != nil {
			return err
		}

		assessDoc, err := persistence.EncodeAction(assess, req.GraphID)
		if err != nil {
			return err
		}

		assessDoc.Rev = assessRev

		if _, err := s.store.PutMany(ctx, append([]*persistence.Document{assessDoc}, docs...)); err != nil {
			return fmt.Errorf("persisting stage %s: %w", stage.Stage.ID, err)
		}

		result = &AssessmentResult{
			Assessment: assess,
			Stage: &StageResult{
				Stage:   stage.Stage,
				Actions: stage.Actions,
			},
		}

		s.publish(ctx, req.GraphID, s.stageInstantiated(req.GraphID, result.Stage, stage.ReleaseVersion))

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, req.GraphID, s.assessmentCompleted(req, result.Assessment))

	s.logger.InfoContext(ctx, "Completed assessment",
		"graph_id", req.GraphID,
		"assess_action_id", req.AssessActionID,
		"stage_id", result.Stage.Stage.ID,
	)

	return result, nil
}

func (s *Stages) reject(ctx context.Context, req CompleteAssessmentRequest) (*AssessmentResult, error) {
	var result *AssessmentResult

	assessed := func(ctx context.Context) (bool, error) {
		assess, _, err := s.actions.Get(ctx, req.GraphID, req.AssessActionID)
		if err != nil {
			return false, err
		}

		return assess.ActionStatus == models.ActionStatusCompleted, nil
	}

	err := lock.With(ctx, s.locker, req.AssessActionID, s.lockOptions(AssessmentLockPrefix, assessed), func(ctx context.Context) error {
		assess, assessRev, err := s.actions.Get(ctx, req.GraphID, req.AssessActionID)
		if err != nil {
			return err
		}

		reject, rejectRev, err := s.actions.Get(ctx, req.GraphID, req.ResultID)
		if err != nil {
			return err
		}

		if err := checkUndecided(assess, req.ResultID); err != nil {
			return err
		}

		s.complete(assess, req)

		reject.ActionStatus = models.ActionStatusCompleted
		reject.StartTime = assess.EndTime
		reject.EndTime = assess.EndTime

		docs, err := encodeActions([]*models.Action{assess, reject}, req.GraphID, map[string]int64{
			assess.ID: assessRev,
			reject.ID: rejectRev,
		})
		if err != nil {
			return err
		}

		graphDoc, err := s.store.Get(ctx, req.GraphID)
		if err != nil {
			return err
		}

		g, err := persistence.DecodeGraph(graphDoc)
		if err != nil {
			return err
		}

		g.DateRejected = assess.EndTime

		rejected, err := persistence.EncodeGraph(g)
		if err != nil {
			return err
		}

		rejected.Rev = graphDoc.Rev

		if _, err := s.store.PutMany(ctx, append(docs, rejected)); err != nil {
			return fmt.Errorf("persisting rejection %s: %w", reject.ID, err)
		}

		result = &AssessmentResult{Assessment: assess, Reject: reject}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, req.GraphID, s.assessmentCompleted(req, result.Assessment))
	s.publish(ctx, req.GraphID, events.GraphRejected{
		BaseEvent:      events.NewBaseEvent(events.GraphRejectedEvent, req.GraphID),
		RejectActionID: result.Reject.ID,
	})

	s.logger.InfoContext(ctx, "Rejected graph", "graph_id", req.GraphID, "assess_action_id", req.AssessActionID)

	return result, nil
}

// CompleteRelease completes a CreateReleaseAction and moves the latest release
// pointer of the Graph to its result. Stages instantiated afterwards target
// that release.
func (s *Stages) CompleteRelease(ctx context.Context, req CompleteReleaseRequest) (*models.Release, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "services.complete_release",
		attribute.String(otelhelper.GraphIDKey, req.GraphID),
		attribute.String(otelhelper.ActionIDKey, req.ActionID),
	)
	defer span.End()

	if err := validate.Struct(req); err != nil {
		err = NewValidationError("CompleteRelease", "invalid_request", err.Error(), ErrInvalidRequest)
		otelhelper.SetError(span, err)

		return nil, err
	}

	completed := func(ctx context.Context) (bool, error) {
		action, _, err := s.actions.Get(ctx, req.GraphID, req.ActionID)
		if err != nil {
			return false, err
		}

		return action.ActionStatus == models.ActionStatusCompleted, nil
	}

	var release *models.Release

	err := lock.With(ctx, s.locker, req.GraphID, s.lockOptions(ReleaseLockPrefix, completed), func(ctx context.Context) error {
		action, rev, err := s.actions.Get(ctx, req.GraphID, req.ActionID)
		if err != nil {
			return err
		}

		release = action.Release()
		if !action.Is(models.ActionTypeCreateRelease) || release == nil || release.Version == "" {
			return NewValidationError("CompleteRelease", "not_release_action", req.ActionID+" is a "+string(action.Type), ErrNotReleaseAction)
		}

		action.ActionStatus = models.ActionStatusCompleted
		action.StartTime = s.timeOr(action.StartTime)
		action.EndTime = s.timeOr(req.EndTime)

		if req.Agent != nil {
			action.Agent = req.Agent.Clone()
		}

		docs, err := encodeActions([]*models.Action{action}, req.GraphID, map[string]int64{action.ID: rev})
		if err != nil {
			return err
		}

		releaseDocs, err := s.releases.Documents(ctx, req.GraphID, release)
		if err != nil {
			return err
		}

		if _, err := s.store.PutMany(ctx, append(docs, releaseDocs...)); err != nil {
			return fmt.Errorf("persisting release %s: %w", release.ID, err)
		}

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	s.publish(ctx, req.GraphID, events.ReleaseCreated{
		BaseEvent: events.NewBaseEvent(events.ReleaseCreatedEvent, req.GraphID),
		ActionID:  req.ActionID,
		ReleaseID: release.ID,
		Version:   release.Version,
	})

	s.logger.InfoContext(ctx, "Created release", "graph_id", req.GraphID, "release_id", release.ID, "version", release.Version)

	return release, nil
}

// Stage returns the stored stage with its actions embedded.
func (s *Stages) Stage(ctx context.Context, graphID, stageID string) (*StageResult, error) {
	stage, _, err := s.actions.Get(ctx, graphID, stageID)
	if err != nil {
		return nil, err
	}

	if !stage.Is(models.ActionTypeStartWorkflowStage) {
		return nil, NewValidationError("Stage", "not_stage", stageID+" is a "+string(stage.Type), ErrInvalidRequest)
	}

	all, err := s.actions.ActionsByType(ctx, graphID, models.ActionTypes...)
	if err != nil {
		return nil, err
	}

	var owned []*models.Action

	for _, a := range all {
		if a.ResultOf == stageID {
			owned = append(owned, a)
		}
	}

	nodes := graph.NodeMap(all)

	return &StageResult{Stage: graph.Embed(stage, nodes), Actions: owned}, nil
}

// currentObject returns the Graph identifier, suffixed with the version of
// its latest release when there is one.
func (s *Stages) currentObject(ctx context.Context, graphID string) (string, error) {
	latest, err := s.releases.Latest(ctx, graphID)
	if errors.Is(err, persistence.ErrNotFound) {
		return graphID, nil
	}

	if err != nil {
		return "", err
	}

	created, err := s.factory.Create(identifier.KindRelease, latest.Version, graphID)
	if err != nil {
		return "", err
	}

	return created.ID, nil
}

func (s *Stages) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

func (s *Stages) lockOptions(prefix string, isLocked lock.IsLockedFunc) lock.Options {
	return lock.Options{Prefix: prefix, TTL: s.lockTTL, IsLocked: isLocked}
}

// encodeActions encodes flattened actions. Documents listed in revs replace
// the stored revision, the others must not exist yet.
func encodeActions(actions []*models.Action, graphID string, revs map[string]int64) ([]*persistence.Document, error) {
	docs := make([]*persistence.Document, 0, len(actions))

	for _, a := range actions {
		doc, err := persistence.EncodeAction(a, graphID)
		if err != nil {
			return nil, err
		}

		doc.Rev = revs[a.ID]
		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Stages) stageInstantiated(graphID string, stage *StageResult, releaseVersion string) events.StageInstantiated {
	ids := make([]string, 0, len(stage.Actions))
	for _, a := range stage.Actions {
		ids = append(ids, a.ID)
	}

	return events.StageInstantiated{
		BaseEvent:      events.NewBaseEvent(events.StageInstantiatedEvent, graphID),
		StageID:        stage.Stage.ID,
		TemplateID:     stage.Stage.InstanceOf,
		Identifier:     stage.Stage.Identifier,
		ResultOf:       stage.Stage.ResultOf,
		ActionIDs:      ids,
		ReleaseVersion: releaseVersion,
	}
}

func (s *Stages) assessmentCompleted(req CompleteAssessmentRequest, assess *models.Action) events.AssessmentCompleted {
	return events.AssessmentCompleted{
		BaseEvent:      events.NewBaseEvent(events.AssessmentCompletedEvent, req.GraphID),
		AssessActionID: assess.ID,
		ResultID:       req.ResultID,
		RevisionType:   string(assess.RevisionType),
	}
}

// publish is best effort: the change is already committed.
func (s *Stages) publish(ctx context.Context, graphID string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, graphID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "type", event.GetType(), "graph_id", graphID, "error", err)
	}
}
