// Package workflow instantiates the stages of an editorial workflow: it turns
// the action templates of a WorkflowSpecification into concrete, relabeled and
// sequenced action documents for a live Graph.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/graph"
	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StageOptions are the caller supplied inputs of a stage instantiation.
type StageOptions struct {
	Agent     *models.Role
	StartTime *time.Time
	EndTime   *time.Time
	// ResultOf is the completed AssessAction that selected the stage, nil for
	// the first stage of a Graph.
	ResultOf *models.Action
}

// InstantiatedStage is the output of a stage instantiation.
type InstantiatedStage struct {
	// Stage is the StartWorkflowStageAction with its actions embedded.
	Stage *models.Action
	// Actions are the flat documents of every action owned by the stage.
	Actions []*models.Action
	// ReleaseVersion is the version of the release the stage creates, if any.
	ReleaseVersion string
}

// Documents returns the stage document followed by its actions, ready to be
// persisted together.
func (s *InstantiatedStage) Documents() []*models.Action {
	return graph.Flatten(s.Stage)
}

// Instantiator instantiates workflow stages.
type Instantiator struct {
	factory *identifier.Factory
	source  ActionSource
	tracer  trace.Tracer
	logger  *slog.Logger
	prefix  string
}

// Option configures an Instantiator.
type Option func(*Instantiator)

// WithIdentifierFactory sets the factory minting identifiers.
func WithIdentifierFactory(f *identifier.Factory) Option {
	return func(i *Instantiator) {
		i.factory = f
	}
}

// WithActionSource sets where persisted actions are read from when wiring instruments.
func WithActionSource(source ActionSource) Option {
	return func(i *Instantiator) {
		i.source = source
	}
}

// WithTracer sets the tracer of the instantiation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(i *Instantiator) {
		i.tracer = tracer
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instantiator) {
		i.logger = logger
	}
}

// WithTemplatePrefix sets the namespace of action templates.
func WithTemplatePrefix(prefix string) Option {
	return func(i *Instantiator) {
		i.prefix = prefix
	}
}

// NewInstantiator creates an Instantiator.
func NewInstantiator(opts ...Option) *Instantiator {
	i := &Instantiator{
		factory: identifier.NewFactory(),
		tracer:  otel.Tracer("librarian/workflow"),
		logger:  slog.Default(),
		prefix:  DefaultTemplatePrefix,
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.prefix == "" {
		i.prefix = DefaultTemplatePrefix
	}

	i.logger = i.logger.With("module", "workflow_instantiator")

	return i
}

// InstantiateStage instantiates the stage referenced by ref for the Graph
// (or release) object. ref is either a stage template, a reference to one, or
// a stub minted when a previous stage was instantiated, in which case the
// stub's identifier is kept.
//
// Nothing is persisted. Callers store every document of the result together
// and hold a lock guarding against a concurrent instantiation of the same stage.
func (i *Instantiator) InstantiateStage(
	ctx context.Context,
	ref *models.ActionRef,
	spec *models.WorkflowSpecification,
	object string,
	opts StageOptions,
) (*InstantiatedStage, error) {
	ctx, span := otelhelper.StartSpan(ctx, i.tracer, "workflow.instantiate_stage",
		attribute.String(otelhelper.ObjectIDKey, object),
	)
	defer span.End()

	stage, err := i.instantiateStage(ctx, ref, spec, object, opts)
	if err != nil {
		otelhelper.SetError(span, err)
		i.logger.ErrorContext(ctx, "Failed to instantiate stage", "object", object, "error", err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.StageIDKey, stage.Stage.ID),
		attribute.String(otelhelper.TemplateIDKey, stage.Stage.InstanceOf),
		attribute.Int(otelhelper.ActionCountKey, len(stage.Actions)),
	)

	i.logger.InfoContext(ctx, "Instantiated stage",
		"stage_id", stage.Stage.ID,
		"template_id", stage.Stage.InstanceOf,
		"identifier", stage.Stage.Identifier,
		"actions", len(stage.Actions),
	)

	return stage, nil
}

func (i *Instantiator) instantiateStage(
	ctx context.Context,
	ref *models.ActionRef,
	spec *models.WorkflowSpecification,
	object string,
	opts StageOptions,
) (*InstantiatedStage, error) {
	graphID, graphVersion, err := identifier.SplitVersion(object)
	if err != nil {
		return nil, fmt.Errorf("resolving object %q: %w", object, err)
	}

	if ref == nil {
		return nil, ErrTemplateNotFound
	}

	templates := SpecificationMap(spec, i.prefix)

	templateID, stageID := ref.Ident(), ""
	if ref.Action != nil && identifier.Is(ref.Action.ID, identifier.KindAction) {
		templateID, stageID = ref.Action.InstanceOf, ref.Action.ID
	}

	tmpl := templates[templateID]
	if !tmpl.Is(models.ActionTypeStartWorkflowStage) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	if stageID == "" {
		created, err := i.factory.Create(identifier.KindAction, "", graphID)
		if err != nil {
			return nil, err
		}

		stageID = created.ID
	}

	env := &stageEnv{
		factory:      i.factory,
		templates:    templates,
		prefix:       i.prefix,
		graphID:      graphID,
		graphVersion: graphVersion,
		stageID:      stageID,
		resultOf:     opts.ResultOf,
		startTime:    opts.StartTime,
		endTime:      opts.EndTime,
	}

	stageObject := object
	if release := templates.stageRelease(tmpl); release != nil {
		env.nextVersion, err = nextReleaseVersion(release, graphVersion, opts.ResultOf)
		if err != nil {
			return nil, templateError("instantiate", release.ID, err)
		}

		created, err := i.factory.Create(identifier.KindRelease, env.nextVersion, graphID)
		if err != nil {
			return nil, err
		}

		stageObject = created.ID
	}

	labels := NewRelabeling()

	stage, err := env.buildStage(labels, tmpl, object, opts)
	if err != nil {
		return nil, err
	}

	labels.Apply(stage)

	// The stage template id maps to the stub of the next iteration of this
	// stage, so the stage receives its own identifier only after relabeling.
	stage.ID = stageID

	labels.expandInstances(stage)

	actions := graph.Actions(stage)[1:]

	candidates, err := fetchInstruments(ctx, i.source, graphID, actions)
	if err != nil {
		return nil, err
	}

	if err := env.wireInstruments(actions, candidates, wiring{
		graphID:     graphID,
		stageObject: stageObject,
		resultOf:    opts.ResultOf,
		hasRelease:  env.nextVersion != "",
	}); err != nil {
		return nil, err
	}

	sequence(stage, StageIndex(opts.ResultOf))

	docs := graph.Flatten(stage)

	return &InstantiatedStage{
		Stage:          stage,
		Actions:        docs[1:],
		ReleaseVersion: env.nextVersion,
	}, nil
}

// buildStage creates the unlabeled StartWorkflowStageAction and instantiates
// its actions. Top-level actions target object; only the potential actions of
// a CreateReleaseAction target the release it creates.
func (e *stageEnv) buildStage(labels *Relabeling, tmpl *models.Action, object string, opts StageOptions) (*models.Action, error) {
	stage := &models.Action{
		ID:               tmpl.ID,
		Type:             models.ActionTypeStartWorkflowStage,
		Name:             tmpl.Name,
		Description:      tmpl.Description,
		ActionStatus:     models.ActionStatusActive,
		Agent:            opts.Agent.Clone(),
		Participant:      cloneRoles(tmpl.Participant),
		Object:           object,
		InstanceOf:       tmpl.ID,
		ExpectedDuration: tmpl.ExpectedDuration,
		StartTime:        copyTime(opts.StartTime),
		Result:           &models.ActionResult{Actions: models.ActionRefs{}},
	}

	if opts.ResultOf != nil {
		stage.ResultOf = opts.ResultOf.ID
	}

	templates, err := e.templates.multiplexRefs(tmpl.StageActions())
	if err != nil {
		return nil, err
	}

	for _, t := range templates {
		a, err := e.instantiate(labels, t, object, false)
		if err != nil {
			return nil, err
		}

		stage.Result.Actions = append(stage.Result.Actions, models.Embed(a))
	}

	for _, ref := range tmpl.PotentialAction {
		t := e.templates.Resolve(ref)
		if t == nil {
			return nil, templateError("instantiate", ref.Ident(), fmt.Errorf("%w: unknown potential action", ErrInvalidTemplate))
		}

		a, err := e.instantiate(labels, t, e.stageID, true)
		if err != nil {
			return nil, err
		}

		stage.PotentialAction = append(stage.PotentialAction, models.Embed(a))
	}

	return stage, nil
}

func cloneRoles(roles models.Roles) models.Roles {
	if roles == nil {
		return nil
	}

	out := make(models.Roles, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Clone())
	}

	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
