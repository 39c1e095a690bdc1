package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// stageEnv holds what every action instantiated for one stage shares.
// The relabeling is passed explicitly alongside it.
type stageEnv struct {
	factory      *identifier.Factory
	templates    Map
	prefix       string
	graphID      string
	graphVersion string
	stageID      string
	nextVersion  string
	resultOf     *models.Action
	startTime    *time.Time
	endTime      *time.Time
}

// StageReference is a stage selectable as the result of an AssessAction.
// Only the container is created; its actions are instantiated once the
// stage is chosen.
type StageReference struct {
	ID          string
	TemplateID  string
	ResultOf    string
	Object      string
	Name        string
	Description string
}

// Action returns the stub document of the referenced stage. It never has a result.
func (s StageReference) Action() *models.Action {
	return &models.Action{
		ID:           s.ID,
		Type:         models.ActionTypeStartWorkflowStage,
		Name:         s.Name,
		Description:  s.Description,
		ActionStatus: models.ActionStatusPotential,
		InstanceOf:   s.TemplateID,
		ResultOf:     s.ResultOf,
		Object:       s.Object,
	}
}

func (e *stageEnv) mint(kind identifier.Kind, scope string) (string, error) {
	created, err := e.factory.Create(kind, "", scope)
	if err != nil {
		return "", err
	}

	return created.ID, nil
}

// instantiate builds the concrete action for tmpl and, recursively, for its
// potential actions. Identifiers are registered in labels; references are
// rewritten later by labels.Apply.
func (e *stageEnv) instantiate(labels *Relabeling, tmpl *models.Action, objectID string, potential bool) (*models.Action, error) {
	a := tmpl.Clone()
	a.PotentialAction = nil
	a.PotentialResult = nil
	a.MinInstances, a.MaxInstances = 0, 0

	id, err := e.mint(identifier.KindAction, e.graphID)
	if err != nil {
		return nil, templateError("instantiate", tmpl.ID, err)
	}

	a.ID = id
	labels.addInstance(tmpl.ID, a.ID)

	if a.ActionStatus == "" {
		a.ActionStatus = models.ActionStatusPotential
	}

	a.StartTime, a.EndTime = nil, nil
	if e.startTime != nil && (a.ActionStatus.Started() || !potential) {
		t := *e.startTime
		a.StartTime = &t
	}

	if e.endTime != nil && a.ActionStatus.Ended() {
		t := *e.endTime
		a.EndTime = &t
	}

	a.InstanceOf = tmpl.ID
	a.ResultOf = e.stageID
	a.Object = e.object(tmpl, objectID)

	if a.Agent != nil && a.Agent.Name != "" {
		a.Agent.NameInput = &models.PropertyValueSpecification{
			Type:          models.PropertyValueSpecificationType,
			ReadonlyValue: true,
			ValueRequired: true,
		}
	}

	if err := e.specialize(labels, tmpl, a, objectID); err != nil {
		return nil, err
	}

	for _, ref := range tmpl.PotentialAction {
		child := e.templates.Resolve(ref)
		if child == nil {
			return nil, templateError("instantiate", ref.Ident(), fmt.Errorf("%w: unknown potential action", ErrInvalidTemplate))
		}

		instance, err := e.instantiate(labels, child, a.ID, true)
		if err != nil {
			return nil, err
		}

		a.PotentialAction = append(a.PotentialAction, models.Embed(instance))
	}

	return a, nil
}

// object resolves the `object` of an instance. Releases and publications
// always target the live Graph; references to other templates are kept for
// relabeling.
func (e *stageEnv) object(tmpl *models.Action, objectID string) string {
	switch tmpl.Type {
	case models.ActionTypeCreateRelease, models.ActionTypePublish:
		return e.graphID
	}

	if tmpl.Object != "" && (strings.HasPrefix(tmpl.Object, e.prefix) || identifier.IsBlank(tmpl.Object)) {
		return tmpl.Object
	}

	return objectID
}

func (e *stageEnv) specialize(labels *Relabeling, tmpl, a *models.Action, objectID string) error {
	switch a.Type {
	case models.ActionTypeReview:
		return e.specializeReview(labels, a)
	case models.ActionTypeDeclare:
		return e.specializeDeclare(labels, a)
	case models.ActionTypeAssess:
		return e.specializeAssess(labels, tmpl, a, objectID)
	case models.ActionTypeCreateRelease:
		return e.specializeRelease(labels, tmpl, a)
	case models.ActionTypePublish:
		return e.specializePublish(a)
	case models.ActionTypeInform:
		return e.specializeInform(a)
	case models.ActionTypePay,
		models.ActionTypeSchedule,
		models.ActionTypeAuthorize,
		models.ActionTypeDeauthorize,
		models.ActionTypeBuy,
		models.ActionTypeTypesetting,
		models.ActionTypeEndorse,
		models.ActionTypeReject:
		return nil
	case models.ActionTypeCreateGraph, models.ActionTypeStartWorkflowStage:
		return templateError("instantiate", tmpl.ID, fmt.Errorf("%w: %s cannot be a stage action", ErrInvalidTemplate, a.Type))
	default:
		return templateError("instantiate", tmpl.ID, fmt.Errorf("%w: unknown action type %q", ErrInvalidTemplate, a.Type))
	}
}

func (e *stageEnv) specializeReview(labels *Relabeling, a *models.Action) error {
	for _, answer := range a.Answer {
		id, err := e.mint(identifier.KindNode, "")
		if err != nil {
			return err
		}

		answer.ID = id

		if answer.ParentItem == nil || answer.ParentItem.Question == nil {
			continue
		}

		question := answer.ParentItem.Question

		qid, err := e.mint(identifier.KindNode, "")
		if err != nil {
			return err
		}

		if question.ID != "" {
			labels.Set(question.ID, qid)
		}

		question.ID = qid
	}

	review := &models.Review{Type: models.ReviewType}
	if a.ResultReview != nil {
		*review = *a.ResultReview
	}

	id, err := e.mint(identifier.KindNode, "")
	if err != nil {
		return err
	}

	review.ID = id
	a.ResultReview = review

	return nil
}

func (e *stageEnv) specializeDeclare(labels *Relabeling, a *models.Action) error {
	if len(a.Question) == 0 {
		return nil
	}

	answers := make(models.Answers, 0, len(a.Question))

	for _, question := range a.Question {
		qid, err := e.mint(identifier.KindNode, "")
		if err != nil {
			return err
		}

		if question.ID != "" {
			labels.Set(question.ID, qid)
		}

		question.ID = qid

		aid, err := e.mint(identifier.KindNode, "")
		if err != nil {
			return err
		}

		answers = append(answers, &models.Answer{
			ID:         aid,
			Type:       models.AnswerType,
			ParentItem: &models.QuestionRef{ID: qid},
		})
	}

	a.Result = &models.ActionResult{Answers: answers}

	return nil
}

func (e *stageEnv) specializeAssess(labels *Relabeling, tmpl, a *models.Action, objectID string) error {
	for _, ref := range tmpl.PotentialResult {
		next := e.templates.Resolve(ref)

		switch {
		case next.Is(models.ActionTypeStartWorkflowStage):
			stub, err := e.stageReference(labels, next)
			if err != nil {
				return err
			}

			a.PotentialResult = append(a.PotentialResult, models.Embed(stub.Action()))
		case next.Is(models.ActionTypeReject):
			reject, err := e.instantiate(labels, next, objectID, true)
			if err != nil {
				return err
			}

			a.PotentialResult = append(a.PotentialResult, models.Embed(reject))
		default:
			return templateError("instantiate", tmpl.ID,
				fmt.Errorf("%w: potential result %s must be a StartWorkflowStageAction or RejectAction", ErrInvalidTemplate, ref.Ident()))
		}
	}

	return nil
}

// stageReference mints the stub of a stage that may follow the current one.
// The stage template id maps to the stub, so references to the template
// (`ifMatch` in particular) resolve to the stub even when the template is the
// one being instantiated.
func (e *stageEnv) stageReference(labels *Relabeling, tmpl *models.Action) (StageReference, error) {
	id, err := e.mint(identifier.KindAction, e.graphID)
	if err != nil {
		return StageReference{}, templateError("instantiate", tmpl.ID, err)
	}

	labels.addInstance(tmpl.ID, id)

	return StageReference{
		ID:          id,
		TemplateID:  tmpl.ID,
		ResultOf:    e.stageID,
		Object:      e.graphID,
		Name:        tmpl.Name,
		Description: tmpl.Description,
	}, nil
}

func (e *stageEnv) specializeRelease(labels *Relabeling, tmpl, a *models.Action) error {
	next, err := nextReleaseVersion(tmpl, e.graphVersion, e.resultOf)
	if err != nil {
		return templateError("instantiate", tmpl.ID, err)
	}

	created, err := e.factory.Create(identifier.KindRelease, next, e.graphID)
	if err != nil {
		return templateError("instantiate", tmpl.ID, err)
	}

	release := a.Release()
	if release == nil {
		release = &models.Release{}
	}

	release.ID = created.ID
	release.Type = models.GraphType
	release.Version = next
	release.PotentialAction = nil

	if tr := tmpl.Release(); tr != nil {
		templates, err := e.templates.multiplexRefs(tr.PotentialAction)
		if err != nil {
			return err
		}

		for _, child := range templates {
			instance, err := e.instantiate(labels, child, release.ID, true)
			if err != nil {
				return err
			}

			release.PotentialAction = append(release.PotentialAction, models.Embed(instance))
		}
	}

	a.Result = &models.ActionResult{Release: release}

	return nil
}

func (e *stageEnv) specializePublish(a *models.Action) error {
	current := e.graphVersion
	if e.nextVersion != "" {
		current = e.nextVersion
	}

	v, err := publishVersion(current)
	if err != nil {
		return templateError("instantiate", a.InstanceOf, err)
	}

	created, err := e.factory.Create(identifier.KindRelease, v, e.graphID)
	if err != nil {
		return templateError("instantiate", a.InstanceOf, err)
	}

	release := a.Release()
	if release == nil {
		release = &models.Release{}
	}

	release.ID = created.ID
	release.Type = models.GraphType
	release.Version = v
	release.PotentialAction = nil

	a.Result = &models.ActionResult{Release: release}

	return nil
}

// specializeInform gives embedded email messages fresh identifiers while
// keeping a link to the message template.
func (e *stageEnv) specializeInform(a *models.Action) error {
	for _, instrument := range a.Instrument {
		message := instrument.Message
		if message == nil {
			continue
		}

		id, err := e.mint(identifier.KindNode, "")
		if err != nil {
			return err
		}

		message.InstanceOf = message.ID
		message.ID = id
	}

	return nil
}
