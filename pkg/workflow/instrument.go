package workflow

import (
	"context"
	"fmt"

	"github.com/science-periodicals/librarian-sub000/pkg/graph"
	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"golang.org/x/sync/errgroup"
)

// ActionSource reads persisted actions of a Graph.
type ActionSource interface {
	ActionsByType(ctx context.Context, scope string, types ...models.ActionType) ([]*models.Action, error)
}

// instrumentTypes are the persisted action types instruments are drawn from.
var instrumentTypes = []models.ActionType{
	models.ActionTypeReview,
	models.ActionTypeCreateRelease,
	models.ActionTypeDeclare,
	models.ActionTypePay,
	models.ActionTypePublish,
}

// wiring carries what the instrument pass needs to know about the stage.
type wiring struct {
	graphID     string
	stageObject string
	resultOf    *models.Action
	hasRelease  bool
}

// fetchInstruments loads candidate instruments for a Graph, one query per
// action type, and overlays the actions instantiated in memory.
func fetchInstruments(ctx context.Context, source ActionSource, graphID string, inMemory []*models.Action) ([]*models.Action, error) {
	var persisted [][]*models.Action

	if source != nil {
		persisted = make([][]*models.Action, len(instrumentTypes))

		g, ctx := errgroup.WithContext(ctx)

		for i, t := range instrumentTypes {
			g.Go(func() error {
				actions, err := source.ActionsByType(ctx, graphID, t)
				if err != nil {
					return fmt.Errorf("fetching %s of %s: %w", t, graphID, err)
				}

				persisted[i] = actions

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	overlay := graph.NodeMap(inMemory)

	var out []*models.Action

	seen := map[string]struct{}{}

	for _, actions := range persisted {
		for _, a := range actions {
			if _, ok := overlay[a.ID]; ok {
				continue
			}

			if _, ok := seen[a.ID]; ok {
				continue
			}

			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}

	return append(out, inMemory...), nil
}

// wireInstruments attaches instruments to the freshly instantiated actions of
// the stage. It mutates stageActions in place.
func (e *stageEnv) wireInstruments(stageActions, candidates []*models.Action, w wiring) error {
	releaseFor := func(object string) *models.Action {
		for _, c := range candidates {
			if c.Is(models.ActionTypeCreateRelease) && c.Release() != nil && c.Release().ID == object {
				return c
			}
		}

		return nil
	}

	sameObject := func(t models.ActionType, object string) []string {
		var ids []string

		for _, c := range candidates {
			if c.Is(t) && c.Object == object {
				ids = append(ids, c.ID)
			}
		}

		return ids
	}

	for _, a := range stageActions {
		switch a.Type {
		case models.ActionTypeAssess:
			var ids []string

			ids = append(ids, sameObject(models.ActionTypeReview, a.Object)...)
			if release := releaseFor(a.Object); release != nil {
				ids = append(ids, release.ID)
			}

			ids = append(ids, sameObject(models.ActionTypeDeclare, a.Object)...)
			ids = append(ids, sameObject(models.ActionTypePay, a.Object)...)

			a.Instrument = models.InstrumentIDs(ids...)

			if !w.hasRelease && w.resultOf != nil {
				if err := e.backportComments(a, w.resultOf); err != nil {
					return err
				}
			}

		case models.ActionTypeReview, models.ActionTypeDeclare, models.ActionTypePay, models.ActionTypePublish:
			object := a.Object
			if a.Is(models.ActionTypePublish) {
				object = w.stageObject
			}

			var ids []string
			if release := releaseFor(object); release != nil {
				ids = append(ids, release.ID)
			}

			if a.Is(models.ActionTypeReview) && w.resultOf != nil {
				ids = append(ids, w.resultOf.ID)
			}

			if len(ids) > 0 {
				a.Instrument = models.InstrumentIDs(ids...)
			}

		case models.ActionTypeCreateRelease:
			if w.resultOf != nil && a.ResultOf == e.stageID {
				a.Instrument = models.InstrumentIDs(w.resultOf.ID)
			}
		}
	}

	return nil
}

// backportComments copies the comments and annotations of the decision that
// started the stage onto the new AssessAction, under fresh identifiers.
func (e *stageEnv) backportComments(assess, decision *models.Action) error {
	clone := decision.Clone()

	for _, c := range clone.Comment {
		if err := e.rescopeComment(c, assess.ID); err != nil {
			return err
		}
	}

	for _, an := range clone.Annotation {
		id, err := e.factory.Create(identifier.KindCNode, "", assess.ID)
		if err != nil {
			return err
		}

		an.ID = id.ID

		if err := e.rescopeComment(an.AnnotationBody, assess.ID); err != nil {
			return err
		}
	}

	assess.Comment = clone.Comment
	assess.Annotation = clone.Annotation

	return nil
}

func (e *stageEnv) rescopeComment(c *models.Comment, scope string) error {
	if c == nil {
		return nil
	}

	id, err := e.factory.Create(identifier.KindCNode, "", scope)
	if err != nil {
		return err
	}

	c.ID = id.ID

	return nil
}
