package workflow

import (
	"fmt"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// Multiplex expands every template requiring more than one instance into that
// many shallow copies tagged with `instanceIndex`. Other templates pass through.
func Multiplex(templates []*models.Action) []*models.Action {
	out := make([]*models.Action, 0, len(templates))

	for _, tmpl := range templates {
		n := max(tmpl.MinInstances, tmpl.MaxInstances)
		if n <= 1 {
			out = append(out, tmpl)

			continue
		}

		for i := range n {
			instance := *tmpl
			index := i
			instance.InstanceIndex = &index
			out = append(out, &instance)
		}
	}

	return out
}

// multiplexRefs resolves refs through the template map and multiplexes them.
func (m Map) multiplexRefs(refs models.ActionRefs) ([]*models.Action, error) {
	templates := make([]*models.Action, 0, len(refs))

	for _, ref := range refs {
		tmpl := m.Resolve(ref)
		if tmpl == nil {
			return nil, templateError("resolve", ref.Ident(), fmt.Errorf("%w: unknown reference", ErrInvalidTemplate))
		}

		templates = append(templates, tmpl)
	}

	return Multiplex(templates), nil
}
