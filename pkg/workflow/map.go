package workflow

import (
	"strings"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// DefaultTemplatePrefix is the namespace of action templates.
const DefaultTemplatePrefix = "workflow:"

// Map indexes action templates by identifier.
type Map map[string]*models.Action

// BuildWorkflowMap walks the template tree rooted at root through
// `potentialAction`, `result` and `potentialResult` and indexes every full
// template node whose identifier starts with prefix. Bare references are
// skipped; they are what the map is used to dereference.
func BuildWorkflowMap(root *models.Action, prefix string) Map {
	if prefix == "" {
		prefix = DefaultTemplatePrefix
	}

	m := Map{}
	visited := map[*models.Action]struct{}{}

	var walk func(*models.Action)
	walk = func(a *models.Action) {
		if a == nil {
			return
		}

		if _, ok := visited[a]; ok {
			return
		}

		visited[a] = struct{}{}

		if strings.HasPrefix(a.ID, prefix) && a.Type != "" {
			if _, ok := m[a.ID]; !ok {
				m[a.ID] = a
			}
		}

		for _, ref := range a.PotentialAction {
			walk(ref.Action)
		}

		if a.Result != nil {
			for _, ref := range a.Result.Actions {
				walk(ref.Action)
			}

			if a.Result.Release != nil {
				for _, ref := range a.Result.Release.PotentialAction {
					walk(ref.Action)
				}
			}
		}

		for _, ref := range a.PotentialResult {
			walk(ref.Action)
		}
	}

	walk(root)

	return m
}

// SpecificationMap indexes the templates of spec.
func SpecificationMap(spec *models.WorkflowSpecification, prefix string) Map {
	root := spec.CreateGraphAction()
	if root == nil {
		return Map{}
	}

	return BuildWorkflowMap(root, prefix)
}

// Resolve returns the full template behind ref. Embedded nodes that carry
// only an identifier are dereferenced through the map.
func (m Map) Resolve(ref *models.ActionRef) *models.Action {
	if ref == nil {
		return nil
	}

	if ref.Action != nil && ref.Action.Type != "" {
		return ref.Action
	}

	return m[ref.Ident()]
}
