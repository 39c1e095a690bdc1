// Package graph converts action trees between their nested and flat forms.
//
// A nested tree embeds actions through `result`, `potentialAction` and
// `potentialResult`; its flat form is a list of documents where every nested
// action is replaced by its bare identifier.
package graph

import (
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// Actions returns every action embedded in the tree rooted at root, root
// first, in depth-first order. The returned pointers alias the tree.
func Actions(root *models.Action) []*models.Action {
	var actions []*models.Action

	seen := map[*models.Action]struct{}{}

	var walk func(*models.Action)
	walk = func(a *models.Action) {
		if a == nil {
			return
		}

		if _, ok := seen[a]; ok {
			return
		}

		seen[a] = struct{}{}
		actions = append(actions, a)

		for _, ref := range children(a) {
			walk(ref.Action)
		}
	}

	walk(root)

	return actions
}

// children lists the references of a through which actions are embedded.
func children(a *models.Action) models.ActionRefs {
	var refs models.ActionRefs

	if a.Result != nil {
		refs = append(refs, a.Result.Actions...)
		if a.Result.Release != nil {
			refs = append(refs, a.Result.Release.PotentialAction...)
		}
	}

	refs = append(refs, a.PotentialAction...)
	refs = append(refs, a.PotentialResult...)

	return refs
}

// Flatten returns the documents of the tree rooted at root: copies of each
// embedded action whose nested actions are collapsed to bare identifiers.
func Flatten(root *models.Action) []*models.Action {
	actions := Actions(root)

	docs := make([]*models.Action, 0, len(actions))
	seen := make(map[string]struct{}, len(actions))

	for _, a := range actions {
		if _, ok := seen[a.ID]; ok {
			continue
		}

		seen[a.ID] = struct{}{}
		docs = append(docs, collapse(a))
	}

	return docs
}

func collapse(a *models.Action) *models.Action {
	doc := *a

	if a.Result != nil {
		result := *a.Result
		result.Actions = bare(a.Result.Actions)

		if a.Result.Release != nil {
			release := *a.Result.Release
			release.PotentialAction = bare(release.PotentialAction)
			result.Release = &release
		}

		doc.Result = &result
	}

	doc.PotentialAction = bare(a.PotentialAction)
	doc.PotentialResult = bare(a.PotentialResult)

	return &doc
}

func bare(refs models.ActionRefs) models.ActionRefs {
	if refs == nil {
		return nil
	}

	out := make(models.ActionRefs, 0, len(refs))
	for _, ref := range refs {
		out = append(out, models.RefTo(ref.Ident()))
	}

	return out
}

// NodeMap indexes actions by identifier.
func NodeMap(actions []*models.Action) map[string]*models.Action {
	nodes := make(map[string]*models.Action, len(actions))
	for _, a := range actions {
		if a != nil && a.ID != "" {
			nodes[a.ID] = a
		}
	}

	return nodes
}

// Embed rebuilds a nested tree from flat documents, starting at root. Bare
// references found in nodes are replaced by embedded copies; references back
// to an ancestor stay bare.
func Embed(root *models.Action, nodes map[string]*models.Action) *models.Action {
	return embed(root, nodes, map[string]bool{})
}

func embed(a *models.Action, nodes map[string]*models.Action, ancestors map[string]bool) *models.Action {
	ancestors[a.ID] = true
	defer delete(ancestors, a.ID)

	out := *a

	expand := func(refs models.ActionRefs) models.ActionRefs {
		if refs == nil {
			return nil
		}

		expanded := make(models.ActionRefs, 0, len(refs))
		for _, ref := range refs {
			id := ref.Ident()

			node := ref.Action
			if node == nil {
				node = nodes[id]
			}

			if node == nil || ancestors[id] {
				expanded = append(expanded, models.RefTo(id))

				continue
			}

			expanded = append(expanded, models.Embed(embed(node, nodes, ancestors)))
		}

		return expanded
	}

	if a.Result != nil {
		result := *a.Result
		result.Actions = expand(a.Result.Actions)

		if a.Result.Release != nil {
			release := *a.Result.Release
			release.PotentialAction = expand(release.PotentialAction)
			result.Release = &release
		}

		out.Result = &result
	}

	out.PotentialAction = expand(a.PotentialAction)
	out.PotentialResult = expand(a.PotentialResult)

	return &out
}
