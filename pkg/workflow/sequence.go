package workflow

import (
	"slices"
	"strconv"
	"strings"

	"github.com/science-periodicals/librarian-sub000/pkg/graph"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// StageIndex returns the index of the stage started by resultOf: 0 for the
// first stage, otherwise one more than the stage of the deciding AssessAction.
func StageIndex(resultOf *models.Action) int {
	if resultOf == nil || resultOf.Identifier == "" {
		return 0
	}

	head, _, _ := strings.Cut(resultOf.Identifier, ".")

	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}

	return n + 1
}

// sequence assigns `identifier` to the stage and to every action it contains.
//
// Timeline actions are numbered "<stage>.<position>" in dependency order.
// An EndorseAction extends the identifier of the action it endorses with
// ".e", and InformActions nested under another action are numbered
// "<parent>.i.<n>", their email messages "<inform>.e". A RejectAction
// offered as a potential result is placed on the timeline after the
// AssessAction offering it. Stage stubs stay unnumbered.
func sequence(stage *models.Action, stageIndex int) {
	prefix := strconv.Itoa(stageIndex)
	stage.Identifier = prefix

	actions := graph.Actions(stage)[1:]
	byID := graph.NodeMap(actions)

	excluded := map[*models.Action]bool{}
	informs := map[*models.Action][]*models.Action{}
	offeredBy := map[string]string{}

	for _, a := range actions {
		for _, ref := range a.PotentialResult {
			switch {
			case ref.Action == nil:
			case ref.Action.Is(models.ActionTypeReject):
				offeredBy[ref.Action.ID] = a.ID
			default:
				excluded[ref.Action] = true
			}
		}

		for _, ref := range a.PotentialAction {
			if ref.Action.Is(models.ActionTypeInform) {
				excluded[ref.Action] = true
				informs[a] = append(informs[a], ref.Action)
			}
		}
	}

	var endorsements []*models.Action

	timeline := make([]*models.Action, 0, len(actions))

	for _, a := range actions {
		if excluded[a] {
			continue
		}

		if a.Is(models.ActionTypeEndorse) {
			if target, ok := byID[a.Object]; ok && !target.Is(models.ActionTypeEndorse) {
				endorsements = append(endorsements, a)

				continue
			}
		}

		timeline = append(timeline, a)
	}

	depths := dependencyDepths(timeline)
	for reject, assess := range offeredBy {
		depths[reject] = depths[assess] + 1
	}

	slices.SortStableFunc(timeline, func(a, b *models.Action) int {
		if depths[a.ID] != depths[b.ID] {
			return depths[a.ID] - depths[b.ID]
		}

		return CompareActions(a, b)
	})

	for i, a := range timeline {
		a.Identifier = prefix + "." + strconv.Itoa(i)
	}

	for _, a := range endorsements {
		a.Identifier = byID[a.Object].Identifier + ".e"
	}

	// parents precede their children in tree order
	for _, parent := range actions {
		for n, inform := range informs[parent] {
			if parent.Identifier == "" {
				continue
			}

			inform.Identifier = parent.Identifier + ".i." + strconv.Itoa(n)

			for _, instrument := range inform.Instrument {
				if instrument.Message != nil {
					instrument.Message.Identifier = inform.Identifier + ".e"
				}
			}
		}
	}
}

// dependencyDepths returns, per action, the length of the longest
// `requiresCompletionOf` chain within actions.
func dependencyDepths(actions []*models.Action) map[string]int {
	byID := graph.NodeMap(actions)
	depths := make(map[string]int, len(actions))
	visiting := map[string]bool{}

	var depth func(a *models.Action) int
	depth = func(a *models.Action) int {
		if d, ok := depths[a.ID]; ok {
			return d
		}

		if visiting[a.ID] {
			return 0
		}

		visiting[a.ID] = true
		defer delete(visiting, a.ID)

		d := 0
		for _, dep := range a.RequiresCompletionOf {
			if other, ok := byID[dep]; ok {
				d = max(d, depth(other)+1)
			}
		}

		depths[a.ID] = d

		return d
	}

	for _, a := range actions {
		depth(a)
	}

	return depths
}
