package workflow

import (
	"github.com/science-periodicals/librarian-sub000/pkg/graph"
	"github.com/science-periodicals/librarian-sub000/pkg/identifier"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// Relabeling accumulates the template identifier to concrete identifier
// mapping built while instantiating one stage, then rewrites the references of
// the instantiated tree.
//
// A single Relabeling is threaded through every recursive instantiation call of
// a stage and discarded afterwards.
type Relabeling struct {
	labels    map[string]string
	instances map[string][]string
}

// NewRelabeling returns an empty mapping.
func NewRelabeling() *Relabeling {
	return &Relabeling{
		labels:    map[string]string{},
		instances: map[string][]string{},
	}
}

// Set maps from to to, replacing any previous mapping.
func (r *Relabeling) Set(from, to string) {
	r.labels[from] = to
}

// addInstance records id as an instance of templateID. Plain references to
// the template resolve to its first instance.
func (r *Relabeling) addInstance(templateID, id string) {
	if templateID == "" {
		return
	}

	if _, ok := r.labels[templateID]; !ok {
		r.labels[templateID] = id
	}

	r.instances[templateID] = append(r.instances[templateID], id)
}

// siblings maps every instance of a multiplexed template to all of its instances.
func (r *Relabeling) siblings() map[string][]string {
	out := map[string][]string{}

	for _, ids := range r.instances {
		if len(ids) < 2 {
			continue
		}

		for _, id := range ids {
			out[id] = ids
		}
	}

	return out
}

func (r *Relabeling) relabel(s string) string {
	if to, ok := r.labels[s]; ok {
		return to
	}

	return s
}

func (r *Relabeling) relabelList(l models.IDList) {
	for i, v := range l {
		l[i] = r.relabel(v)
	}
}

// instanceOf keeps pointing at the template unless the template was a blank node.
func (r *Relabeling) instanceOf(s string) string {
	if identifier.IsBlank(s) {
		return r.relabel(s)
	}

	return s
}

func (r *Relabeling) relabelRefs(refs models.ActionRefs) {
	for _, ref := range refs {
		if ref.Action == nil {
			ref.ID = r.relabel(ref.ID)
		}
	}
}

// Apply rewrites every reference held by the actions of the tree rooted at
// root. `sameAs`, `publishActionInstanceOf` and non-blank `instanceOf` keep
// their template values.
func (r *Relabeling) Apply(root *models.Action) {
	for _, a := range graph.Actions(root) {
		r.apply(a)
	}
}

func (r *Relabeling) apply(a *models.Action) {
	a.ID = r.relabel(a.ID)
	a.Object = r.relabel(a.Object)
	a.ResultOf = r.relabel(a.ResultOf)
	a.InstanceOf = r.instanceOf(a.InstanceOf)
	a.IfMatch = models.IDRef(r.relabel(string(a.IfMatch)))
	r.relabelList(a.RequiresCompletionOf)

	r.applyRole(a.Agent)
	for _, p := range a.Participant {
		r.applyRole(p)
	}

	for _, instrument := range a.Instrument {
		if instrument.Message == nil {
			instrument.ID = r.relabel(instrument.ID)

			continue
		}

		r.applyMessage(instrument.Message)
	}

	r.relabelRefs(a.PotentialAction)
	r.relabelRefs(a.PotentialResult)

	if a.Result != nil {
		a.Result.ID = r.relabel(a.Result.ID)
		r.relabelRefs(a.Result.Actions)

		if release := a.Result.Release; release != nil {
			release.ID = r.relabel(release.ID)
			r.relabelRefs(release.PotentialAction)
		}

		for _, answer := range a.Result.Answers {
			r.applyAnswer(answer)
		}
	}

	for _, q := range a.Question {
		q.ID = r.relabel(q.ID)
	}

	for _, answer := range a.Answer {
		r.applyAnswer(answer)
	}

	if a.ResultReview != nil {
		a.ResultReview.ID = r.relabel(a.ResultReview.ID)
	}

	for _, c := range a.Comment {
		r.applyComment(c)
	}

	for _, an := range a.Annotation {
		an.ID = r.relabel(an.ID)
		an.AnnotationTarget = r.relabel(an.AnnotationTarget)
		r.applyComment(an.AnnotationBody)
	}
}

func (r *Relabeling) applyRole(role *models.Role) {
	if role == nil {
		return
	}

	role.ID = r.relabel(role.ID)
	role.Agent = r.relabel(role.Agent)
}

func (r *Relabeling) applyMessage(m *models.EmailMessage) {
	m.ID = r.relabel(m.ID)
	m.InstanceOf = r.instanceOf(m.InstanceOf)
	r.relabelList(m.About)
	r.relabelList(m.MessageAttachment)

	r.applyRole(m.Sender)
	for _, recipient := range m.Recipient {
		r.applyRole(recipient)
	}
}

func (r *Relabeling) applyAnswer(answer *models.Answer) {
	answer.ID = r.relabel(answer.ID)

	if answer.ParentItem == nil {
		return
	}

	if answer.ParentItem.Question != nil {
		answer.ParentItem.Question.ID = r.relabel(answer.ParentItem.Question.ID)
	} else {
		answer.ParentItem.ID = r.relabel(answer.ParentItem.ID)
	}
}

func (r *Relabeling) applyComment(c *models.Comment) {
	if c == nil {
		return
	}

	c.ID = r.relabel(c.ID)
	r.applyRole(c.Author)
}

// expandInstances replaces references to one instance of a multiplexed
// template by references to all of its instances, in `requiresCompletionOf`,
// `about` and `messageAttachment`. Only instances created for the current
// stage are known.
func (r *Relabeling) expandInstances(root *models.Action) {
	siblings := r.siblings()
	if len(siblings) == 0 {
		return
	}

	for _, a := range graph.Actions(root) {
		a.RequiresCompletionOf = expandList(a.RequiresCompletionOf, siblings)

		for _, instrument := range a.Instrument {
			if m := instrument.Message; m != nil {
				m.About = expandList(m.About, siblings)
				m.MessageAttachment = expandList(m.MessageAttachment, siblings)
			}
		}
	}
}

func expandList(l models.IDList, siblings map[string][]string) models.IDList {
	if len(l) == 0 {
		return l
	}

	out := make(models.IDList, 0, len(l))
	seen := map[string]struct{}{}

	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range l {
		if ids, ok := siblings[id]; ok {
			for _, sibling := range ids {
				add(sibling)
			}

			continue
		}

		add(id)
	}

	return out
}
