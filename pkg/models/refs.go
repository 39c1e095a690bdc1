package models

import (
	"bytes"
	"encoding/json"
)

var null = []byte("null")

// unmarshalList decodes either a JSON array or a single value into out.
// Documents are allowed to use the singular form for one-element lists.
func unmarshalList[T any](data []byte, out *[]T) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, null) {
		*out = nil

		return nil
	}

	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}

		*out = list

		return nil
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}

	*out = []T{one}

	return nil
}

// nodeID extracts the `@id` of an embedded node.
func nodeID(data []byte) (string, error) {
	var head struct {
		ID string `json:"@id"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}

	return head.ID, nil
}

// IDRef is a single reference. Embedded nodes collapse to their `@id`.
type IDRef string

func (r *IDRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, null):
		*r = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*r = IDRef(s)
	default:
		id, err := nodeID(data)
		if err != nil {
			return err
		}

		*r = IDRef(id)
	}

	return nil
}

// IDList is a list of references. Embedded nodes collapse to their `@id`.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	var refs []IDRef
	if err := unmarshalList(data, &refs); err != nil {
		return err
	}

	if refs == nil {
		*l = nil

		return nil
	}

	ids := make(IDList, 0, len(refs))
	for _, ref := range refs {
		if ref != "" {
			ids = append(ids, string(ref))
		}
	}

	*l = ids

	return nil
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}

	return false
}

// ActionRef is either a bare action identifier or an embedded action node.
type ActionRef struct {
	ID     string
	Action *Action
}

// RefTo returns a bare reference to id.
func RefTo(id string) *ActionRef {
	return &ActionRef{ID: id}
}

// Embed returns a reference embedding a.
func Embed(a *Action) *ActionRef {
	return &ActionRef{Action: a}
}

// Ident returns the referenced identifier.
func (r *ActionRef) Ident() string {
	if r.Action != nil {
		return r.Action.ID
	}

	return r.ID
}

func (r *ActionRef) MarshalJSON() ([]byte, error) {
	if r.Action != nil {
		return json.Marshal(r.Action)
	}

	return json.Marshal(r.ID)
}

func (r *ActionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.Action = nil

		return json.Unmarshal(data, &r.ID)
	}

	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return err
	}

	r.ID = ""
	r.Action = &action

	return nil
}

// ActionRefs is a list of action references.
type ActionRefs []*ActionRef

func (l *ActionRefs) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*ActionRef)(l))
}

// IDs returns the identifiers of every reference.
func (l ActionRefs) IDs() []string {
	ids := make([]string, 0, len(l))
	for _, ref := range l {
		ids = append(ids, ref.Ident())
	}

	return ids
}

// InstrumentRef is either a bare identifier or an embedded EmailMessage.
type InstrumentRef struct {
	ID      string
	Message *EmailMessage
}

// Ident returns the referenced identifier.
func (r *InstrumentRef) Ident() string {
	if r.Message != nil {
		return r.Message.ID
	}

	return r.ID
}

func (r *InstrumentRef) MarshalJSON() ([]byte, error) {
	if r.Message != nil {
		return json.Marshal(r.Message)
	}

	return json.Marshal(r.ID)
}

func (r *InstrumentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.Message = nil

		return json.Unmarshal(data, &r.ID)
	}

	var head struct {
		ID   string `json:"@id"`
		Type string `json:"@type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	if head.Type != EmailMessageType {
		r.ID, r.Message = head.ID, nil

		return nil
	}

	var message EmailMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return err
	}

	r.ID = ""
	r.Message = &message

	return nil
}

// Instruments is a list of instrument references.
type Instruments []*InstrumentRef

func (l *Instruments) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*InstrumentRef)(l))
}

// InstrumentIDs wraps ids as bare instrument references.
func InstrumentIDs(ids ...string) Instruments {
	instruments := make(Instruments, 0, len(ids))
	for _, id := range ids {
		instruments = append(instruments, &InstrumentRef{ID: id})
	}

	return instruments
}

// QuestionRef is either a bare identifier or an embedded Question.
type QuestionRef struct {
	ID       string
	Question *Question
}

// Ident returns the referenced identifier.
func (r *QuestionRef) Ident() string {
	if r.Question != nil {
		return r.Question.ID
	}

	return r.ID
}

func (r *QuestionRef) MarshalJSON() ([]byte, error) {
	if r.Question != nil {
		return json.Marshal(r.Question)
	}

	return json.Marshal(r.ID)
}

func (r *QuestionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		r.Question = nil

		return json.Unmarshal(data, &r.ID)
	}

	var question Question
	if err := json.Unmarshal(data, &question); err != nil {
		return err
	}

	r.ID = ""
	r.Question = &question

	return nil
}
