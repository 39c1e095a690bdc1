package models

import "time"

const (
	GraphType                      = "Graph"
	EmailMessageType               = "EmailMessage"
	QuestionType                   = "Question"
	AnswerType                     = "Answer"
	ReviewType                     = "Review"
	CommentType                    = "Comment"
	AnnotationType                 = "Annotation"
	RoleType                       = "ContributorRole"
	AudienceType                   = "Audience"
	PropertyValueSpecificationType = "PropertyValueSpecification"
)

// Role names an agent or participant of an action.
type Role struct {
	ID           string                      `json:"@id,omitempty"`
	Type         string                      `json:"@type,omitempty"`
	RoleName     string                      `json:"roleName,omitempty"     validate:"omitempty,oneof=author editor reviewer producer user"`
	Name         string                      `json:"name,omitempty"`
	AudienceType string                      `json:"audienceType,omitempty" validate:"omitempty,oneof=author editor reviewer producer public user"`
	Agent        string                      `json:"agent,omitempty"`
	NameInput    *PropertyValueSpecification `json:"name-input,omitempty"`
}

// Clone returns a copy of the role.
func (r *Role) Clone() *Role {
	if r == nil {
		return nil
	}

	clone := *r
	if r.NameInput != nil {
		input := *r.NameInput
		clone.NameInput = &input
	}

	return &clone
}

// Roles is a list of roles.
type Roles []*Role

func (l *Roles) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*Role)(l))
}

// PropertyValueSpecification constrains how a property may be filled in.
type PropertyValueSpecification struct {
	Type          string `json:"@type,omitempty"`
	ReadonlyValue bool   `json:"readonlyValue,omitempty"`
	ValueRequired bool   `json:"valueRequired,omitempty"`
}

// Release is a Graph node: the live Graph or one of its versioned snapshots.
type Release struct {
	ID                      string     `json:"@id,omitempty"`
	Type                    string     `json:"@type,omitempty"`
	Name                    string     `json:"name,omitempty"`
	Version                 string     `json:"version,omitempty"`
	DatePublished           *time.Time `json:"datePublished,omitempty"`
	PotentialAction         ActionRefs `json:"potentialAction,omitempty"`
	PublishActionInstanceOf IDList     `json:"publishActionInstanceOf,omitempty"`
}

// Graph is the live manuscript document persisted when a submission starts.
type Graph struct {
	ID           string     `json:"@id"`
	Type         string     `json:"@type"`
	Version      string     `json:"version,omitempty"`
	Workflow     string     `json:"workflow,omitempty"`
	Creator      *Role      `json:"creator,omitempty"`
	DateCreated  *time.Time `json:"dateCreated,omitempty"`
	DateRejected *time.Time `json:"dateRejected,omitempty"`
}

// Question is asked by a ReviewAction or DeclareAction.
type Question struct {
	ID   string `json:"@id,omitempty"`
	Type string `json:"@type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Questions is a list of questions.
type Questions []*Question

func (l *Questions) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*Question)(l))
}

// Answer replies to a Question.
type Answer struct {
	ID         string       `json:"@id,omitempty"`
	Type       string       `json:"@type,omitempty"`
	Text       string       `json:"text,omitempty"`
	ParentItem *QuestionRef `json:"parentItem,omitempty"`
}

// Answers is a list of answers.
type Answers []*Answer

func (l *Answers) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*Answer)(l))
}

// Review is the result of a ReviewAction.
type Review struct {
	ID         string `json:"@id,omitempty"`
	Type       string `json:"@type,omitempty"`
	ReviewBody string `json:"reviewBody,omitempty"`
}

// EmailMessage is the instrument of an InformAction.
type EmailMessage struct {
	ID                string `json:"@id,omitempty"`
	Type              string `json:"@type,omitempty"`
	Identifier        string `json:"identifier,omitempty"`
	InstanceOf        string `json:"instanceOf,omitempty"`
	Description       string `json:"description,omitempty"`
	Text              string `json:"text,omitempty"`
	Sender            *Role  `json:"sender,omitempty"`
	Recipient         Roles  `json:"recipient,omitempty"`
	About             IDList `json:"about,omitempty"`
	MessageAttachment IDList `json:"messageAttachment,omitempty"`
}

// Comment is an editorial comment attached to an AssessAction.
type Comment struct {
	ID         string `json:"@id,omitempty"`
	Type       string `json:"@type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Text       string `json:"text,omitempty"`
	Author     *Role  `json:"author,omitempty"`
}

// Comments is a list of comments.
type Comments []*Comment

func (l *Comments) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*Comment)(l))
}

// Annotation anchors a Comment to a location of a release.
type Annotation struct {
	ID               string   `json:"@id,omitempty"`
	Type             string   `json:"@type,omitempty"`
	Identifier       string   `json:"identifier,omitempty"`
	AnnotationTarget string   `json:"annotationTarget,omitempty"`
	AnnotationBody   *Comment `json:"annotationBody,omitempty"`
}

// Annotations is a list of annotations.
type Annotations []*Annotation

func (l *Annotations) UnmarshalJSON(data []byte) error {
	return unmarshalList(data, (*[]*Annotation)(l))
}
