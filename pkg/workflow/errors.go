package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound indicates the stage template could not be resolved.
	ErrTemplateNotFound = errors.New("could not find CreateWorkflowStageAction template")

	// ErrInvalidTemplate indicates a template that cannot be instantiated.
	// Specifications are validated before use, so this is a configuration defect.
	ErrInvalidTemplate = errors.New("invalid action template")

	// ErrInvalidSpecification indicates a WorkflowSpecification failed validation.
	ErrInvalidSpecification = errors.New("invalid workflow specification")
)

// TemplateError wraps an instantiation failure with the offending template.
type TemplateError struct {
	Op         string // Operation being performed
	TemplateID string // Template identifier
	Err        error  // Underlying error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s failed for template %s: %v", e.Op, e.TemplateID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func (e *TemplateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func templateError(op, templateID string, err error) *TemplateError {
	return &TemplateError{Op: op, TemplateID: templateID, Err: err}
}

// ValidationError is one problem found in a WorkflowSpecification.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) String() string {
	if e.Path == "" {
		return e.Message
	}

	return e.Path + ": " + e.Message
}

// SpecificationError lists every problem found in a WorkflowSpecification.
type SpecificationError struct {
	Problems []ValidationError
}

func (e *SpecificationError) Error() string {
	problems := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		problems = append(problems, p.String())
	}

	return fmt.Sprintf("%v: %s", ErrInvalidSpecification, strings.Join(problems, "; "))
}

func (e *SpecificationError) Unwrap() error {
	return ErrInvalidSpecification
}
