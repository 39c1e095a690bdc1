package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var validate = newValidator()

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

var specificationSchema = gojsonschema.NewGoLoader(map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []any{"@type", "potentialAction"},
	"properties": map[string]any{
		"@type": map[string]any{"enum": []any{models.WorkflowSpecificationType}},
		"potentialAction": map[string]any{
			"oneOf": []any{
				map[string]any{"$ref": "#/definitions/action"},
				map[string]any{
					"type":     "array",
					"minItems": 1,
					"items":    map[string]any{"$ref": "#/definitions/action"},
				},
			},
		},
	},
	"definitions": map[string]any{
		"action": map[string]any{
			"type":     "object",
			"required": []any{"@type"},
			"properties": map[string]any{
				"@id":          map[string]any{"type": "string"},
				"@type":        map[string]any{"type": "string"},
				"minInstances": map[string]any{"type": "integer", "minimum": 0},
				"maxInstances": map[string]any{"type": "integer", "minimum": 0},
			},
		},
	},
})

// agentless lists the template types that may omit an agent.
var agentless = map[models.ActionType]bool{
	models.ActionTypeStartWorkflowStage: true,
	models.ActionTypeReject:             true,
	models.ActionTypeCreateGraph:        true,
}

// ValidateSpecification checks that spec can be instantiated. It returns a
// *SpecificationError listing every problem found.
func ValidateSpecification(spec *models.WorkflowSpecification) error {
	if spec == nil {
		return &SpecificationError{Problems: []ValidationError{{Message: "specification is required"}}}
	}

	problems := fieldProblems("", validate.Struct(spec))
	if len(problems) == 0 {
		problems = schemaProblems(spec)
	}

	if len(problems) == 0 {
		problems = structuralProblems(spec)
	}

	if len(problems) > 0 {
		return &SpecificationError{Problems: problems}
	}

	return nil
}

func schemaProblems(spec *models.WorkflowSpecification) []ValidationError {
	result, err := gojsonschema.Validate(specificationSchema, gojsonschema.NewGoLoader(spec))
	if err != nil {
		return []ValidationError{{Message: err.Error()}}
	}

	if result.Valid() {
		return nil
	}

	problems := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, ValidationError{Path: desc.Field(), Message: desc.Description()})
	}

	return problems
}

type checker struct {
	templates Map
	problems  []ValidationError
}

func (c *checker) addf(path, format string, args ...any) {
	c.problems = append(c.problems, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func structuralProblems(spec *models.WorkflowSpecification) []ValidationError {
	c := &checker{templates: SpecificationMap(spec, DefaultTemplatePrefix)}

	root := spec.CreateGraphAction()
	if root == nil {
		c.addf("potentialAction", "a CreateGraphAction template is required")

		return c.problems
	}

	if root.Release() == nil {
		c.addf(root.ID, "the CreateGraphAction result must be a Graph")

		return c.problems
	}

	if entry := spec.EntryStage(); entry == nil || !c.templates.Resolve(entry).Is(models.ActionTypeStartWorkflowStage) {
		c.addf(root.ID, "the Graph must have a StartWorkflowStageAction potential action")
	}

	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	for _, id := range ids {
		c.checkTemplate(c.templates[id])
	}

	return c.problems
}

func (c *checker) checkTemplate(tmpl *models.Action) {
	path := tmpl.ID

	if !tmpl.Type.Valid() {
		c.addf(path, "unknown action type %q", tmpl.Type)

		return
	}

	if !agentless[tmpl.Type] && (tmpl.Agent == nil || tmpl.Agent.RoleName == "") {
		c.addf(path+".agent", "a roleName is required")
	}

	c.checkRole(path+".agent", tmpl.Agent)
	for i, p := range tmpl.Participant {
		c.checkRole(fmt.Sprintf("%s.participant[%d]", path, i), p)
	}

	if tmpl.MaxInstances > 0 && tmpl.MinInstances > tmpl.MaxInstances {
		c.addf(path, "minInstances %d exceeds maxInstances %d", tmpl.MinInstances, tmpl.MaxInstances)
	}

	c.checkRefs(path+".potentialAction", tmpl.PotentialAction)
	c.checkRefs(path+".potentialResult", tmpl.PotentialResult)
	c.checkRefs(path+".result", tmpl.StageActions())

	if release := tmpl.Release(); release != nil {
		c.checkRefs(path+".result.potentialAction", release.PotentialAction)
	}

	for _, dep := range tmpl.RequiresCompletionOf {
		if c.isTemplateRef(dep) && c.templates[dep] == nil {
			c.addf(path+".requiresCompletionOf", "unresolved reference %s", dep)
		}
	}

	if ifMatch := string(tmpl.IfMatch); c.isTemplateRef(ifMatch) && c.templates[ifMatch] == nil {
		c.addf(path+".ifMatch", "unresolved reference %s", ifMatch)
	}

	switch tmpl.Type {
	case models.ActionTypeAssess:
		for _, ref := range tmpl.PotentialResult {
			next := c.templates.Resolve(ref)
			if next != nil && !next.Is(models.ActionTypeStartWorkflowStage) && !next.Is(models.ActionTypeReject) {
				c.addf(path+".potentialResult", "%s must be a StartWorkflowStageAction or RejectAction, got %s", ref.Ident(), next.Type)
			}
		}
	case models.ActionTypeStartWorkflowStage:
		releases := 0

		for _, ref := range tmpl.StageActions() {
			if c.templates.Resolve(ref).Is(models.ActionTypeCreateRelease) {
				releases++
			}
		}

		if releases > 1 {
			c.addf(path+".result", "a stage may contain at most one CreateReleaseAction, got %d", releases)
		}
	}
}

func (c *checker) checkRole(path string, role *models.Role) {
	if role == nil {
		return
	}

	c.problems = append(c.problems, fieldProblems(path, validate.Struct(role))...)
}

// fieldProblems converts the result of a struct validation into problems
// located under path.
func fieldProblems(path string, err error) []ValidationError {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ValidationError{{Path: path, Message: err.Error()}}
	}

	problems := make([]ValidationError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		if path != "" {
			field = path + "." + field
		}

		problems = append(problems, ValidationError{Path: field, Message: fmt.Sprintf("value %v failed on %q", fe.Value(), fe.Tag())})
	}

	return problems
}

func (c *checker) checkRefs(path string, refs models.ActionRefs) {
	for _, ref := range refs {
		if c.templates.Resolve(ref) == nil {
			c.addf(path, "unresolved reference %s", ref.Ident())
		}
	}
}

func (c *checker) isTemplateRef(id string) bool {
	return strings.HasPrefix(id, DefaultTemplatePrefix)
}
