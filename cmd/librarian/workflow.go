package main

import (
	"context"
	"errors"

	"github.com/science-periodicals/librarian-sub000/pkg/services"
	"github.com/science-periodicals/librarian-sub000/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func NewWorkflowCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Inspect workflow specifications",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Aliases:   []string{"v"},
				Usage:     "Validate a WorkflowSpecification JSON document",
				ArgsUsage: "<specification.json>",
				Action: func(ctx context.Context, command *cli.Command) error {
					path := command.Args().First()
					if path == "" {
						return services.NewValidationError("validate", "missing_argument", "missing specification path", services.ErrInvalidRequest)
					}

					spec, err := readSpecification(path)
					if err != nil {
						return err
					}

					err = workflow.ValidateSpecification(spec)

					var specErr *workflow.SpecificationError
					if errors.As(err, &specErr) {
						if writeErr := writeJSON(command, map[string]any{"valid": false, "problems": specErr.Problems}); writeErr != nil {
							return writeErr
						}

						return err
					}

					if err != nil {
						return err
					}

					return writeJSON(command, map[string]any{"valid": true, "entryStage": spec.EntryStage().Ident()})
				},
			},
		},
	}
}
