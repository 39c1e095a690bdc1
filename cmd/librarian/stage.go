package main

import (
	"context"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func graphFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "graph",
		Aliases:  []string{"g"},
		Usage:    "Graph identifier (graph:<id>)",
		Required: true,
	}
}

func specificationFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "specification",
		Aliases:  []string{"s"},
		Usage:    "Path of the WorkflowSpecification JSON document",
		Required: true,
	}
}

func agentFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "agent",
		Usage: "Role name of the agent (author, editor, reviewer, producer)",
	}
}

func NewStageCommand() *cli.Command {
	return &cli.Command{
		Name:  "stage",
		Usage: "Instantiate and inspect workflow stages",
		Commands: []*cli.Command{
			newStageStartCommand(),
			newStageAssessCommand(),
			newStageReleaseCommand(),
			newStageShowCommand(),
		},
	}
}

func newStageStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Create a Graph and instantiate the entry stage of its workflow",
		Flags: []cli.Flag{
			graphFlag(),
			specificationFlag(),
			agentFlag(),
			&cli.StringFlag{Name: "start-time", Usage: "RFC 3339 start time (defaults to now)"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			spec, err := readSpecification(command.String("specification"))
			if err != nil {
				return err
			}

			startTime, err := parseTime(command.String("start-time"))
			if err != nil {
				return err
			}

			return run(ctx, command, func(ctx context.Context, a *app) error {
				result, err := a.stages.StartGraph(ctx, services.StartGraphRequest{
					GraphID:       command.String("graph"),
					Specification: spec,
					Agent:         role(command.String("agent")),
					StartTime:     startTime,
				})
				if err != nil {
					return err
				}

				return writeJSON(command, result)
			})
		},
	}
}

func newStageAssessCommand() *cli.Command {
	return &cli.Command{
		Name:  "assess",
		Usage: "Complete an AssessAction and start the stage it selects",
		Flags: []cli.Flag{
			graphFlag(),
			specificationFlag(),
			agentFlag(),
			&cli.StringFlag{Name: "action", Usage: "AssessAction identifier", Required: true},
			&cli.StringFlag{Name: "result", Usage: "Identifier of the selected potential result", Required: true},
			&cli.StringFlag{Name: "revision-type", Usage: "MajorRevision, MinorRevision or PatchRevision"},
			&cli.StringFlag{Name: "end-time", Usage: "RFC 3339 decision time (defaults to now)"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			spec, err := readSpecification(command.String("specification"))
			if err != nil {
				return err
			}

			endTime, err := parseTime(command.String("end-time"))
			if err != nil {
				return err
			}

			return run(ctx, command, func(ctx context.Context, a *app) error {
				result, err := a.stages.CompleteAssessment(ctx, services.CompleteAssessmentRequest{
					GraphID:        command.String("graph"),
					AssessActionID: command.String("action"),
					ResultID:       command.String("result"),
					Specification:  spec,
					Agent:          role(command.String("agent")),
					RevisionType:   models.RevisionType(command.String("revision-type")),
					EndTime:        endTime,
				})
				if err != nil {
					return err
				}

				return writeJSON(command, result)
			})
		},
	}
}

func newStageReleaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Complete a CreateReleaseAction and make its result the latest release",
		Flags: []cli.Flag{
			graphFlag(),
			agentFlag(),
			&cli.StringFlag{Name: "action", Usage: "CreateReleaseAction identifier", Required: true},
			&cli.StringFlag{Name: "end-time", Usage: "RFC 3339 completion time (defaults to now)"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			endTime, err := parseTime(command.String("end-time"))
			if err != nil {
				return err
			}

			return run(ctx, command, func(ctx context.Context, a *app) error {
				release, err := a.stages.CompleteRelease(ctx, services.CompleteReleaseRequest{
					GraphID:  command.String("graph"),
					ActionID: command.String("action"),
					Agent:    role(command.String("agent")),
					EndTime:  endTime,
				})
				if err != nil {
					return err
				}

				return writeJSON(command, release)
			})
		},
	}
}

func newStageShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print a stage with its actions embedded",
		Flags: []cli.Flag{
			graphFlag(),
			&cli.StringFlag{Name: "stage", Usage: "StartWorkflowStageAction identifier", Required: true},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return run(ctx, command, func(ctx context.Context, a *app) error {
				result, err := a.stages.Stage(ctx, command.String("graph"), command.String("stage"))
				if err != nil {
					return err
				}

				return writeJSON(command, result.Stage)
			})
		},
	}
}
