package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/science-periodicals/librarian-sub000/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "librarian",
		Usage:                 "Instantiate and advance editorial workflow stages",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewWorkflowCommand(),
			NewStageCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Document store URL (file://, postgres://, memory://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "lock-url",
				Usage:   "Lock service URL (memory://, redis://)",
				Value:   "memory://",
				Sources: cli.EnvVars("LOCK_URL"),
			},
			&cli.DurationFlag{
				Name:    "lock-ttl",
				Usage:   "Time to live of stage locks",
				Value:   lock.DefaultTTL,
				Sources: cli.EnvVars("LOCK_TTL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers when the event bus is kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
	}
}

func main() {
	err := newRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		encoder := json.NewEncoder(os.Stderr)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(services.Problem(err, os.Args[0]))

		os.Exit(1)
	}
}
