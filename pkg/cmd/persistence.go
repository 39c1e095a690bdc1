// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence/file"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence/memory"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "memory", "postgres", "postgresql"}

// NewPersistence opens the document store named by databaseURL. A URL without
// a known scheme is a file store directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Store, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "memory":
		return memory.NewStore(), nil
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		store, err := file.NewStore(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}

		return store, nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
