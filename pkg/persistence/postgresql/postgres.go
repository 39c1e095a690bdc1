// Package postgresql provides PostgreSQL persistence of workflow documents.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence"
	"github.com/science-periodicals/librarian-sub000/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Store for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

const selectDocument = `
	SELECT
		key
	  , id
	  , type
	  , scope
	  , rev
	  , body
	FROM documents
`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*persistence.Document, error) {
	var (
		doc  persistence.Document
		body []byte
	)

	err := row.Scan(&doc.Key, &doc.ID, &doc.Type, &doc.Scope, &doc.Rev, &body)
	if err != nil {
		return nil, err
	}

	doc.Body = body

	return &doc, nil
}

// Get returns the document stored at key.
func (p *Persistence) Get(ctx context.Context, key string) (*persistence.Document, error) {
	doc, err := scanDocument(p.db.QueryRowContext(ctx, selectDocument+`WHERE key = $1`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError("Get", key, persistence.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return doc, nil
}

// GetMany returns the documents stored at keys, in the order of keys.
func (p *Persistence) GetMany(ctx context.Context, keys []string) ([]*persistence.Document, error) {
	docs, err := p.query(ctx, selectDocument+`WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*persistence.Document, len(docs))
	for _, doc := range docs {
		byKey[doc.Key] = doc
	}

	out := make([]*persistence.Document, 0, len(keys))

	for _, key := range keys {
		doc, ok := byKey[key]
		if !ok {
			return nil, persistence.NewDocumentError("GetMany", key, persistence.ErrNotFound)
		}

		out = append(out, doc)
	}

	return out, nil
}

// ListByScope returns the documents of scope, optionally restricted to types.
func (p *Persistence) ListByScope(ctx context.Context, scope string, types ...string) ([]*persistence.Document, error) {
	if len(types) == 0 {
		return p.query(ctx, selectDocument+`WHERE scope = $1 ORDER BY key`, scope)
	}

	return p.query(ctx, selectDocument+`WHERE scope = $1 AND type = ANY($2) ORDER BY key`, scope, pq.Array(types))
}

func (p *Persistence) query(ctx context.Context, query string, args ...any) ([]*persistence.Document, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]*persistence.Document, 0)

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Put writes a single document.
func (p *Persistence) Put(ctx context.Context, doc *persistence.Document) (*persistence.Document, error) {
	saved, err := p.PutMany(ctx, []*persistence.Document{doc})
	if err != nil {
		return nil, err
	}

	return saved[0], nil
}

// PutMany writes docs in a single transaction.
func (p *Persistence) PutMany(ctx context.Context, docs []*persistence.Document) ([]*persistence.Document, error) {
	transaction, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	saved := make([]*persistence.Document, 0, len(docs))

	for _, doc := range docs {
		next, err := p.write(ctx, transaction, doc)
		if err != nil {
			_ = transaction.Rollback()

			return nil, err
		}

		saved = append(saved, next)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit documents: %w", err)
	}

	return saved, nil
}

func (p *Persistence) write(ctx context.Context, transaction *sql.Tx, doc *persistence.Document) (*persistence.Document, error) {
	stored, err := scanDocument(transaction.QueryRowContext(ctx, selectDocument+`WHERE key = $1 FOR UPDATE`, doc.Key))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	err = persistence.CheckRevision(stored, doc)
	if err != nil {
		return nil, err
	}

	next := doc.Clone()
	next.Rev++

	if stored == nil {
		// a concurrent insert of the same key fails the unique constraint
		_, err = transaction.ExecContext(ctx, `
			INSERT INTO documents (key, id, type, scope, rev, body)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, next.Key, next.ID, next.Type, next.Scope, next.Rev, []byte(next.Body))
	} else {
		_, err = transaction.ExecContext(ctx, `
			UPDATE documents
			SET id = $2, type = $3, scope = $4, rev = $5, body = $6, updated_at = NOW()
			WHERE key = $1
		`, next.Key, next.ID, next.Type, next.Scope, next.Rev, []byte(next.Body))
	}

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, persistence.NewDocumentError("Put", doc.Key, persistence.ErrConflict)
		}

		return nil, fmt.Errorf("failed to write document %s: %w", doc.Key, err)
	}

	return next, nil
}
