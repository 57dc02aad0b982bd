package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/document"
	"github.com/inkwell-db/inkwell/es/store"
)

// DocumentConfig contains configuration for the Postgres document store.
type DocumentConfig struct {
	// Logger is an optional logger for observability.
	Logger es.Logger

	// DocumentsTable is the name of the documents table
	DocumentsTable string
}

// DefaultDocumentConfig returns the default configuration.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		DocumentsTable: "documents",
	}
}

// DocumentStore is a PostgreSQL-backed document store with version-token
// optimistic concurrency. Document data is stored as JSONB so declared
// payload fields can be queried without a separate index table.
type DocumentStore struct {
	config DocumentConfig
	logger es.Logger
}

// NewDocumentStore creates a document store with the given configuration.
func NewDocumentStore(config DocumentConfig) *DocumentStore {
	logger := config.Logger
	if logger == nil {
		logger = es.NoOpLogger{}
	}
	return &DocumentStore{config: config, logger: logger}
}

// Get implements store.DocumentStore.
func (d *DocumentStore) Get(ctx context.Context, tx es.DBTX, docType, id string) (document.Document, error) {
	query := fmt.Sprintf(`
		SELECT doc_type, doc_id, data, version_token, updated_at
		FROM %s
		WHERE doc_type = $1 AND doc_id = $2
	`, d.config.DocumentsTable)

	var doc document.Document
	err := tx.QueryRowContext(ctx, query, docType, id).Scan(
		&doc.Type, &doc.ID, &doc.Data, &doc.VersionToken, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, fmt.Errorf("document %q/%q: %w", docType, id, store.ErrDocumentNotFound)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to load document %q/%q: %w", docType, id, err)
	}
	return doc, nil
}

// Put implements store.DocumentStore.
//
// With document.NoToken the write is a last-write-wins upsert. With an
// expected token the write is a compare-and-swap: the single UPDATE
// statement checks the stored token and replaces data and token
// atomically, so two writers presenting the same stale token can never
// both succeed.
func (d *DocumentStore) Put(ctx context.Context, tx es.DBTX, docType, id string, data []byte, expectedToken string) (string, error) {
	newToken := uuid.NewString()

	if expectedToken == document.NoToken {
		query := fmt.Sprintf(`
			INSERT INTO %s (doc_type, doc_id, data, version_token, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (doc_type, doc_id)
			DO UPDATE SET data = EXCLUDED.data, version_token = EXCLUDED.version_token, updated_at = NOW()
		`, d.config.DocumentsTable)

		if _, err := tx.ExecContext(ctx, query, docType, id, data, newToken); err != nil {
			return "", fmt.Errorf("failed to put document %q/%q: %w", docType, id, err)
		}
		return newToken, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET data = $4, version_token = $5, updated_at = NOW()
		WHERE doc_type = $1 AND doc_id = $2 AND version_token = $3
	`, d.config.DocumentsTable)

	res, err := tx.ExecContext(ctx, query, docType, id, expectedToken, data, newToken)
	if err != nil {
		return "", fmt.Errorf("failed to put document %q/%q: %w", docType, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to check put result for %q/%q: %w", docType, id, err)
	}
	if affected == 1 {
		return newToken, nil
	}

	// Zero rows: distinguish a stale token from a missing document.
	existsQuery := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE doc_type = $1 AND doc_id = $2)
	`, d.config.DocumentsTable)

	var exists bool
	if err := tx.QueryRowContext(ctx, existsQuery, docType, id).Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check document %q/%q: %w", docType, id, err)
	}
	if !exists {
		return "", fmt.Errorf("document %q/%q: %w", docType, id, store.ErrDocumentNotFound)
	}
	return "", fmt.Errorf("document %q/%q: stale version token: %w", docType, id, store.ErrConcurrencyConflict)
}

// DeleteWhere implements store.DocumentStore.
func (d *DocumentStore) DeleteWhere(ctx context.Context, tx es.DBTX, docType string, where []document.Predicate) (int64, error) {
	clause, args := buildWhere(docType, where)
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s`, d.config.DocumentsTable, clause)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents of type %q: %w", docType, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted documents: %w", err)
	}

	d.logger.Info(ctx, "documents deleted", "doc_type", docType, "count", deleted)
	return deleted, nil
}

// Query implements store.DocumentStore.
//
// Predicates translate to JSONB field comparisons; numeric values compare
// numerically, everything else as text. Results are ordered by the OrderBy
// field (when set) with doc_id as tiebreak, giving stable paging.
func (d *DocumentStore) Query(ctx context.Context, tx es.DBTX, docType string, q document.Query) ([]document.Document, error) {
	clause, args := buildWhere(docType, q.Where)

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT doc_type, doc_id, data, version_token, updated_at
		FROM %s
		WHERE %s
	`, d.config.DocumentsTable, clause)

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		direction := "ASC"
		if q.Desc {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY data->>$%d %s, doc_id ASC", len(args), direction)
	} else {
		sb.WriteString(" ORDER BY doc_id ASC")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := tx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents of type %q: %w", docType, err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var doc document.Document
		if err := rows.Scan(&doc.Type, &doc.ID, &doc.Data, &doc.VersionToken, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}

// buildWhere renders doc_type plus all predicates as an ANDed clause.
// Field names and values are passed as parameters, never interpolated.
func buildWhere(docType string, where []document.Predicate) (string, []interface{}) {
	clauses := []string{"doc_type = $1"}
	args := []interface{}{docType}

	for _, p := range where {
		args = append(args, p.Field)
		fieldArg := len(args)
		args = append(args, p.Value)
		valueArg := len(args)

		if isNumeric(p.Value) {
			clauses = append(clauses, fmt.Sprintf("(data->>$%d)::numeric %s $%d", fieldArg, p.Op, valueArg))
		} else {
			clauses = append(clauses, fmt.Sprintf("data->>$%d %s $%d", fieldArg, p.Op, valueArg))
		}
	}

	return strings.Join(clauses, " AND "), args
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

var _ store.DocumentStore = (*DocumentStore)(nil)
