package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/value"
)

// Revision identifies one saved state of a graph.
type Revision struct {
	ID    string
	Graph string
	Seq   int64
	Hash  string
	Nodes int
}

// Save captures g under name and stores it as a new revision.
// Positions come from layout; Nodes missing from it are stored without one.
func (s *Store) Save(ctx context.Context, name string, g *graph.Graph, layout document.Layout) (Revision, error) {
	return s.SaveDocument(ctx, document.Capture(g, name, layout))
}

// SaveDocument stores doc as the next revision of doc.Name.
//
// If the latest revision has the same content hash, it is returned and
// nothing is written.
func (s *Store) SaveDocument(ctx context.Context, doc *document.Document) (Revision, error) {
	if doc.Name == "" {
		return Revision{}, errors.New("save: graph name is required")
	}

	rows := make([]nodeRow, 0, len(doc.Nodes))
	nodes := make(value.Array, 0, len(doc.Nodes))
	for _, rec := range doc.Nodes {
		row, obj, err := encodeNode(rec)
		if err != nil {
			return Revision{}, fmt.Errorf("save %q: %w", doc.Name, err)
		}
		rows = append(rows, row)
		nodes = append(nodes, obj)
	}

	output, err := marshalOutput(doc.Output)
	if err != nil {
		return Revision{}, fmt.Errorf("save %q: output: %w", doc.Name, err)
	}
	outVal := make(value.Array, len(doc.Output))
	for i, n := range doc.Output {
		outVal[i] = value.String(n)
	}
	hash, err := value.Hash(value.DomainDocument, value.Object{
		"name":   value.String(doc.Name),
		"nodes":  nodes,
		"output": outVal,
	})
	if err != nil {
		return Revision{}, fmt.Errorf("save %q: %w", doc.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("save %q: begin transaction: %w", doc.Name, err)
	}
	defer tx.Rollback()

	latest, err := latestRevision(ctx, tx, doc.Name)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return Revision{}, fmt.Errorf("save %q: %w", doc.Name, err)
	case latest.Hash == hash:
		s.logger.Debug("graph unchanged", "graph", doc.Name, "revision", latest.ID)
		return latest, nil
	}

	rev := Revision{
		ID:    s.ids.Generate(),
		Graph: doc.Name,
		Seq:   latest.Seq + 1,
		Hash:  hash,
		Nodes: len(rows),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, graph, seq, content_hash, output)
		VALUES (?, ?, ?, ?, ?)
	`, rev.ID, rev.Graph, rev.Seq, rev.Hash, output); err != nil {
		return Revision{}, fmt.Errorf("save %q: insert revision: %w", doc.Name, err)
	}

	for i, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes
			(revision_id, ord, name, func, value, pos_x, pos_y, consumer, param, args, kwargs, options)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rev.ID, i, row.name, row.fn, row.literal,
			row.posX, row.posY, row.consumer, row.param,
			row.args, row.kwargs, row.options,
		); err != nil {
			return Revision{}, fmt.Errorf("save %q: insert node %q: %w", doc.Name, row.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("save %q: commit: %w", doc.Name, err)
	}

	s.logger.Info("graph saved", "graph", rev.Graph, "revision", rev.ID, "seq", rev.Seq, "nodes", rev.Nodes)
	return rev, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// latestRevision returns the highest-seq revision of graph.
func latestRevision(ctx context.Context, q querier, graph string) (Revision, error) {
	var rev Revision
	err := q.QueryRowContext(ctx, `
		SELECT r.id, r.graph, r.seq, r.content_hash,
		       (SELECT COUNT(*) FROM nodes n WHERE n.revision_id = r.id)
		FROM revisions r
		WHERE r.graph = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, graph).Scan(&rev.ID, &rev.Graph, &rev.Seq, &rev.Hash, &rev.Nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("graph %q: %w", graph, ErrNotFound)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("latest revision of %q: %w", graph, err)
	}
	return rev, nil
}
