package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
)

// Load rebuilds the latest revision of name into g.
//
// Nodes are created with their literal parameters first and References
// are attached afterwards, so the stored order does not matter.
func (s *Store) Load(ctx context.Context, name string, g *graph.Graph, lib *funcs.Library) (Revision, error) {
	doc, rev, err := s.LoadDocument(ctx, name)
	if err != nil {
		return Revision{}, err
	}
	if err := document.Apply(g, doc, lib); err != nil {
		return Revision{}, fmt.Errorf("load %q: %w", name, err)
	}
	s.logger.Info("graph loaded", "graph", name, "revision", rev.ID, "nodes", rev.Nodes)
	return rev, nil
}

// LoadDocument reads the latest revision of name.
func (s *Store) LoadDocument(ctx context.Context, name string) (*document.Document, Revision, error) {
	rev, err := latestRevision(ctx, s.db, name)
	if err != nil {
		return nil, Revision{}, err
	}
	doc, err := s.readRevision(ctx, rev)
	return doc, rev, err
}

// LoadRevision reads the revision with the given ID.
func (s *Store) LoadRevision(ctx context.Context, id string) (*document.Document, Revision, error) {
	var rev Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.graph, r.seq, r.content_hash,
		       (SELECT COUNT(*) FROM nodes n WHERE n.revision_id = r.id)
		FROM revisions r
		WHERE r.id = ?
	`, id).Scan(&rev.ID, &rev.Graph, &rev.Seq, &rev.Hash, &rev.Nodes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Revision{}, fmt.Errorf("revision %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, Revision{}, fmt.Errorf("revision %q: %w", id, err)
	}
	doc, err := s.readRevision(ctx, rev)
	return doc, rev, err
}

func (s *Store) readRevision(ctx context.Context, rev Revision) (*document.Document, error) {
	doc := &document.Document{Name: rev.Graph}

	var output string
	if err := s.db.QueryRowContext(ctx,
		`SELECT output FROM revisions WHERE id = ?`, rev.ID,
	).Scan(&output); err != nil {
		return nil, fmt.Errorf("read revision %s: %w", rev.ID, err)
	}
	names, err := unmarshalOutput(output)
	if err != nil {
		return nil, fmt.Errorf("read revision %s: %w", rev.ID, err)
	}
	doc.Output = names

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, func, value, pos_x, pos_y, consumer, param, args, kwargs, options
		FROM nodes
		WHERE revision_id = ?
		ORDER BY ord ASC
	`, rev.ID)
	if err != nil {
		return nil, fmt.Errorf("read revision %s: %w", rev.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(
			&row.name, &row.fn, &row.literal, &row.posX, &row.posY,
			&row.consumer, &row.param, &row.args, &row.kwargs, &row.options,
		); err != nil {
			return nil, fmt.Errorf("read revision %s: %w", rev.ID, err)
		}
		rec, err := decodeNode(row)
		if err != nil {
			return nil, fmt.Errorf("read revision %s: %w", rev.ID, err)
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	return doc, rows.Err()
}
