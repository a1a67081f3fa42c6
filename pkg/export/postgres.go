package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prereqgraph/prereqgraph/pkg/graph"
)

const (
	createSchema = `
CREATE TABLE IF NOT EXISTS course_nodes (
  id         TEXT PRIMARY KEY,
  label      TEXT NOT NULL,
  subject    TEXT NOT NULL,
  color      TEXT NOT NULL,
  hover_text TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS course_links (
  source     TEXT NOT NULL REFERENCES course_nodes(id) ON DELETE CASCADE,
  target     TEXT NOT NULL REFERENCES course_nodes(id) ON DELETE CASCADE,
  concurrent BOOLEAN NOT NULL,
  link_group TEXT NOT NULL,
  PRIMARY KEY (source, target, concurrent, link_group)
);`

	insertNode = `
INSERT INTO course_nodes (id, label, subject, color, hover_text)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  label = EXCLUDED.label,
  subject = EXCLUDED.subject,
  color = EXCLUDED.color,
  hover_text = EXCLUDED.hover_text`

	insertLink = `
INSERT INTO course_links (source, target, concurrent, link_group)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`

	deleteLinks = `DELETE FROM course_links WHERE target = ANY($1)`
)

// Conn is the part of a pgx pool or connection the exporter needs.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Postgres exports graphs into the course_nodes and course_links tables.
type Postgres struct {
	Conn Conn
	pool *pgxpool.Pool
}

// NewPostgres connects to url and creates the schema if needed.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	p := &Postgres{Conn: pool, pool: pool}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.Conn.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func insertCallback(pgconn.CommandTag) error {
	return nil
}

// queuedBatch keeps the statements it queued, which pgx.Batch does not expose.
type queuedBatch struct {
	batch pgx.Batch
	sql   []string
}

func (q *queuedBatch) queue(sql string, args ...any) {
	q.batch.Queue(sql, args...).Exec(insertCallback)
	q.sql = append(q.sql, sql)
}

func nodeBatch(g *graph.Graph) *queuedBatch {
	q := &queuedBatch{}
	for _, n := range g.Nodes {
		q.queue(insertNode, n.ID, n.Label, n.Group, n.Color, n.HoverText)
	}
	return q
}

// linkBatch drops the incoming links of every node in g before inserting the
// links of g.
func linkBatch(g *graph.Graph) *queuedBatch {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}

	q := &queuedBatch{}
	q.queue(deleteLinks, ids)
	for _, l := range g.Links {
		q.queue(insertLink, l.Source, l.Target, l.Concurrent, l.Group)
	}
	return q
}

// Export upserts every node of g, then replaces the incoming links of those
// nodes with the links of g. Both batches run in one transaction, so a failed
// export leaves the previous graph in place. Nodes go in a batch of their own
// so the links' foreign keys always find them.
func (p *Postgres) Export(ctx context.Context, g *graph.Graph) error {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}

	tx, err := p.Conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting export: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, &nodeBatch(g).batch).Close(); err != nil {
		return fmt.Errorf("exporting nodes: %w", err)
	}
	if err := tx.SendBatch(ctx, &linkBatch(g).batch).Close(); err != nil {
		return fmt.Errorf("exporting links: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing export: %w", err)
	}
	return nil
}
