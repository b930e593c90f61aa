package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/godror/godror"
	_ "github.com/lib/pq"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphSink is an optional additive mirror of the finalized node/edge set,
// per SPEC_FULL.md §4.8: these run after the canonical CSV/JSON/JSONL
// artifacts are written, and a sink failure is logged, never fatal.
type GraphSink interface {
	Name() string
	WriteGraph(ctx context.Context, nodes []NodeRow, edges []EdgeRow) error
	Close(ctx context.Context) error
}

// Neo4jSink mirrors the graph into Neo4j using the same MERGE-based upsert
// idiom as the teacher's model/graph.go Neo4jClient, now keyed by the
// spec's single composite node key instead of per-entity-kind labels.
type Neo4jSink struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jSink connects using the given URI/user/pass (read from
// config.Config's LoadSinkEnv, matching NEO4J_URI/NEO4J_USER/NEO4J_PASS).
func NewNeo4jSink(uri, user, pass string) (*Neo4jSink, error) {
	auth := neo4j.BasicAuth(user, pass, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 50
		cfg.SocketConnectTimeout = 5 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	return &Neo4jSink{driver: driver}, nil
}

func (s *Neo4jSink) Name() string { return "neo4j" }

func (s *Neo4jSink) WriteGraph(ctx context.Context, nodes []NodeRow, edges []EdgeRow) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, n := range nodes {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			cypher := `
			MERGE (n:GraphNode {key: $key})
			ON CREATE SET n.kind = $kind, n.name = $name, n.schema = $schema,
				n.file = $file, n.domain = $domain, n.bodyPath = $bodyPath, n.created = datetime()
			ON MATCH SET n.kind = $kind, n.name = $name, n.schema = $schema,
				n.file = $file, n.domain = $domain, n.bodyPath = $bodyPath, n.updated = datetime()
			`
			params := map[string]any{
				"key": n.Key, "kind": n.Kind, "name": n.Name, "schema": n.Schema,
				"file": n.File, "domain": n.Domain, "bodyPath": n.BodyPath,
			}
			_, err := tx.Run(ctx, cypher, params)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("upserting node %s: %w", n.Key, err)
		}
	}

	for _, e := range edges {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			cypher := `
			MATCH (a:GraphNode {key: $from}), (b:GraphNode {key: $to})
			MERGE (a)-[r:RELATES {relation: $relation}]->(b)
			ON CREATE SET r.file = $file
			`
			params := map[string]any{"from": e.From, "to": e.To, "relation": e.Relation, "file": e.File}
			_, err := tx.Run(ctx, cypher, params)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("upserting edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (s *Neo4jSink) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// PostgresSink mirrors nodes/edges into two flat relational tables,
// grounded on the teacher's embeddings/postgres_embeddings.go connection
// and upsert idiom (lib/pq, ON CONFLICT upsert), repurposed here from
// vector-chunk rows to plain graph rows.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens a connection and ensures the mirror tables exist.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS codegraph_nodes (
			key TEXT PRIMARY KEY, kind TEXT, name TEXT, schema TEXT,
			file TEXT, domain TEXT, body_path TEXT
		)`); err != nil {
		return nil, fmt.Errorf("creating codegraph_nodes: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS codegraph_edges (
			"from" TEXT, "to" TEXT, relation TEXT, to_kind TEXT, file TEXT,
			PRIMARY KEY ("from", "to", relation)
		)`); err != nil {
		return nil, fmt.Errorf("creating codegraph_edges: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) WriteGraph(ctx context.Context, nodes []NodeRow, edges []EdgeRow) error {
	for _, n := range nodes {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO codegraph_nodes (key, kind, name, schema, file, domain, body_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (key) DO UPDATE SET
				kind = EXCLUDED.kind, name = EXCLUDED.name, schema = EXCLUDED.schema,
				file = EXCLUDED.file, domain = EXCLUDED.domain, body_path = EXCLUDED.body_path
			`, n.Key, n.Kind, n.Name, n.Schema, n.File, n.Domain, n.BodyPath); err != nil {
			return fmt.Errorf("upserting node %s: %w", n.Key, err)
		}
	}
	for _, e := range edges {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO codegraph_edges ("from", "to", relation, to_kind, file)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT ("from", "to", relation) DO UPDATE SET to_kind = EXCLUDED.to_kind, file = EXCLUDED.file
			`, e.From, e.To, e.Relation, e.ToKind, e.File); err != nil {
			return fmt.Errorf("upserting edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (s *PostgresSink) Close(ctx context.Context) error { return s.db.Close() }

// OracleSink mirrors nodes/edges into Oracle tables, grounded on the
// teacher's embeddings/oracle_embeddings.go godror connection idiom.
type OracleSink struct {
	db *sql.DB
}

// NewOracleSink opens a connection and ensures the mirror tables exist.
func NewOracleSink(dsn string) (*OracleSink, error) {
	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening oracle: %w", err)
	}
	// Oracle has no IF NOT EXISTS for CREATE TABLE; ignore the
	// already-exists error (ORA-00955) on repeated runs.
	_, _ = db.Exec(`CREATE TABLE codegraph_nodes (
		key VARCHAR2(4000) PRIMARY KEY, kind VARCHAR2(64), name VARCHAR2(512),
		schema VARCHAR2(512), file VARCHAR2(1024), domain VARCHAR2(128), body_path VARCHAR2(1024)
	)`)
	_, _ = db.Exec(`CREATE TABLE codegraph_edges (
		src VARCHAR2(4000), dst VARCHAR2(4000), relation VARCHAR2(64), to_kind VARCHAR2(64), file VARCHAR2(1024)
	)`)
	return &OracleSink{db: db}, nil
}

func (s *OracleSink) Name() string { return "oracle" }

func (s *OracleSink) WriteGraph(ctx context.Context, nodes []NodeRow, edges []EdgeRow) error {
	for _, n := range nodes {
		if _, err := s.db.ExecContext(ctx, `
			MERGE INTO codegraph_nodes t USING (SELECT :1 key FROM dual) s
			ON (t.key = s.key)
			WHEN MATCHED THEN UPDATE SET kind = :2, name = :3, schema = :4, file = :5, domain = :6, body_path = :7
			WHEN NOT MATCHED THEN INSERT (key, kind, name, schema, file, domain, body_path)
				VALUES (:1, :2, :3, :4, :5, :6, :7)
			`, n.Key, n.Kind, n.Name, n.Schema, n.File, n.Domain, n.BodyPath); err != nil {
			return fmt.Errorf("upserting node %s: %w", n.Key, err)
		}
	}
	for _, e := range edges {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO codegraph_edges (src, dst, relation, to_kind, file) VALUES (:1, :2, :3, :4, :5)
			`, e.From, e.To, e.Relation, e.ToKind, e.File); err != nil {
			return fmt.Errorf("inserting edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (s *OracleSink) Close(ctx context.Context) error { return s.db.Close() }
