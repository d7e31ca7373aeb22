package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kiswi/dagflow/engine"
	"github.com/kiswi/dagflow/graph"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a file-backed GraphStore and RunStore for single-process
// deployments and local development.
//
// Schema:
//   - nodes: canonical node rows, data_in/data_out/mapping/paths_in/
//     paths_out as JSON columns
//   - edges: canonical edge rows, key_map as a JSON column
//   - graph_run_configs: one row per submitted RunConfig, for audit/replay
//   - graphs: one row per committed run, the resolved traversals
//   - graph_nodes: per-node-per-run (node_id, run_id) index; the
//     data_out values themselves are read from the graphs row
//
// SQLiteStore uses WAL mode and a single connection, so reads and writes
// take turns on that connection (SQLite supports exactly one writer at a
// time).
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures its schema exists. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	nodesTable := `
		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			data_in TEXT NOT NULL,
			data_out TEXT NOT NULL,
			mapping TEXT NOT NULL,
			paths_in TEXT NOT NULL,
			paths_out TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, nodesTable); err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}

	edgesTable := `
		CREATE TABLE IF NOT EXISTS edges (
			id TEXT PRIMARY KEY,
			src_id TEXT NOT NULL REFERENCES nodes(id),
			dst_id TEXT NOT NULL REFERENCES nodes(id),
			key_map TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, edgesTable); err != nil {
		return fmt.Errorf("failed to create edges table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src_id)"); err != nil {
		return fmt.Errorf("failed to create idx_edges_src: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_id)"); err != nil {
		return fmt.Errorf("failed to create idx_edges_dst: %w", err)
	}

	runConfigsTable := `
		CREATE TABLE IF NOT EXISTS graph_run_configs (
			run_id TEXT PRIMARY KEY,
			config_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, runConfigsTable); err != nil {
		return fmt.Errorf("failed to create graph_run_configs table: %w", err)
	}

	graphsTable := `
		CREATE TABLE IF NOT EXISTS graphs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			nodes TEXT NOT NULL,
			toposort TEXT NOT NULL,
			level_order TEXT NOT NULL,
			leaf_nodes TEXT NOT NULL,
			committed_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, graphsTable); err != nil {
		return fmt.Errorf("failed to create graphs table: %w", err)
	}

	graphNodesTable := `
		CREATE TABLE IF NOT EXISTS graph_nodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id TEXT NOT NULL,
			run_id TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, graphNodesTable); err != nil {
		return fmt.Errorf("failed to create graph_nodes table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE UNIQUE INDEX IF NOT EXISTS idx_graph_nodes_node_run ON graph_nodes(node_id, run_id)"); err != nil {
		return fmt.Errorf("failed to create idx_graph_nodes_node_run: %w", err)
	}

	return nil
}

var (
	_ GraphStore = (*SQLiteStore)(nil)
	_ RunStore   = (*SQLiteStore)(nil)
)

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the file path (or ":memory:") this store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func (s *SQLiteStore) AddNode(ctx context.Context, n *graph.Node) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	dataIn, err := json.Marshal(n.DataIn)
	if err != nil {
		return fmt.Errorf("failed to marshal data_in: %w", err)
	}
	dataOut, err := json.Marshal(n.DataOut)
	if err != nil {
		return fmt.Errorf("failed to marshal data_out: %w", err)
	}
	mapping, err := json.Marshal(n.Mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	pathsIn, err := json.Marshal(n.PathsIn)
	if err != nil {
		return fmt.Errorf("failed to marshal paths_in: %w", err)
	}
	pathsOut, err := json.Marshal(n.PathsOut)
	if err != nil {
		return fmt.Errorf("failed to marshal paths_out: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, data_in, data_out, mapping, paths_in, paths_out)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, string(dataIn), string(dataOut), string(mapping), string(pathsIn), string(pathsOut))
	if err != nil {
		return &graph.Diagnostic{Kind: graph.KindStorageError, NodeID: n.ID, Detail: "node id already exists: " + err.Error()}
	}
	return nil
}

func (s *SQLiteStore) UpdateNode(ctx context.Context, id string, patch *graph.Node) (*graph.Node, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	existing, err := s.loadNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.DataIn != nil {
		existing.DataIn = patch.DataIn.Clone()
	}
	if patch.DataOut != nil {
		existing.DataOut = patch.DataOut.Clone()
	}
	if patch.Mapping != nil {
		mapping := make(map[string]string, len(patch.Mapping))
		for k, v := range patch.Mapping {
			mapping[k] = v
		}
		existing.Mapping = mapping
	}

	dataIn, _ := json.Marshal(existing.DataIn)
	dataOut, _ := json.Marshal(existing.DataOut)
	mapping, _ := json.Marshal(existing.Mapping)

	_, err = s.db.ExecContext(ctx, `
		UPDATE nodes SET data_in = ?, data_out = ?, mapping = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(dataIn), string(dataOut), string(mapping), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return existing, nil
}

func (s *SQLiteStore) loadNode(ctx context.Context, id string) (*graph.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, data_in, data_out, mapping, paths_in, paths_out FROM nodes WHERE id = ?
	`, id)

	var nodeID, dataIn, dataOut, mapping, pathsIn, pathsOut string
	if err := row.Scan(&nodeID, &dataIn, &dataOut, &mapping, &pathsIn, &pathsOut); err != nil {
		if err == sql.ErrNoRows {
			return nil, graph.UnknownNode(id)
		}
		return nil, fmt.Errorf("failed to load node: %w", err)
	}

	n := &graph.Node{ID: nodeID}
	if err := json.Unmarshal([]byte(dataIn), &n.DataIn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_in: %w", err)
	}
	if err := json.Unmarshal([]byte(dataOut), &n.DataOut); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data_out: %w", err)
	}
	if err := json.Unmarshal([]byte(mapping), &n.Mapping); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping: %w", err)
	}
	if err := json.Unmarshal([]byte(pathsIn), &n.PathsIn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paths_in: %w", err)
	}
	if err := json.Unmarshal([]byte(pathsOut), &n.PathsOut); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paths_out: %w", err)
	}
	return n, nil
}

// DeleteNode removes a node and, within a single transaction, cascades
// the deletion to every incident edge and strips the opposite
// endpoints' path lists.
func (s *SQLiteStore) DeleteNode(ctx context.Context, id string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	n, err := s.loadNode(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, eid := range append(append([]string{}, n.PathsIn...), n.PathsOut...) {
		if err := s.deleteEdgeTx(ctx, tx, eid); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddEdge(ctx context.Context, e *graph.Edge) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	if _, err := s.loadNode(ctx, e.Src); err != nil {
		return graph.UnknownNode(e.Src)
	}
	if _, err := s.loadNode(ctx, e.Dst); err != nil {
		return graph.UnknownNode(e.Dst)
	}

	keyMap, err := json.Marshal(e.KeyMap)
	if err != nil {
		return fmt.Errorf("failed to marshal key_map: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edges (id, src_id, dst_id, key_map) VALUES (?, ?, ?, ?)
	`, e.ID, e.Src, e.Dst, string(keyMap)); err != nil {
		return &graph.Diagnostic{Kind: graph.KindStorageError, EdgeID: e.ID, Detail: "edge id already exists: " + err.Error()}
	}
	if err := s.appendPath(ctx, tx, e.Src, "paths_out", e.ID); err != nil {
		return err
	}
	if err := s.appendPath(ctx, tx, e.Dst, "paths_in", e.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteEdge removes an edge and strips its id from both endpoints'
// path lists within a single transaction.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, id string) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteEdgeTx(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) deleteEdgeTx(ctx context.Context, tx *sql.Tx, id string) error {
	var srcID, dstID string
	row := tx.QueryRowContext(ctx, "SELECT src_id, dst_id FROM edges WHERE id = ?", id)
	if err := row.Scan(&srcID, &dstID); err != nil {
		if err == sql.ErrNoRows {
			return graph.UnknownEdge(id)
		}
		return fmt.Errorf("failed to load edge: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if err := s.removePathTx(ctx, tx, srcID, "paths_out", id); err != nil {
		return err
	}
	if err := s.removePathTx(ctx, tx, dstID, "paths_in", id); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) appendPath(ctx context.Context, tx *sql.Tx, nodeID, column, edgeID string) error {
	var raw string
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM nodes WHERE id = ?", column), nodeID)
	if err := row.Scan(&raw); err != nil {
		return fmt.Errorf("failed to load %s for %s: %w", column, nodeID, err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", column, err)
	}
	ids = append(ids, edgeID)
	updated, _ := json.Marshal(ids)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE nodes SET %s = ? WHERE id = ?", column), string(updated), nodeID); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

func (s *SQLiteStore) removePathTx(ctx context.Context, tx *sql.Tx, nodeID, column, edgeID string) error {
	var raw string
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM nodes WHERE id = ?", column), nodeID)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to load %s for %s: %w", column, nodeID, err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", column, err)
	}
	kept := ids[:0:0]
	for _, id := range ids {
		if id != edgeID {
			kept = append(kept, id)
		}
	}
	updated, _ := json.Marshal(kept)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE nodes SET %s = ? WHERE id = ?", column), string(updated), nodeID); err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}

// Snapshot reconstructs the full canonical Graph from the nodes and
// edges tables.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*graph.Graph, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	g := graph.New()

	nodeRows, err := s.db.QueryContext(ctx, "SELECT id, data_in, data_out, mapping, paths_in, paths_out FROM nodes")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer nodeRows.Close()

	for nodeRows.Next() {
		var id, dataIn, dataOut, mapping, pathsIn, pathsOut string
		if err := nodeRows.Scan(&id, &dataIn, &dataOut, &mapping, &pathsIn, &pathsOut); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		n := &graph.Node{ID: id}
		_ = json.Unmarshal([]byte(dataIn), &n.DataIn)
		_ = json.Unmarshal([]byte(dataOut), &n.DataOut)
		_ = json.Unmarshal([]byte(mapping), &n.Mapping)
		_ = json.Unmarshal([]byte(pathsIn), &n.PathsIn)
		_ = json.Unmarshal([]byte(pathsOut), &n.PathsOut)
		g.Nodes[id] = n
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx, "SELECT id, src_id, dst_id, key_map FROM edges")
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var id, src, dst, keyMap string
		if err := edgeRows.Scan(&id, &src, &dst, &keyMap); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		e := &graph.Edge{ID: id, Src: src, Dst: dst}
		_ = json.Unmarshal([]byte(keyMap), &e.KeyMap)
		g.Edges[id] = e
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}

	return g, nil
}

// CommitRun persists the resolved-graph row and the per-node index rows
// inside a single transaction: either everything commits or nothing
// does. The RunConfig audit row is a separate call — see SaveRunConfig.
func (s *SQLiteStore) CommitRun(ctx context.Context, rec RunRecord) error {
	if err := s.checkClosed(); err != nil {
		return err
	}

	nodesJSON, err := json.Marshal(rec.ResolvedNode)
	if err != nil {
		return fmt.Errorf("failed to marshal resolved nodes: %w", err)
	}
	topoJSON, err := json.Marshal(rec.TopoOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal topo order: %w", err)
	}
	levelJSON, err := json.Marshal(rec.LevelOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal level order: %w", err)
	}
	leafJSON, err := json.Marshal(rec.LeafOutputs)
	if err != nil {
		return fmt.Errorf("failed to marshal leaf outputs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO graphs (run_id, nodes, toposort, level_order, leaf_nodes, committed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.RunID, string(nodesJSON), string(topoJSON), string(levelJSON), string(leafJSON), rec.CommittedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	// graph_nodes only records the (node_id, run_id) association; the
	// data_out value itself is looked up back out of graphs.nodes so
	// there is a single JSON blob of record per run, not two that can
	// drift apart.
	for nodeID := range rec.ResolvedNode {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_nodes (node_id, run_id) VALUES (?, ?)
		`, nodeID, rec.RunID); err != nil {
			return fmt.Errorf("failed to insert node index entry: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetGraph(ctx context.Context, runID string) (engine.Traversals, error) {
	if err := s.checkClosed(); err != nil {
		return engine.Traversals{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT toposort, level_order, leaf_nodes FROM graphs WHERE run_id = ?
	`, runID)

	var topoJSON, levelJSON, leafJSON string
	if err := row.Scan(&topoJSON, &levelJSON, &leafJSON); err != nil {
		if err == sql.ErrNoRows {
			return engine.Traversals{}, graph.UnknownRun(runID)
		}
		return engine.Traversals{}, fmt.Errorf("failed to load run: %w", err)
	}

	var trav engine.Traversals
	if err := json.Unmarshal([]byte(topoJSON), &trav.TopoOrder); err != nil {
		return engine.Traversals{}, fmt.Errorf("failed to unmarshal toposort: %w", err)
	}
	if err := json.Unmarshal([]byte(levelJSON), &trav.LevelOrder); err != nil {
		return engine.Traversals{}, fmt.Errorf("failed to unmarshal level_order: %w", err)
	}
	var leafOutputs map[string]graph.PortMap
	if err := json.Unmarshal([]byte(leafJSON), &leafOutputs); err != nil {
		return engine.Traversals{}, fmt.Errorf("failed to unmarshal leaf_nodes: %w", err)
	}
	trav.Leaves = make([]string, 0, len(leafOutputs))
	for id := range leafOutputs {
		trav.Leaves = append(trav.Leaves, id)
	}
	return trav, nil
}

func (s *SQLiteStore) NodeValue(ctx context.Context, nodeID, runID string) (graph.PortMap, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	var exists int
	row := s.db.QueryRowContext(ctx, "SELECT 1 FROM graph_nodes WHERE node_id = ? AND run_id = ?", nodeID, runID)
	if err := row.Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, graph.UnknownRun(runID)
		}
		return nil, fmt.Errorf("failed to check node index: %w", err)
	}

	var nodesJSON string
	row = s.db.QueryRowContext(ctx, "SELECT nodes FROM graphs WHERE run_id = ?", runID)
	if err := row.Scan(&nodesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, graph.UnknownRun(runID)
		}
		return nil, fmt.Errorf("failed to load run nodes: %w", err)
	}

	var resolved map[string]*graph.Node
	if err := json.Unmarshal([]byte(nodesJSON), &resolved); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resolved nodes: %w", err)
	}
	n, ok := resolved[nodeID]
	if !ok {
		return nil, graph.UnknownRun(runID)
	}
	return n.DataOut.Clone(), nil
}

// SaveRunConfig records the submitted RunConfig for a run, for audit and
// replay. It is called by the api layer before CommitRun, not nested
// inside it, since a RunConfig that fails validation never reaches a
// committed run but is still worth keeping for diagnostics.
func (s *SQLiteStore) SaveRunConfig(ctx context.Context, runID string, cfg graph.RunConfig) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_run_configs (run_id, config_data) VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET config_data = excluded.config_data
	`, runID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save run config: %w", err)
	}
	return nil
}
