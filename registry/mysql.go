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

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed GraphStore and RunStore for
// deployments that need a shared server rather than a single-process
// embedded file. It mirrors
// SQLiteStore's schema and transaction discipline; the differences are
// connection pooling (a real server tolerates many concurrent
// connections, unlike SQLite's single writer) and MySQL's
// `ON DUPLICATE KEY UPDATE` upsert syntax in place of SQLite's
// `ON CONFLICT`.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a connection pool against dsn (e.g.
// "user:pass@tcp(localhost:3306)/dagflow?parseTime=true") and ensures
// the schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	nodesTable := `
		CREATE TABLE IF NOT EXISTS nodes (
			id VARCHAR(255) PRIMARY KEY,
			data_in JSON NOT NULL,
			data_out JSON NOT NULL,
			mapping JSON NOT NULL,
			paths_in JSON NOT NULL,
			paths_out JSON NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, nodesTable); err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}

	edgesTable := `
		CREATE TABLE IF NOT EXISTS edges (
			id VARCHAR(255) PRIMARY KEY,
			src_id VARCHAR(255) NOT NULL,
			dst_id VARCHAR(255) NOT NULL,
			key_map JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_edges_src (src_id),
			INDEX idx_edges_dst (dst_id),
			FOREIGN KEY (src_id) REFERENCES nodes(id),
			FOREIGN KEY (dst_id) REFERENCES nodes(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, edgesTable); err != nil {
		return fmt.Errorf("failed to create edges table: %w", err)
	}

	runConfigsTable := `
		CREATE TABLE IF NOT EXISTS graph_run_configs (
			run_id VARCHAR(255) PRIMARY KEY,
			config_data JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, runConfigsTable); err != nil {
		return fmt.Errorf("failed to create graph_run_configs table: %w", err)
	}

	graphsTable := `
		CREATE TABLE IF NOT EXISTS graphs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL UNIQUE,
			nodes JSON NOT NULL,
			toposort JSON NOT NULL,
			level_order JSON NOT NULL,
			leaf_nodes JSON NOT NULL,
			committed_at TIMESTAMP NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, graphsTable); err != nil {
		return fmt.Errorf("failed to create graphs table: %w", err)
	}

	graphNodesTable := `
		CREATE TABLE IF NOT EXISTS graph_nodes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			node_id VARCHAR(255) NOT NULL,
			run_id VARCHAR(255) NOT NULL,
			UNIQUE KEY unique_node_run (node_id, run_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, graphNodesTable); err != nil {
		return fmt.Errorf("failed to create graph_nodes table: %w", err)
	}

	return nil
}

var (
	_ GraphStore = (*MySQLStore)(nil)
	_ RunStore   = (*MySQLStore)(nil)
)

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func (s *MySQLStore) AddNode(ctx context.Context, n *graph.Node) error {
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

func (s *MySQLStore) UpdateNode(ctx context.Context, id string, patch *graph.Node) (*graph.Node, error) {
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
		UPDATE nodes SET data_in = ?, data_out = ?, mapping = ? WHERE id = ?
	`, string(dataIn), string(dataOut), string(mapping), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return existing, nil
}

func (s *MySQLStore) loadNode(ctx context.Context, id string) (*graph.Node, error) {
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

func (s *MySQLStore) DeleteNode(ctx context.Context, id string) error {
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

func (s *MySQLStore) AddEdge(ctx context.Context, e *graph.Edge) error {
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

func (s *MySQLStore) DeleteEdge(ctx context.Context, id string) error {
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

func (s *MySQLStore) deleteEdgeTx(ctx context.Context, tx *sql.Tx, id string) error {
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

func (s *MySQLStore) appendPath(ctx context.Context, tx *sql.Tx, nodeID, column, edgeID string) error {
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

func (s *MySQLStore) removePathTx(ctx context.Context, tx *sql.Tx, nodeID, column, edgeID string) error {
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

func (s *MySQLStore) Snapshot(ctx context.Context) (*graph.Graph, error) {
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

func (s *MySQLStore) CommitRun(ctx context.Context, rec RunRecord) error {
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
	`, rec.RunID, string(nodesJSON), string(topoJSON), string(levelJSON), string(leafJSON), rec.CommittedAt); err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	for nodeID := range rec.ResolvedNode {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_nodes (node_id, run_id) VALUES (?, ?)
		`, nodeID, rec.RunID); err != nil {
			return fmt.Errorf("failed to insert node index entry: %w", err)
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) GetGraph(ctx context.Context, runID string) (engine.Traversals, error) {
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

func (s *MySQLStore) NodeValue(ctx context.Context, nodeID, runID string) (graph.PortMap, error) {
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
func (s *MySQLStore) SaveRunConfig(ctx context.Context, runID string, cfg graph.RunConfig) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_run_configs (run_id, config_data) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE config_data = VALUES(config_data)
	`, runID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save run config: %w", err)
	}
	return nil
}
