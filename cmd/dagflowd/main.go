// Command dagflowd wires a registry backend and the engine into an
// api.Service and exposes its Prometheus metrics. It carries no
// transport of its own; this binary is the thin process that a real
// HTTP/RPC layer, or a test harness, would sit in front of.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiswi/dagflow/api"
	"github.com/kiswi/dagflow/engine"
	"github.com/kiswi/dagflow/graph/emit"
	"github.com/kiswi/dagflow/registry"
)

func main() {
	storeKind := flag.String("store", "memory", "canonical-graph/run store backend: memory, sqlite, mysql")
	sqlitePath := flag.String("sqlite-path", "./dagflow.db", "sqlite database file (store=sqlite)")
	mysqlDSN := flag.String("mysql-dsn", "", "mysql DSN (store=mysql)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	jsonLogs := flag.Bool("json-logs", false, "emit observability events as JSON lines instead of text")
	maxProjectedNodes := flag.Int("max-projected-nodes", 0, "reject runs whose projected subgraph exceeds this many nodes (0 = unlimited)")
	rejectMultiIsland := flag.Bool("reject-multi-island", false, "reject runs whose projected subgraph has more than one connected component")
	flag.Parse()

	graphs, runs, closeStore, err := openStore(*storeKind, *sqlitePath, *mysqlDSN)
	if err != nil {
		log.Fatalf("dagflowd: failed to open store: %v", err)
	}
	defer closeStore()

	registerer := prometheus.NewRegistry()
	metrics := engine.NewPrometheusMetrics(registerer)
	logEmitter := emit.NewLogEmitter(os.Stdout, *jsonLogs)

	opts := []engine.Option{
		engine.WithEmitter(logEmitter),
		engine.WithMetrics(metrics),
		engine.WithIslandPolicy(*rejectMultiIsland),
	}
	if *maxProjectedNodes > 0 {
		opts = append(opts, engine.WithMaxProjectedNodes(*maxProjectedNodes))
	}
	eng := engine.New(opts...)

	svc := api.NewService(graphs, runs, eng)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthHandler(svc))
	server := &http.Server{Addr: *metricsAddr, Handler: mux}

	go func() {
		log.Printf("dagflowd: serving /metrics on %s (store=%s)", *metricsAddr, *storeKind)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dagflowd: metrics server failed: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Println("dagflowd: shutting down")
	_ = server.Close()
}

// healthHandler exercises svc's read path (projecting the canonical graph
// into its connected components) so the metrics-only binary still proves
// the service wiring is live, ahead of a real HTTP/RPC transport.
func healthHandler(svc *api.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		islands, err := svc.FetchIslands(r.Context(), api.RunConfigRequest{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"islands": len(islands)})
	}
}

func openStore(kind, sqlitePath, mysqlDSN string) (registry.GraphStore, registry.RunStore, func(), error) {
	switch kind {
	case "memory":
		store := registry.NewMemoryStore()
		return store, store, func() {}, nil
	case "sqlite":
		store, err := registry.NewSQLiteStore(sqlitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { _ = store.Close() }, nil
	case "mysql":
		store, err := registry.NewMySQLStore(mysqlDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { _ = store.Close() }, nil
	default:
		log.Fatalf("dagflowd: unknown -store %q (want memory, sqlite, or mysql)", kind)
		return nil, nil, nil, nil
	}
}
