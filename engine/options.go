package engine

import "github.com/kiswi/dagflow/graph/emit"

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	eng := engine.New(
//	    engine.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	    engine.WithMetrics(engine.NewPrometheusMetrics(nil)),
//	)
type Option func(*config)

type config struct {
	emitter           emit.Emitter
	metrics           *PrometheusMetrics
	rejectMultiIsland bool
	maxProjectedNodes int
}

func defaultConfig() *config {
	return &config{
		emitter:           emit.NewNullEmitter(),
		rejectMultiIsland: false,
		maxProjectedNodes: 0,
	}
}

// WithEmitter sets the observability sink for run lifecycle events. The
// engine emits a "validation_failed" event for each rejected run and a
// "run_resolved" event for each resolved one; it emits no event per
// propagation write or per registry commit. Default is a NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) { c.emitter = e }
}

// WithMetrics attaches Prometheus instrumentation to the engine.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithIslandPolicy controls whether run_config rejects a projected
// subgraph with more than one connected component. This is a tunable
// knob rather than a core invariant; the default is to allow
// multi-island runs (unreached components are simply excluded from
// propagation).
func WithIslandPolicy(rejectMultiIsland bool) Option {
	return func(c *config) { c.rejectMultiIsland = rejectMultiIsland }
}

// WithMaxProjectedNodes bounds the size of a single projected subgraph,
// guarding against runaway run configurations. Zero (the default) means
// unbounded.
func WithMaxProjectedNodes(n int) Option {
	return func(c *config) { c.maxProjectedNodes = n }
}
