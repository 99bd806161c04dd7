// Package logging provides config-driven categorized logging for the
// matching core, one zap.Logger per category, with level filtering and a
// StartTimer helper for per-operation duration logging.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line. Matches the
// component split in SPEC_FULL.md section 2.
type Category string

const (
	CategoryTaxonomy     Category = "taxonomy"
	CategoryRules        Category = "rules"
	CategoryDirect       Category = "direct"
	CategoryHeuristic    Category = "heuristic"
	CategoryNLP          Category = "nlp"
	CategoryLLM          Category = "llm"
	CategoryOrchestrator Category = "orchestrator"
	CategoryProvenance   Category = "provenance"
	CategorySupplyTree   Category = "supplytree"
	CategoryFacade       Category = "facade"
	CategoryConfig       Category = "config"
	CategoryEmbedding    Category = "embedding"
)

var allCategories = []Category{
	CategoryTaxonomy, CategoryRules, CategoryDirect, CategoryHeuristic,
	CategoryNLP, CategoryLLM, CategoryOrchestrator, CategoryProvenance,
	CategorySupplyTree, CategoryFacade, CategoryConfig, CategoryEmbedding,
}

var (
	mu          sync.RWMutex
	base        *zap.Logger
	loggers     = make(map[Category]*zap.SugaredLogger)
	initialized bool
)

// Init installs the base zap.Logger used to build every category logger.
// Safe to call more than once (e.g. to raise verbosity); existing category
// loggers are rebuilt against the new base. If never called, Get falls back
// to a lazily constructed production logger so library code never needs a
// nil check.
func Init(base_ *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = base_
	loggers = make(map[Category]*zap.SugaredLogger)
	initialized = true
}

// InitDefault installs a production zap.Logger, or a debug one when debug is
// true. Mirrors the teacher CLI's PersistentPreRunE setup
// (zap.NewProductionConfig + NewAtomicLevelAt(DebugLevel) under --verbose).
func InitDefault(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Init(l)
	return nil
}

func ensureBase() *zap.Logger {
	mu.RLock()
	b := base
	ok := initialized
	mu.RUnlock()
	if ok {
		return b
	}
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return base
	}
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
	initialized = true
	return base
}

// Get returns (or lazily creates) the sugared logger for category.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	b := ensureBase()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := b.With(zap.String("category", string(category))).Sugar()
	loggers[category] = l
	return l
}

// Sync flushes every category logger's buffered output. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	if base != nil {
		_ = base.Sync()
	}
}

// Timer logs the duration of an operation when Stop is called.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op under category; call Stop when the operation
// completes. Usage: defer logging.StartTimer(logging.CategoryNLP, "Score").Stop()
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw("operation complete", "op", t.op, "elapsed_ms", float64(elapsed.Microseconds())/1000.0)
	return elapsed
}

// Categories returns every known logging category, for config validation.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}
