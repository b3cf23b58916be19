package routing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/learnloop/mentor/pkg/models"
)

// DefaultMinConfidence gates keyword classification: below it the message is
// reported as unmatched and the orchestrator answers with guidance instead of
// dispatching an agent.
const DefaultMinConfidence = 0.3

// reloadDebounce coalesces the burst of filesystem events editors emit when
// rewriting the keyword file.
const reloadDebounce = 200 * time.Millisecond

// Config configures a Router. Zero values fall back to built-in defaults.
type Config struct {
	// MinConfidence is the minimum classification confidence; 0 means
	// DefaultMinConfidence.
	MinConfidence float64
	// KeywordsFile optionally points at a YAML file whose phrase lists
	// override the built-in defaults per intent. Empty means built-ins only.
	KeywordsFile string
}

// RouterStats describes the active keyword table for diagnostics.
type RouterStats struct {
	KeywordIntents int     `json:"keyword_intents"`
	MinConfidence  float64 `json:"min_confidence"`
	OverridesFile  string  `json:"overrides_file,omitempty"`
	Reloads        uint64  `json:"reloads"`
}

// Router combines the static intent table with a keyword classifier whose
// phrase table can be overridden from a YAML file and hot-reloaded. The
// compiled table is swapped atomically, so every classification runs against
// one consistent snapshot.
type Router struct {
	minConfidence float64
	keywordsFile  string
	table         atomic.Pointer[keywordTable]
	reloads       atomic.Uint64
	logger        *slog.Logger
}

// NewRouter builds a router from built-in keyword defaults plus, when
// configured, the override file. A missing or malformed override file fails
// construction; later reload failures keep the previous table instead.
func NewRouter(cfg Config) (*Router, error) {
	r := &Router{
		minConfidence: cfg.MinConfidence,
		keywordsFile:  cfg.KeywordsFile,
		logger:        slog.With("component", "intent_router"),
	}
	if r.minConfidence <= 0 {
		r.minConfidence = DefaultMinConfidence
	}
	lists, err := r.loadLists()
	if err != nil {
		return nil, err
	}
	r.install(lists)
	return r, nil
}

// RouteIntent resolves a routed intent to its agent type via the static table.
func (r *Router) RouteIntent(intent models.Intent) (models.AgentType, bool) {
	return RouteIntent(intent)
}

// Classify scores the message against the active keyword table.
func (r *Router) Classify(message string) Classification {
	return r.table.Load().classify(message, r.minConfidence)
}

// MinConfidence reports the active confidence gate.
func (r *Router) MinConfidence() float64 {
	return r.minConfidence
}

// Stats reports the state of the active keyword table.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		KeywordIntents: len(r.table.Load().entries),
		MinConfidence:  r.minConfidence,
		OverridesFile:  r.keywordsFile,
		Reloads:        r.reloads.Load(),
	}
}

// Reload re-reads the override file and swaps in a freshly compiled table.
// On error the active table is left untouched.
func (r *Router) Reload() error {
	lists, err := r.loadLists()
	if err != nil {
		return err
	}
	r.install(lists)
	r.reloads.Add(1)
	r.logger.Info("Keyword table reloaded",
		"file", r.keywordsFile,
		"intents", len(r.table.Load().entries))
	return nil
}

// Watch blocks watching the override file's directory and reloads on change
// until ctx is cancelled. Watching the directory rather than the file keeps
// reloads working across the rename-and-replace writes editors and config
// mounts perform. No-op when no override file is configured.
func (r *Router) Watch(ctx context.Context) error {
	if r.keywordsFile == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create keyword watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.keywordsFile)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	r.logger.Info("Watching keyword overrides", "file", r.keywordsFile)

	base := filepath.Base(r.keywordsFile)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := r.Reload(); err != nil {
				r.logger.Error("Keyword reload failed, keeping previous table",
					"file", r.keywordsFile, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("Keyword watcher error", "error", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// keywordsFileSchema is the YAML shape of the override file.
type keywordsFileSchema struct {
	Intents []IntentKeywords `yaml:"intents"`
}

func (r *Router) loadLists() ([]IntentKeywords, error) {
	if r.keywordsFile == "" {
		return defaultKeywords, nil
	}
	data, err := os.ReadFile(r.keywordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword overrides: %w", err)
	}
	var file keywordsFileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse keyword overrides %s: %w", r.keywordsFile, err)
	}
	return mergeKeywords(defaultKeywords, file.Intents), nil
}

func (r *Router) install(lists []IntentKeywords) {
	table, skipped := compileKeywords(lists)
	for _, s := range skipped {
		r.logger.Warn("Skipping invalid keyword entry", "entry", s)
	}
	r.table.Store(table)
}
