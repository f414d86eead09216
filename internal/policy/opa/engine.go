package opa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

// RosterQuery is the rule every roster policy bundle must define
const RosterQuery = "data.frms.roster.decision"

// Config holds OPA engine configuration
type Config struct {
	PolicyDir string
}

// RosterDecision is the raw decision document produced by the roster policy
type RosterDecision struct {
	Action     string   `json:"action"`
	Reason     string   `json:"reason"`
	Advisories []string `json:"advisories"`
}

// Engine wraps OPA rego engine for policy evaluation
type Engine struct {
	config Config
	logger zerolog.Logger

	mu          sync.RWMutex
	rosterQuery rego.PreparedEvalQuery
	modules     map[string]*ast.Module
}

// NewEngine creates a new OPA engine
func NewEngine(config Config, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		config: config,
		logger: logger.With().Str("component", "opa").Logger(),
	}

	if err := e.load(); err != nil {
		return nil, err
	}

	e.logger.Info().Str("policy_dir", config.PolicyDir).Msg("OPA engine initialized")

	return e, nil
}

// load compiles the policy directory and swaps it in
func (e *Engine) load() error {
	modules, err := e.loadPolicies()
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	query, err := prepareRosterQuery(modules)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.modules = modules
	e.rosterQuery = query
	e.mu.Unlock()

	return nil
}

// loadPolicies loads all .rego files from the policy directory
func (e *Engine) loadPolicies() (map[string]*ast.Module, error) {
	files, err := filepath.Glob(filepath.Join(e.config.PolicyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob policy files: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", e.config.PolicyDir)
	}

	e.logger.Info().Int("count", len(files)).Msg("Loading policy files")

	modules := make(map[string]*ast.Module, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", file, err)
		}

		module, err := ast.ParseModule(file, string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse policy file %s: %w", file, err)
		}

		modules[file] = module
		e.logger.Debug().Str("file", file).Str("package", module.Package.Path.String()).Msg("Loaded policy module")
	}

	return modules, nil
}

// prepareRosterQuery prepares the roster decision query
func prepareRosterQuery(modules map[string]*ast.Module) (rego.PreparedEvalQuery, error) {
	opts := make([]func(*rego.Rego), 0, len(modules)+1)
	opts = append(opts, rego.Query(RosterQuery))
	for _, module := range modules {
		opts = append(opts, rego.ParsedModule(module))
	}

	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("failed to prepare roster query: %w", err)
	}
	return query, nil
}

// EvaluateRoster evaluates a roster decision for the given facts
func (e *Engine) EvaluateRoster(ctx context.Context, input map[string]interface{}) (*RosterDecision, error) {
	startTime := time.Now()

	e.mu.RLock()
	query := e.rosterQuery
	e.mu.RUnlock()

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("roster query evaluation failed: %w", err)
	}

	e.logger.Debug().Dur("duration_ms", time.Since(startTime)).Msg("Roster query evaluated")

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, fmt.Errorf("no results from roster query")
	}

	// Round-trip through JSON to decode the decision document
	resultBytes, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster decision: %w", err)
	}

	var decision RosterDecision
	if err := json.Unmarshal(resultBytes, &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster decision: %w", err)
	}

	return &decision, nil
}

// Modules returns the names of the loaded policy files
func (e *Engine) Modules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.modules))
	for file := range e.modules {
		names = append(names, filepath.Base(file))
	}
	sort.Strings(names)
	return names
}

// Reload reloads all policies from disk. On failure the previously loaded
// policies stay in effect.
func (e *Engine) Reload() error {
	e.logger.Info().Msg("Reloading OPA policies")

	if err := e.load(); err != nil {
		return fmt.Errorf("failed to reload policies: %w", err)
	}

	e.logger.Info().Msg("OPA policies reloaded successfully")

	return nil
}
