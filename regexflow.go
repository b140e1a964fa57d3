// Package regexflow extracts structured financial transactions from bank
// notification messages using reviewed regex templates.
//
// Templates move through a maker-checker lifecycle (DRAFT, PENDING_APPROVAL,
// ACTIVE, REJECTED, DEPRECATED); only ACTIVE templates take part in parsing.
// Patterns are treated as untrusted input: they are validated for dangerous
// constructs and executed under a deadline on a bounded worker pool.
//
// # Basic Usage
//
// Create an engine and parse a message:
//
//	engine, err := regexflow.NewEngine()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	outcome, err := engine.Parse(ctx, "user-1",
//	    "Rs.500.00 debited from a/c **1234 on 12-03-2025", "VM-HDFCBK")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if outcome.Transaction != nil {
//	    fmt.Printf("%s %s\n", outcome.Transaction.Kind, outcome.Transaction.Amount)
//	}
//
// # Testing a pattern
//
// Run a candidate pattern against a sample without persisting anything:
//
//	res, err := engine.TestPattern(ctx, `Rs\.(?<amount>[\d,]+) debited`, sample)
//	if res.Matched {
//	    fmt.Println(res.Fields["amount"])
//	}
package regexflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/regexflow/regexflow/pkg/generator"
	"github.com/regexflow/regexflow/pkg/matcher"
	"github.com/regexflow/regexflow/pkg/service"
	"github.com/regexflow/regexflow/pkg/store"
	"github.com/regexflow/regexflow/pkg/templatefile"
	"github.com/regexflow/regexflow/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/regexflow/regexflow" without subpackages.
type (
	// Template is an extraction pattern plus lifecycle metadata.
	Template = types.Template

	// TemplateStatus is the lifecycle state of a template.
	TemplateStatus = types.TemplateStatus

	// Actor is the identity performing an operation.
	Actor = types.Actor

	// AuditEntry records one lifecycle transition.
	AuditEntry = types.AuditEntry

	// ExtractionResult is the outcome of running one pattern against one text.
	ExtractionResult = types.ExtractionResult

	// ParsedTransaction is the persisted result of a successful parse.
	ParsedTransaction = types.ParsedTransaction

	// MessageLog records one raw inbound message and its parse outcome.
	MessageLog = types.MessageLog

	// ParseOutcome is the result of one parse attempt.
	ParseOutcome = service.ParseOutcome

	// Draft is a generated template proposal.
	Draft = generator.Draft
)

// Re-export lifecycle state constants.
const (
	StatusDraft           = types.StatusDraft
	StatusPendingApproval = types.StatusPendingApproval
	StatusActive          = types.StatusActive
	StatusRejected        = types.StatusRejected
	StatusDeprecated      = types.StatusDeprecated
)

// Engine bundles the matcher, services, and store behind one handle.
type Engine struct {
	store     store.Store
	matcher   *matcher.BoundedMatcher
	templates *service.TemplateService
	parsing   *service.ParsingService
	generator *generator.Generator
	log       *logrus.Logger
}

// engineConfig holds engine configuration.
type engineConfig struct {
	store     store.Store
	storePath string
	workers   int
	timeout   time.Duration
	log       *logrus.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithStore uses an existing store. The engine takes ownership and closes
// it on Close.
func WithStore(st store.Store) Option {
	return func(c *engineConfig) {
		c.store = st
	}
}

// WithStorePath selects the store backend by path:
// ":memory:", a SQLite file path, or a postgres:// URL.
// Default is ":memory:".
func WithStorePath(path string) Option {
	return func(c *engineConfig) {
		c.storePath = path
	}
}

// WithWorkers sets the matcher worker pool size. Default is 4.
func WithWorkers(n int) Option {
	return func(c *engineConfig) {
		c.workers = n
	}
}

// WithTimeout sets the default pattern execution deadline.
// Default is matcher.DefaultTimeout (5s).
func WithTimeout(d time.Duration) Option {
	return func(c *engineConfig) {
		c.timeout = d
	}
}

// WithLogger uses a custom logrus logger. Default logs are discarded.
func WithLogger(log *logrus.Logger) Option {
	return func(c *engineConfig) {
		c.log = log
	}
}

// NewEngine creates an Engine with the given options.
//
// By default, the engine:
//   - Keeps templates and parse history in memory
//   - Runs patterns on a 4-worker pool with a 5s deadline
//   - Discards logs (inject a logger with WithLogger)
func NewEngine(opts ...Option) (*Engine, error) {
	config := &engineConfig{
		storePath: ":memory:",
		workers:   4,
		timeout:   matcher.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(config)
	}

	if config.log == nil {
		config.log = logrus.New()
		config.log.SetOutput(io.Discard)
	}

	st := config.store
	if st == nil {
		var err error
		st, err = store.New(store.Config{Path: config.storePath})
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	m := matcher.New(config.workers, matcher.WithTimeout(config.timeout))

	return &Engine{
		store:     st,
		matcher:   m,
		templates: service.NewTemplateService(st, m, config.log),
		parsing:   service.NewParsingService(st, m, config.log),
		generator: generator.New(),
		log:       config.log,
	}, nil
}

// TestPattern runs a pattern against a sample text without persisting
// anything.
func (e *Engine) TestPattern(ctx context.Context, pattern, sample string) (ExtractionResult, error) {
	return e.templates.TestPattern(ctx, service.TestPatternRequest{Pattern: pattern, Sample: sample})
}

// Parse runs one message through selection, extraction, and normalization,
// recording the attempt and any resulting transaction.
func (e *Engine) Parse(ctx context.Context, userID, text, sender string) (ParseOutcome, error) {
	return e.parsing.Parse(ctx, userID, text, sender)
}

// Generate proposes a draft template from a sample message.
func (e *Engine) Generate(sample, sender string) Draft {
	return e.generator.Generate(sample, sender)
}

// ImportBundle loads a YAML template bundle and creates each definition as
// a DRAFT owned by the actor. Returns the created templates.
func (e *Engine) ImportBundle(ctx context.Context, actor Actor, path string) ([]Template, error) {
	defs, err := templatefile.NewLoader().LoadBundleFile(path)
	if err != nil {
		return nil, err
	}

	created := make([]Template, 0, len(defs))
	for _, def := range defs {
		tpl, err := e.templates.Create(ctx, actor, service.CreateTemplateRequest{
			BankName:    def.BankName,
			Pattern:     def.Pattern,
			Kind:        string(def.Kind),
			SampleText:  def.SampleText,
			Description: def.Description,
		})
		if err != nil {
			return created, fmt.Errorf("importing template for %s: %w", def.BankName, err)
		}
		created = append(created, tpl)
	}
	return created, nil
}

// Templates exposes template authoring, lifecycle, and queries.
func (e *Engine) Templates() *service.TemplateService {
	return e.templates
}

// Parsing exposes the parse history and unparsed-message queue.
func (e *Engine) Parsing() *service.ParsingService {
	return e.parsing
}

// Close releases the worker pool and the store.
// Always call Close when done with the engine.
func (e *Engine) Close() error {
	e.matcher.Close()
	return e.store.Close()
}
