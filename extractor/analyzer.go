package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trademe-analyzer/config"
	"trademe-analyzer/dom"
	"trademe-analyzer/models"
	"trademe-analyzer/progress"
	"trademe-analyzer/services"
	"trademe-analyzer/utils"
)

// Host hands out snapshots of the page being analyzed.
type Host interface {
	Snapshot(ctx context.Context) (dom.Document, error)
}

// Navigator moves the host to the next page of results.
type Navigator interface {
	HasNextPage(ctx context.Context) bool
	NextPage(ctx context.Context) error
}

// Params are the per-run parameters.
type Params struct {
	// Category is passed through untouched; extraction does not use it.
	Category string
	MaxItems int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithReporter sends run events to r.
func WithReporter(r progress.Reporter) Option {
	return func(a *Analyzer) { a.reporter = r }
}

// WithClock overrides the timestamp source used for extractedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithStrategies replaces the default locator cascade.
func WithStrategies(strategies ...Strategy) Option {
	return func(a *Analyzer) { a.strategies = strategies }
}

// Analyzer runs one extraction: locate, build, validate, paginate, aggregate.
// It holds no per-run state, so one Analyzer may serve many sequential runs.
type Analyzer struct {
	cfg        *config.Config
	logger     *utils.Logger
	reporter   progress.Reporter
	now        func() time.Time
	strategies []Strategy

	locator   *Locator
	builder   *Builder
	validator *services.Validator
	insights  *services.InsightService
}

// NewAnalyzer wires the pipeline from cfg.
func NewAnalyzer(cfg *config.Config, logger *utils.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:      cfg,
		logger:   logger,
		reporter: progress.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.locator = NewLocator(cfg, logger, a.strategies...)
	a.builder = NewBuilder(NewFields(cfg.Thresholds, cfg.SiteURL), logger, a.now)
	a.validator = services.NewValidator(logger)
	a.insights = services.NewInsightService(logger, cfg.Thresholds.TopItems)
	return a
}

type run struct {
	*Analyzer
	em       *progress.Emitter
	maxItems int
}

// Run analyzes the page behind host. nav may be nil when the host cannot
// paginate. On success the result has already been emitted as a complete
// event; a nil result always comes with an error.
func (a *Analyzer) Run(ctx context.Context, host Host, nav Navigator, params Params) (*models.AnalysisResult, error) {
	r := &run{Analyzer: a, em: progress.NewEmitter(a.reporter), maxItems: params.MaxItems}
	if r.maxItems <= 0 {
		r.maxItems = a.cfg.MaxItems
	}
	a.logger.Info("[analyzer] run %s started (max %d items, category %q)", r.em.RunID, r.maxItems, params.Category)

	items, err := r.collect(ctx, host, nav)
	if err != nil {
		r.fail(err)
		return nil, err
	}

	r.notify(80, "Processing item data...")
	result := a.insights.Generate(items)
	r.notify(100, "Analysis complete!")

	if err := r.complete(result); err != nil {
		a.logger.Warn("[analyzer] run %s: result delivery failed: %v", r.em.RunID, err)
		return nil, newCommunicationError(err)
	}
	a.logger.Info("[analyzer] run %s finished with %d items", r.em.RunID, len(result.Items))
	return result, nil
}

// collect walks the result pages until maxItems validated items are held,
// the page budget is spent or the navigator runs out of pages.
func (r *run) collect(ctx context.Context, host Host, nav Navigator) ([]*models.ExtractedItem, error) {
	r.notify(10, "Scanning page structure...")

	seen := utils.NewURLSet()
	items := make([]*models.ExtractedItem, 0, r.maxItems)
	rank := 0

	for page := 1; ; page++ {
		doc, err := r.waitForRender(ctx, host)
		if err != nil {
			return nil, err
		}

		located, err := r.locator.Locate(doc, r.maxItems)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			r.logger.Info("[analyzer] page %d has no listings, stopping", page)
			break
		}
		r.logger.Debug("[analyzer] page %d: %d candidates via %s", page, len(located.Nodes), located.Strategy)

		batch := make([]*models.ExtractedItem, 0, len(located.Nodes))
		for _, n := range located.Nodes {
			rank++
			if it := r.builder.Build(n, rank, doc.URL()); it != nil {
				batch = append(batch, it)
			}
		}

		for _, it := range r.validator.Validate(batch) {
			if len(items) >= r.maxItems {
				break
			}
			if it.Link != "" && !seen.Add(it.Link) {
				r.logger.Debug("[analyzer] skipping duplicate %s", it.Link)
				continue
			}
			items = append(items, it)
		}

		r.notify(20+len(items)*50/r.maxItems, fmt.Sprintf("Extracting items... (%d/%d)", len(items), r.maxItems))

		if len(items) >= r.maxItems || page >= r.cfg.MaxPages || nav == nil || !nav.HasNextPage(ctx) {
			break
		}
		if err := nav.NextPage(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("[analyzer] could not advance past page %d: %v", page, err)
			break
		}
		if err := utils.Sleep(ctx, r.cfg.PageSettleDelay); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// waitForRender polls the host until its snapshot reports an initial render,
// giving up after the configured attempts and using the last snapshot.
func (r *run) waitForRender(ctx context.Context, host Host) (dom.Document, error) {
	attempts := r.cfg.RenderWaitAttempts
	if attempts < 1 {
		attempts = 1
	}

	var doc dom.Document
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		doc, err = host.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, newHostError("page snapshot failed", err)
		}
		if doc.Ready() {
			return doc, nil
		}
		if attempt < attempts {
			if err := utils.Sleep(ctx, r.cfg.RenderPollDelay); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Warn("[analyzer] page still rendering after %d checks, continuing", attempts)
	return doc, nil
}

// notify emits a checkpoint. Delivery problems are logged and swallowed.
func (r *run) notify(percentage int, message string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("[analyzer] progress reporter panicked: %v", p)
		}
	}()
	if err := r.em.Progress(percentage, message); err != nil {
		r.logger.Warn("[analyzer] progress notification failed: %v", err)
	}
}

// complete emits the result. A panicking reporter counts as a failed delivery.
func (r *run) complete(result *models.AnalysisResult) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("result reporter panicked: %v", p)
		}
	}()
	return r.em.Complete(result)
}

func (r *run) fail(err error) {
	message := err.Error()
	details := map[string]string{}

	var e *Error
	if errors.As(err, &e) {
		message = e.UserMessage()
		details = e.Details()
		if e.Page != nil {
			r.logger.Error("[analyzer] %v %v", e, e.Page.Fields())
		} else {
			r.logger.Error("[analyzer] %v", e)
		}
	} else {
		r.logger.Error("[analyzer] run %s: %v", r.em.RunID, err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("[analyzer] error reporter panicked: %v", p)
		}
	}()
	if rerr := r.em.Fail(message, details); rerr != nil {
		r.logger.Warn("[analyzer] run %s: error delivery failed: %v", r.em.RunID, rerr)
	}
}
