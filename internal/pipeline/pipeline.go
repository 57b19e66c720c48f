package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/almazgeobur/sales-analyzer/internal/analysis"
	"github.com/almazgeobur/sales-analyzer/internal/feed"
	"github.com/almazgeobur/sales-analyzer/internal/model"
)

// SuccessMessage is the fixed result text of a completed run.
const SuccessMessage = "Данные о продажах успешно получены, проанализированы и сохранены"

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ReportGenerator turns a rendered prompt into the analytical narrative.
type ReportGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store persists one analysis report with its line items atomically.
type Store interface {
	SaveAnalysis(ctx context.Context, date, report string, items []model.LineItem) (*model.AnalysisReport, error)
}

// Result is the terminal outcome of one run. A run always resolves to a
// result; errors never escape to the scheduler.
type Result struct {
	OK       bool
	Message  string
	ReportID int64
	Attempts int
}

// Pipeline sequences fetch, parse, extract, summarize, prompt, generate and
// persist for one feed URL, retrying the whole run on transient failures.
type Pipeline struct {
	fetcher    Fetcher
	generator  ReportGenerator
	store      Store
	maxRetries int
	delay      time.Duration
	log        *logrus.Logger
}

// New assembles a pipeline. maxRetries counts additional attempts after the
// first; delay is the fixed pause between attempts.
func New(fetcher Fetcher, generator ReportGenerator, store Store, maxRetries int, delay time.Duration, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		fetcher:    fetcher,
		generator:  generator,
		store:      store,
		maxRetries: maxRetries,
		delay:      delay,
		log:        log,
	}
}

// Run executes the pipeline for feedURL. Network and malformed-feed failures
// restart the whole run up to maxRetries extra attempts; LLM, persistence
// and unexpected failures terminate immediately. The returned result carries
// either the fixed success message or a failure message with the error
// description.
func (p *Pipeline) Run(ctx context.Context, feedURL string) Result {
	runID := uuid.NewString()
	p.log.Infof("run %s: fetching sales feed from %s", runID, feedURL)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.log.Warnf("run %s: retrying after %s (attempt %d of %d): %v",
				runID, p.delay, attempt+1, p.maxRetries+1, lastErr)
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return p.failure(runID, attempts, wrapKind(KindUnexpected, ctx.Err()))
			}
		}
		attempts++

		report, err := p.runOnce(ctx, runID, feedURL)
		if err == nil {
			p.log.Infof("run %s: completed, report %d saved", runID, report.ID)
			return Result{OK: true, Message: SuccessMessage, ReportID: report.ID, Attempts: attempts}
		}

		lastErr = err
		if !KindOf(err).Retryable() {
			return p.failure(runID, attempts, err)
		}
	}

	return p.failure(runID, attempts, lastErr)
}

func (p *Pipeline) failure(runID string, attempts int, err error) Result {
	p.log.Errorf("run %s: failed after %d attempt(s): %v", runID, attempts, err)
	return Result{
		OK:       false,
		Message:  fmt.Sprintf("Произошла ошибка: %s", err.Error()),
		Attempts: attempts,
	}
}

// runOnce walks a single attempt through every stage. Each stage failure is
// tagged with its kind; a panic anywhere resolves to an unexpected failure
// instead of unwinding past the orchestrator.
func (p *Pipeline) runOnce(ctx context.Context, runID, feedURL string) (report *model.AnalysisReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = wrapKind(KindUnexpected, fmt.Errorf("panic: %v", r))
		}
	}()

	raw, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, wrapKind(KindNetwork, err)
	}
	p.log.Debugf("run %s: fetched %d bytes", runID, len(raw))

	doc, err := feed.Parse(raw)
	if err != nil {
		return nil, wrapKind(KindMalformedFeed, err)
	}

	items, totalRevenue, err := feed.Extract(doc)
	if err != nil {
		return nil, wrapKind(KindMalformedFeed, err)
	}
	p.log.Infof("run %s: extracted %d line items for %s, revenue %s",
		runID, len(items), doc.Date, totalRevenue.StringFixed(2))

	summary := analysis.Summarize(items, totalRevenue, doc.Date)
	prompt := analysis.BuildPrompt(summary)
	p.log.Debugf("run %s: prompt built:\n%s", runID, prompt)

	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, wrapKind(KindLLM, err)
	}
	p.log.Infof("run %s: received %d characters of analysis", runID, len(text))

	report, err = p.store.SaveAnalysis(ctx, doc.Date, text, items)
	if err != nil {
		return nil, wrapKind(KindPersistence, err)
	}

	return report, nil
}
