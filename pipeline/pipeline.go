// Package pipeline runs one fetch, normalize, reconcile, validate and
// commit cycle and reports how each stage went.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hpi-affordability/fallback"
	"hpi-affordability/fetcher"
	"hpi-affordability/models"
	"hpi-affordability/services"
	"hpi-affordability/storage"
	"hpi-affordability/utils"
)

// ErrMissingDestination is returned when the run has no store or table to commit to.
var ErrMissingDestination = errors.New("pipeline: destination table is not configured")

// Stage is a state of a pipeline run.
type Stage string

const (
	StageStart       Stage = "START"
	StageFetching    Stage = "FETCHING"
	StageNormalizing Stage = "NORMALIZING"
	StageReconciling Stage = "RECONCILING"
	StageValidating  Stage = "VALIDATING"
	StageCommitting  Stage = "COMMITTING"
	StageDone        Stage = "DONE"
	StageFailed      Stage = "FAILED"
)

// Status is the outcome of a single stage.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// StageResult records what a stage produced. Reason is set whenever the
// status is not ok.
type StageResult struct {
	Stage  Stage
	Status Status
	Reason string
	Rows   int
}

// Report summarises a run.
type Report struct {
	RunID     string
	State     Stage
	Stages    []StageResult
	Rows      []models.AffordabilityRow
	Invalid   int
	Committed bool
	CommitErr error
}

// Stage returns the result recorded for s, if any.
func (r *Report) Stage(s Stage) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == s {
			return res, true
		}
	}
	return StageResult{}, false
}

// Fetcher retrieves raw source bodies. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	FetchAll(ctx context.Context, sources ...fetcher.Source) []fetcher.Result
}

// Options configures a run.
type Options struct {
	Table           string
	OperatingYear   int
	UseFallbackData bool
	PriceSource     fetcher.Source
	SalarySource    fetcher.Source
}

// Pipeline wires the stages together. Build one with New.
type Pipeline struct {
	opts     Options
	fetch    Fetcher
	store    storage.TableWriter
	snapshot storage.TableWriter
	logger   *utils.Logger
}

// New creates a Pipeline that commits to store.
func New(opts Options, fetch Fetcher, store storage.TableWriter, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		opts:   opts,
		fetch:  fetch,
		store:  store,
		logger: logger,
	}
}

// WithSnapshot adds a second writer that receives the committed rows after
// the store commit succeeds. Snapshot failures are logged only.
func (p *Pipeline) WithSnapshot(w storage.TableWriter) *Pipeline {
	p.snapshot = w
	return p
}

// run carries the state of one Run; its components log with the run id.
type run struct {
	report *Report
	logger *utils.Logger

	prices     *services.PriceNormalizer
	salaries   *services.SalaryNormalizer
	reconciler *services.Reconciler
	validator  *services.RowValidator
}

func (r *run) enter(s Stage) {
	r.report.State = s
	r.logger.Debug("[pipeline] -> %s", s)
}

func (r *run) record(res StageResult) {
	r.report.Stages = append(r.report.Stages, res)
	if res.Status == StatusOK {
		r.logger.Info("[pipeline] %s ok (%d rows)", res.Stage, res.Rows)
		return
	}
	r.logger.Warn("[pipeline] %s %s (%d rows): %s", res.Stage, res.Status, res.Rows, res.Reason)
}

// Run executes one pipeline run. The returned error is non-nil only when
// the run could not start or ctx was cancelled before commit; every other
// problem degrades the run and is described in the Report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	r := &run{
		report:     &Report{RunID: runID, State: StageStart},
		logger:     logger,
		prices:     services.NewPriceNormalizer(logger),
		salaries:   services.NewSalaryNormalizer(p.opts.OperatingYear, logger),
		reconciler: services.NewReconciler(logger),
		validator:  services.NewRowValidator(logger),
	}

	if p.store == nil || strings.TrimSpace(p.opts.Table) == "" {
		r.record(StageResult{Stage: StageStart, Status: StatusFailed, Reason: ErrMissingDestination.Error()})
		r.enter(StageFailed)
		r.logger.Error("[pipeline] %v", ErrMissingDestination)
		return r.report, ErrMissingDestination
	}
	r.logger.Info("[pipeline] Run started (table %q, operating year %d, fallback=%t)",
		p.opts.Table, p.opts.OperatingYear, p.opts.UseFallbackData)

	r.enter(StageFetching)
	priceRaw, salaryRaw := p.fetchSources(ctx, r)

	r.enter(StageNormalizing)
	prices, salaries := p.normalize(priceRaw, salaryRaw, r)

	r.enter(StageReconciling)
	rows := r.reconciler.Reconcile(prices, salaries)
	r.record(StageResult{Stage: StageReconciling, Status: StatusOK, Rows: len(rows)})

	r.enter(StageValidating)
	valid, invalid := r.validator.Validate(rows)
	r.report.Rows = valid
	r.report.Invalid = invalid
	res := StageResult{Stage: StageValidating, Status: StatusOK, Rows: len(valid)}
	if invalid > 0 {
		res.Status = StatusDegraded
		res.Reason = fmt.Sprintf("%d invalid rows excluded", invalid)
	}
	r.record(res)

	if err := ctx.Err(); err != nil {
		r.logger.Warn("[pipeline] Cancelled before commit: %v", err)
		return r.report, err
	}

	r.enter(StageCommitting)
	p.commit(ctx, valid, r)

	r.enter(StageDone)
	r.logger.Info("[pipeline] Run finished: %d rows, %d invalid, committed=%t",
		len(valid), invalid, r.report.Committed)
	return r.report, nil
}

func (p *Pipeline) fetchSources(ctx context.Context, r *run) (priceRaw, salaryRaw []byte) {
	if p.opts.UseFallbackData {
		r.record(StageResult{Stage: StageFetching, Status: StatusSkipped, Reason: "fallback data requested"})
		return nil, nil
	}

	results := p.fetch.FetchAll(ctx, p.opts.PriceSource, p.opts.SalarySource)
	var failures []string
	fetched := 0
	for i, res := range results {
		if res.Err != nil {
			failures = append(failures, res.Err.Error())
			continue
		}
		fetched++
		switch i {
		case 0:
			priceRaw = res.Body
		case 1:
			salaryRaw = res.Body
		}
	}

	out := StageResult{Stage: StageFetching, Status: StatusOK, Rows: fetched}
	if len(failures) > 0 {
		out.Status = StatusDegraded
		out.Reason = strings.Join(failures, "; ")
	}
	r.record(out)
	return priceRaw, salaryRaw
}

func (p *Pipeline) normalize(priceRaw, salaryRaw []byte, r *run) ([]models.PriceObservation, []models.SalaryObservation) {
	var (
		reasons            []string
		usedFallbackPrices bool
	)

	prices, err := r.normalizePrices(priceRaw)
	if err != nil {
		usedFallbackPrices = true
		if !p.opts.UseFallbackData {
			reasons = append(reasons, fmt.Sprintf("prices: %v, using fallback", err))
		}
		prices, err = fallback.Prices(r.logger)
		if err != nil {
			reasons = append(reasons, err.Error())
		}
	}

	salaries, err := r.normalizeSalaries(salaryRaw)
	if err != nil {
		if !p.opts.UseFallbackData {
			reasons = append(reasons, fmt.Sprintf("salaries: %v, using fallback", err))
		}
		salaries = fallback.Salaries(p.opts.OperatingYear)
	}

	if usedFallbackPrices && !fallback.CoversYear(p.opts.OperatingYear) {
		reasons = append(reasons, fmt.Sprintf("fallback prices cover %d-%d, operating year %d gets no salaries",
			fallback.PriceFirstYear, fallback.PriceLastYear, p.opts.OperatingYear))
	}

	res := StageResult{Stage: StageNormalizing, Status: StatusOK, Rows: len(prices) + len(salaries)}
	if len(reasons) > 0 {
		res.Status = StatusDegraded
		res.Reason = strings.Join(reasons, "; ")
	}
	r.record(res)
	r.logger.Info("[pipeline] %d price rows, %d salary rows", len(prices), len(salaries))
	return prices, salaries
}

func (r *run) normalizePrices(raw []byte) ([]models.PriceObservation, error) {
	if raw == nil {
		return nil, errSourceUnavailable
	}
	return r.prices.Normalize(raw)
}

func (r *run) normalizeSalaries(raw []byte) ([]models.SalaryObservation, error) {
	if raw == nil {
		return nil, errSourceUnavailable
	}
	return r.salaries.Normalize(raw)
}

var errSourceUnavailable = errors.New("source unavailable")

func (p *Pipeline) commit(ctx context.Context, rows []models.AffordabilityRow, r *run) {
	if len(rows) == 0 {
		r.record(StageResult{Stage: StageCommitting, Status: StatusSkipped, Reason: "no valid rows"})
		return
	}

	if err := p.store.ReplaceTable(ctx, p.opts.Table, rows); err != nil {
		r.report.CommitErr = err
		r.record(StageResult{Stage: StageCommitting, Status: StatusFailed, Reason: err.Error()})
		return
	}
	r.report.Committed = true
	r.record(StageResult{Stage: StageCommitting, Status: StatusOK, Rows: len(rows)})

	if p.snapshot != nil {
		if err := p.snapshot.ReplaceTable(ctx, p.opts.Table, rows); err != nil {
			r.logger.Error("[pipeline] Snapshot export failed: %v", err)
		} else {
			r.logger.Info("[pipeline] Snapshot exported")
		}
	}
}
