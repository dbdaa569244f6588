// Package importer runs the batch import over the symbol universe: fetch in
// concurrency-limited sub-groups, persist per batch, pace itself from error
// rates, and halt early when failures dominate.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"screener/internal/domain"
	"screener/internal/provider"
	"screener/internal/store"
)

// Sub-group delays, keyed by the sub-group's error-rate bucket. A recent
// rate-limit response forces the longest delay regardless of error rate.
const (
	subGroupDelayShort  = 500 * time.Millisecond
	subGroupDelayMedium = 2 * time.Second
	subGroupDelayLong   = 8 * time.Second
)

// Inter-batch delays, keyed by the batch's success rate.
const (
	batchDelayShort  = time.Second
	batchDelayMedium = 5 * time.Second
	batchDelayLong   = 15 * time.Second
)

// rateLimitLookback is how far back a 429/403 still forces the long delay.
const rateLimitLookback = time.Minute

// Config holds the importer's run parameters.
type Config struct {
	BatchSize int
}

// Summary is what a run reports back to its caller. Run never returns an
// error for run-level failures: the caller inspects Summary.State and the
// status store instead.
type Summary struct {
	State      domain.RunState
	Total      int
	Processed  int
	Successful int
	Failed     int
	Halted     bool // circuit breaker or context expiry stopped the run early
	Elapsed    time.Duration
}

// Importer owns ImportStatus and BatchProgress for the duration of a run.
type Importer struct {
	fetch     provider.Fetcher
	records   store.RecordStore
	status    *store.StatusStore
	snapshots *store.SnapshotWriter // optional
	ctrl      *provider.AdaptiveController
	batchSize int
	log       *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an importer. snapshots may be nil to skip snapshot writing.
func New(fetch provider.Fetcher, records store.RecordStore, status *store.StatusStore,
	snapshots *store.SnapshotWriter, ctrl *provider.AdaptiveController, cfg Config) *Importer {

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Importer{
		fetch:     fetch,
		records:   records,
		status:    status,
		snapshots: snapshots,
		ctrl:      ctrl,
		batchSize: batchSize,
		log:       slog.Default().With("component", "importer"),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Run imports the given symbols. Symbols already present in the record set
// are skipped without any upstream fetch, so re-running over an imported
// list is a no-op. The run transitions running → completed on success,
// running → error on the circuit breaker, persistence failure, or context
// expiry; rate_limited states are surfaced by the client hook while the run
// sleeps out upstream backoff.
func (im *Importer) Run(ctx context.Context, symbols []string) Summary {
	runStart := im.now()

	existing, err := im.records.Load(ctx)
	if err != nil {
		im.setStatus(domain.StateError, fmt.Sprintf("loading record set: %v", err), runStart)
		return Summary{State: domain.StateError, Halted: true}
	}

	recordMap := make(map[string]domain.StockRecord, len(existing))
	for _, r := range existing {
		recordMap[r.Symbol] = r
	}

	remaining := dedupe(symbols, recordMap)

	progress := domain.BatchProgress{
		TotalSymbols: len(remaining),
		TotalBatches: (len(remaining) + im.batchSize - 1) / im.batchSize,
	}
	im.setStatus(domain.StateRunning, "", runStart)
	im.writeProgress(&progress)

	im.log.Info("starting import",
		"symbols", len(symbols),
		"alreadyImported", len(symbols)-len(remaining),
		"remaining", len(remaining),
		"batches", progress.TotalBatches,
	)

	if len(remaining) == 0 {
		im.setStatus(domain.StateCompleted, "all symbols already imported", runStart)
		return Summary{State: domain.StateCompleted, Elapsed: im.now().Sub(runStart)}
	}

	persistFailed := false
	for start := 0; start < len(remaining); start += im.batchSize {
		end := min(start+im.batchSize, len(remaining))
		batch := remaining[start:end]
		progress.CurrentBatch++

		batchSuccess, halted := im.runBatch(ctx, batch, recordMap, &progress)

		// Persist the accumulated set after every batch, even a halted one.
		if err := im.persist(ctx, recordMap); err != nil {
			im.log.Error("persisting record set", "batch", progress.CurrentBatch, "error", err)
			im.setStatus(domain.StateError, fmt.Sprintf("persisting record set: %v", err), runStart)
			persistFailed = true
		}
		im.writeProgress(&progress)

		if halted {
			return im.finishHalted(ctx, &progress, runStart)
		}

		// Circuit breaker: sustained failure means something is wrong
		// upstream; stop before burning through the rest of the list.
		if progress.FailedSymbols > 2*progress.SuccessfulSymbols && progress.FailedSymbols > 0 {
			msg := fmt.Sprintf("aborted: %d failures vs %d successes",
				progress.FailedSymbols, progress.SuccessfulSymbols)
			im.log.Error("failure ratio exceeded, halting run", "failed", progress.FailedSymbols,
				"successful", progress.SuccessfulSymbols)
			im.setStatus(domain.StateError, msg, runStart)
			return Summary{
				State:      domain.StateError,
				Total:      progress.TotalSymbols,
				Processed:  progress.ProcessedSymbols,
				Successful: progress.SuccessfulSymbols,
				Failed:     progress.FailedSymbols,
				Halted:     true,
				Elapsed:    im.now().Sub(runStart),
			}
		}

		im.log.Info("batch done",
			"batch", fmt.Sprintf("%d/%d", progress.CurrentBatch, progress.TotalBatches),
			"successful", progress.SuccessfulSymbols,
			"failed", progress.FailedSymbols,
			"elapsed", im.now().Sub(runStart).Round(time.Second),
		)

		if end < len(remaining) {
			if err := im.sleep(ctx, batchDelay(batchSuccess)); err != nil {
				return im.finishHalted(ctx, &progress, runStart)
			}
		}
	}

	if persistFailed {
		// Status already says error; leave it.
		return Summary{
			State:      domain.StateError,
			Total:      progress.TotalSymbols,
			Processed:  progress.ProcessedSymbols,
			Successful: progress.SuccessfulSymbols,
			Failed:     progress.FailedSymbols,
			Elapsed:    im.now().Sub(runStart),
		}
	}

	im.setStatus(domain.StateCompleted, "", runStart)
	im.writeSnapshot(recordMap)

	return Summary{
		State:      domain.StateCompleted,
		Total:      progress.TotalSymbols,
		Processed:  progress.ProcessedSymbols,
		Successful: progress.SuccessfulSymbols,
		Failed:     progress.FailedSymbols,
		Elapsed:    im.now().Sub(runStart),
	}
}

// runBatch processes one batch in sub-groups sized by the controller's
// current concurrency. halted is true when the context expired mid-batch.
func (im *Importer) runBatch(ctx context.Context, batch []string,
	recordMap map[string]domain.StockRecord, progress *domain.BatchProgress) (successRate float64, halted bool) {

	batchSuccess, batchTotal := 0, 0

	for start := 0; start < len(batch); {
		if ctx.Err() != nil {
			return rate(batchSuccess, batchTotal), true
		}

		// Re-read concurrency each sub-group: the controller may have
		// moved it while the previous sub-group ran.
		size := im.ctrl.Concurrency()
		end := min(start+size, len(batch))
		group := batch[start:end]
		start = end

		groupStart := im.now()
		results := im.fetchGroup(ctx, group)

		groupFailed := 0
		for _, res := range results {
			progress.ProcessedSymbols++
			batchTotal++
			if res.err != nil {
				progress.FailedSymbols++
				groupFailed++
				progress.AddError(res.symbol, res.err, im.now())
				im.log.Warn("symbol fetch failed", "symbol", res.symbol, "error", res.err)
				continue
			}
			progress.SuccessfulSymbols++
			batchSuccess++
			recordMap[res.record.Symbol] = res.record
		}

		if start < len(batch) {
			errRate := rate(groupFailed, len(group))
			rateLimited := im.ctrl.RateLimitedWithin(im.now().Sub(groupStart) + rateLimitLookback)
			if err := im.sleep(ctx, subGroupDelay(errRate, rateLimited)); err != nil {
				return rate(batchSuccess, batchTotal), true
			}
		}
	}

	return rate(batchSuccess, batchTotal), false
}

type fetchResult struct {
	symbol string
	record domain.StockRecord
	err    error
}

// fetchGroup fans the sub-group out to one goroutine per symbol and waits
// for all of them. No ordering is guaranteed within the group.
func (im *Importer) fetchGroup(ctx context.Context, symbols []string) []fetchResult {
	results := make([]fetchResult, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			bundle, err := im.fetch.Fetch(ctx, sym)
			if err != nil {
				results[i] = fetchResult{symbol: sym, err: err}
				return
			}
			results[i] = fetchResult{
				symbol: sym,
				record: provider.BuildRecord(sym, bundle, im.now()),
			}
		}(i, sym)
	}
	wg.Wait()
	return results
}

// persist replaces the stored record set with the accumulated map.
func (im *Importer) persist(ctx context.Context, recordMap map[string]domain.StockRecord) error {
	records := make([]domain.StockRecord, 0, len(recordMap))
	for _, r := range recordMap {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })
	return im.records.ReplaceAll(ctx, records)
}

func (im *Importer) finishHalted(ctx context.Context, progress *domain.BatchProgress, runStart time.Time) Summary {
	msg := "run cancelled"
	if ctx.Err() == context.DeadlineExceeded {
		msg = "time budget exceeded"
	}
	im.setStatus(domain.StateError, msg, runStart)
	return Summary{
		State:      domain.StateError,
		Total:      progress.TotalSymbols,
		Processed:  progress.ProcessedSymbols,
		Successful: progress.SuccessfulSymbols,
		Failed:     progress.FailedSymbols,
		Halted:     true,
		Elapsed:    im.now().Sub(runStart),
	}
}

func (im *Importer) writeSnapshot(recordMap map[string]domain.StockRecord) {
	if im.snapshots == nil {
		return
	}
	records := make([]domain.StockRecord, 0, len(recordMap))
	for _, r := range recordMap {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Symbol < records[j].Symbol })

	date := im.now().Format("2006-01-02")
	if err := im.snapshots.Write(date, records); err != nil {
		im.log.Error("writing snapshot", "date", date, "error", err)
	}
}

func (im *Importer) setStatus(state domain.RunState, message string, runStart time.Time) {
	status := domain.ImportStatus{
		State:   state,
		LastRun: runStart,
		Message: message,
	}
	if state == domain.StateError {
		status.LastError = message
	}
	if err := im.status.WriteStatus(status); err != nil {
		im.log.Error("writing status", "state", state, "error", err)
	}
}

func (im *Importer) writeProgress(progress *domain.BatchProgress) {
	if err := im.status.WriteProgress(*progress); err != nil {
		im.log.Error("writing progress", "error", err)
	}
}

// dedupe uppercases the input, removes duplicates, and drops symbols
// already present in the record set. Input order is preserved.
func dedupe(symbols []string, existing map[string]domain.StockRecord) []string {
	seen := make(map[string]struct{}, len(symbols))
	var out []string
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		if _, ok := existing[sym]; ok {
			continue
		}
		out = append(out, sym)
	}
	return out
}

// subGroupDelay picks the pause after a sub-group from its error rate.
func subGroupDelay(errRate float64, rateLimited bool) time.Duration {
	switch {
	case rateLimited, errRate > 0.5:
		return subGroupDelayLong
	case errRate > 0.2:
		return subGroupDelayMedium
	default:
		return subGroupDelayShort
	}
}

// batchDelay picks the pause between batches from the batch success rate.
func batchDelay(successRate float64) time.Duration {
	switch {
	case successRate >= 0.9:
		return batchDelayShort
	case successRate >= 0.5:
		return batchDelayMedium
	default:
		return batchDelayLong
	}
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
