package engine

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
)

// ItemState tracks a package through the batch state machine:
// PENDING -> CACHE_HIT | COMPUTING -> DONE | FAILED.
type ItemState string

const (
	StatePending   ItemState = "PENDING"
	StateCacheHit  ItemState = "CACHE_HIT"
	StateComputing ItemState = "COMPUTING"
	StateDone      ItemState = "DONE"
	StateFailed    ItemState = "FAILED"
)

// ProgressEvent reports one item state transition during a batch scan.
type ProgressEvent struct {
	PackageName    string
	PackageVersion string
	State          ItemState
	Err            error
}

// ProgressFunc observes batch progress. It is invoked synchronously from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(ProgressEvent)

type scanOptions struct {
	progress        ProgressFunc
	vulnerabilities map[string][]schemas.Vulnerability
}

// ScanOption customizes a single batch scan.
type ScanOption func(*scanOptions)

// WithProgress registers an observer for item state transitions.
func WithProgress(fn ProgressFunc) ScanOption {
	return func(o *scanOptions) { o.progress = fn }
}

// WithVulnerabilities attaches externally supplied advisories, keyed by
// package name, to the matching results. Advisories never affect the score.
func WithVulnerabilities(v map[string][]schemas.Vulnerability) ScanOption {
	return func(o *scanOptions) { o.vulnerabilities = v }
}

func (o *scanOptions) emit(ev ProgressEvent) {
	if o.progress != nil {
		o.progress(ev)
	}
}

// batchItem carries one package through the scan and preserves its input
// position for the stable tie-break.
type batchItem struct {
	index  int
	pkg    *schemas.Package
	result schemas.DetectionResult
	done   bool
}

// Scan scores a list of packages. Cache hits are reused directly; misses run
// sequentially for small batches, otherwise on a worker pool sized from the
// miss count. A failed item is dropped and logged, never aborting the batch.
// Output is filtered by the confidence threshold and sorted by risk score
// descending, input order preserved on ties. On external cancellation the
// results produced so far are returned together with the context error.
func (e *Engine) Scan(ctx context.Context, pkgs []*schemas.Package, opts ...ScanOption) ([]schemas.DetectionResult, error) {
	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}

	started := time.Now()
	items := make([]*batchItem, 0, len(pkgs))
	var misses []*batchItem

	for i, pkg := range pkgs {
		if pkg == nil || pkg.Name == "" {
			e.log.Warn("Skipping invalid package record in batch", zap.Int("index", i))
			continue
		}
		it := &batchItem{index: i, pkg: pkg}
		items = append(items, it)
		o.emit(ProgressEvent{PackageName: pkg.Name, PackageVersion: pkg.Version, State: StatePending})

		if hit, ok := e.results.Get(cacheKey(pkg)); ok && hit.Confidence >= e.cfg.ConfidenceThreshold {
			it.result = hit
			it.done = true
			o.emit(ProgressEvent{PackageName: pkg.Name, PackageVersion: pkg.Version, State: StateCacheHit})
			continue
		}
		misses = append(misses, it)
	}

	e.log.Info("Batch scan started",
		zap.Int("packages", len(items)),
		zap.Int("cache_hits", len(items)-len(misses)),
		zap.Int("misses", len(misses)))

	var completed atomic.Int64
	logEvery := rate.Sometimes{Interval: time.Second}
	observe := func() {
		n := completed.Add(1)
		logEvery.Do(func() {
			e.log.Info("Batch progress",
				zap.Int64("completed", n),
				zap.Int("total", len(misses)))
		})
	}

	if len(misses) < e.cfg.SequentialThreshold {
		for _, it := range misses {
			if ctx.Err() != nil {
				break
			}
			e.processItem(ctx, it, &o)
			observe()
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrencyFor(len(misses)))
		for _, it := range misses {
			if gctx.Err() != nil {
				// External cancellation: drop remaining queued items.
				break
			}
			it := it
			g.Go(func() error {
				e.processItem(gctx, it, &o)
				observe()
				return nil
			})
		}
		_ = g.Wait()
	}

	results := e.merge(items, &o)

	e.log.Info("Batch scan finished",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(started)))

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// concurrencyFor derives the worker-pool size from the miss count, bounded to
// [2,8] and further capped by configuration.
func (e *Engine) concurrencyFor(misses int) int {
	c := misses / 5
	if c < 2 {
		c = 2
	}
	if c > 8 {
		c = 8
	}
	if e.cfg.MaxConcurrency > 0 && c > e.cfg.MaxConcurrency {
		c = e.cfg.MaxConcurrency
	}
	return c
}

// processItem scores one cache miss with a per-item timeout and at most the
// configured number of retries. A timed-out computation is abandoned, not
// interrupted: detectors are synchronous and run to completion on their own
// goroutine while the item is marked failed.
func (e *Engine) processItem(ctx context.Context, it *batchItem, o *scanOptions) {
	o.emit(ProgressEvent{PackageName: it.pkg.Name, PackageVersion: it.pkg.Version, State: StateComputing})

	attempts := 1 + e.cfg.RetryAttempts
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := e.computeWithTimeout(ctx, it.pkg)
		if err == nil {
			it.result = result
			it.done = true
			if result.Confidence >= e.cfg.ConfidenceThreshold {
				e.results.Put(cacheKey(it.pkg), result)
			}
			o.emit(ProgressEvent{PackageName: it.pkg.Name, PackageVersion: it.pkg.Version, State: StateDone})
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			// Parent cancelled; a retry cannot succeed.
			break
		}
		e.log.Debug("Retrying package scan",
			zap.String("package", it.pkg.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	e.log.Warn("Package scan dropped from batch",
		zap.String("package", it.pkg.Name),
		zap.String("version", it.pkg.Version),
		zap.Error(lastErr))
	o.emit(ProgressEvent{PackageName: it.pkg.Name, PackageVersion: it.pkg.Version, State: StateFailed, Err: lastErr})
}

// computeWithTimeout runs the scoring pass under the per-item deadline.
func (e *Engine) computeWithTimeout(ctx context.Context, pkg *schemas.Package) (schemas.DetectionResult, error) {
	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.PerItemTimeout)
	defer cancel()

	// Buffered so the scoring goroutine can always complete and exit even
	// after the result has been abandoned.
	done := make(chan schemas.DetectionResult, 1)
	go func() {
		done <- e.score(itemCtx, pkg)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-itemCtx.Done():
		return schemas.DetectionResult{}, itemCtx.Err()
	}
}

// merge collects completed items in input order, applies the confidence
// filter, attaches advisories, and sorts by risk score descending with the
// input position as the stable secondary key.
func (e *Engine) merge(items []*batchItem, o *scanOptions) []schemas.DetectionResult {
	out := make([]schemas.DetectionResult, 0, len(items))
	for _, it := range items {
		if !it.done {
			continue
		}
		if it.result.Confidence < e.cfg.ConfidenceThreshold {
			continue
		}
		result := it.result
		if vulns, ok := o.vulnerabilities[result.PackageName]; ok {
			result.Vulnerabilities = vulns
		}
		out = append(out, result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}
