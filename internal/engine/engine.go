// Package engine implements the risk aggregator and the batch orchestrator:
// it runs the enabled detectors over a package, merges their findings into a
// single scored DetectionResult, and schedules batches of packages over a
// bounded worker pool with per-item timeout and retry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/detectors"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/typosquat"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/cache"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/config"
)

// Severity thresholds: the step function from risk score to severity tier.
const (
	criticalThreshold = 85
	highThreshold     = 65
	mediumThreshold   = 35
)

// ErrNilPackage is returned when a scan is requested for a nil or unnamed
// package record.
var ErrNilPackage = errors.New("engine: package record is nil or unnamed")

// noThreatReasons is substituted when a scan produced no findings so that
// downstream consumers always have explanatory text.
var noThreatReasons = []string{
	"No significant threat indicators detected",
	"Package metadata is consistent with legitimate publishing activity",
	"Name shows no similarity to popular packages above the alert threshold",
}

var baseMeasures = []string{
	"Pin the dependency to an exact version and verify its integrity hash",
	"Review the package before upgrading to a new release",
}

// familyMeasures maps a detector family to the preventive step its findings
// call for.
var familyMeasures = map[string]string{
	detectors.ScriptDetectorName:       "Install with lifecycle scripts disabled (--ignore-scripts) and audit the scripts manually",
	detectors.AuthorDetectorName:       "Verify the publisher identity through an out-of-band channel",
	detectors.MetadataDetectorName:     "Cross-check the package metadata against its claimed repository",
	detectors.TyposquatDetectorName:    "Confirm the exact package name against the project you intended to install",
	detectors.HomographDetectorName:    "Inspect the package name byte-for-byte for non-ASCII characters",
	detectors.VersionDetectorName:      "Check the version history on the registry for implausible jumps",
	detectors.BrandDetectorName:        "Confirm the package is published by the brand's verified account",
	detectors.DepConfusionDetectorName: "Scope internal packages and configure the registry to prefer the private index",
	detectors.InjectionDetectorName:    "Run installation inside a network-isolated sandbox",
	detectors.StegoDetectorName:        "Decode and inspect any embedded data blobs before trusting the package",
	detectors.MaintainerDetectorName:   "Check the maintainer roster history for recent additions",
	detectors.BehaviorDetectorName:     "Compare download statistics against comparable packages",
}

// timeframeDays estimates how soon a threat at each severity needs action.
var timeframeDays = map[schemas.Severity]int{
	schemas.SeverityCritical: 1,
	schemas.SeverityHigh:     7,
	schemas.SeverityMedium:   30,
	schemas.SeverityLow:      90,
}

// Engine is the detection and scoring engine. It owns the pattern catalog,
// the detector registry and both caches; Package inputs are borrowed and
// never retained.
type Engine struct {
	cfg     config.EngineConfig
	log     *zap.Logger
	catalog *patterns.Catalog
	matcher *typosquat.Matcher

	detectors []core.Detector

	results *cache.LRU[string, schemas.DetectionResult]
}

// Option customizes engine construction.
type Option func(*Engine)

// WithDetectors replaces the default detector registry. Primarily for tests.
func WithDetectors(ds []core.Detector) Option {
	return func(e *Engine) { e.detectors = ds }
}

// WithCatalog substitutes a custom pattern catalog.
func WithCatalog(c *patterns.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// New builds an engine with the detector registry derived from the
// configuration's family toggles.
func New(cfg config.EngineConfig, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     logger.Named("engine"),
		catalog: patterns.Default(),
		results: cache.New[string, schemas.DetectionResult](cfg.ResultCacheSize),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.matcher = typosquat.NewMatcher(e.catalog, cfg.TyposquatCacheSize, logger)

	if e.detectors == nil {
		e.detectors = e.buildRegistry(logger)
	}

	e.log.Info("Detection engine initialized",
		zap.String("catalog_version", e.catalog.Version),
		zap.Int("detectors", len(e.detectors)))
	return e
}

// buildRegistry assembles the enabled detector families in a fixed order, so
// finding concatenation is deterministic.
func (e *Engine) buildRegistry(logger *zap.Logger) []core.Detector {
	d := e.cfg.Detectors
	var out []core.Detector

	if d.EnableScriptAnalysis {
		out = append(out, detectors.NewScriptDetector(e.catalog, logger))
	}
	if d.EnableAuthorAnalysis {
		out = append(out, detectors.NewAuthorDetector(e.catalog, logger))
	}
	if d.EnableMetadataAnalysis {
		out = append(out, detectors.NewMetadataDetector(e.catalog, logger))
	}
	if d.EnableTyposquatting {
		out = append(out, detectors.NewTyposquatDetector(e.matcher, logger))
	}
	if d.EnableHomographDetection {
		out = append(out, detectors.NewHomographDetector(e.catalog, logger))
	}
	if d.EnableVersionConfusion {
		out = append(out, detectors.NewVersionDetector(e.catalog, logger))
	}
	if d.EnableBrandJacking {
		out = append(out, detectors.NewBrandDetector(e.catalog, logger))
	}
	if d.EnableDependencyConfusion {
		out = append(out, detectors.NewDepConfusionDetector(e.catalog, logger))
	}
	if d.EnableSupplyChainInjection {
		out = append(out, detectors.NewInjectionDetector(e.catalog, logger))
	}
	if d.EnableSteganography {
		out = append(out, detectors.NewStegoDetector(e.catalog, logger))
	}
	if d.EnableMaintainerCompromise {
		out = append(out, detectors.NewMaintainerDetector(e.catalog, logger))
	}
	if d.EnableBehavioralAnomaly {
		out = append(out, detectors.NewBehaviorDetector(e.catalog, logger))
	}
	return out
}

// cacheKey identifies a scored package; a name/version pair never changes its
// content on a registry.
func cacheKey(pkg *schemas.Package) string {
	return pkg.Name + "@" + pkg.Version
}

// ScanOne scores a single package, consulting and populating the result
// cache. The second call for the same name and version performs no detector
// work.
func (e *Engine) ScanOne(ctx context.Context, pkg *schemas.Package) (schemas.DetectionResult, error) {
	if pkg == nil || pkg.Name == "" {
		return schemas.DetectionResult{}, ErrNilPackage
	}
	if err := ctx.Err(); err != nil {
		return schemas.DetectionResult{}, err
	}

	key := cacheKey(pkg)
	if hit, ok := e.results.Get(key); ok {
		return hit, nil
	}

	result := e.score(ctx, pkg)
	if result.Confidence >= e.cfg.ConfidenceThreshold {
		e.results.Put(key, result)
	}
	return result, nil
}

// InvalidateCaches drops both the result cache and the typosquat memo. Call
// after replacing the pattern catalogs.
func (e *Engine) InvalidateCaches() {
	e.results.Reset()
	e.matcher.Reset()
	e.log.Info("Engine caches invalidated")
}

// CacheStats reports the result-cache counters.
func (e *Engine) CacheStats() cache.Stats { return e.results.Stats() }

// score runs every registered detector and aggregates the findings into a
// DetectionResult. Detector failures are contained here: a panicking detector
// contributes nothing and never aborts the package evaluation.
func (e *Engine) score(ctx context.Context, pkg *schemas.Package) schemas.DetectionResult {
	var merged core.Outcome
	contributed := make([]core.Detector, 0, len(e.detectors))

	for _, d := range e.detectors {
		out := e.runDetector(ctx, d, pkg)
		if len(out.Findings) > 0 {
			contributed = append(contributed, d)
		}
		merged.Merge(out)
	}

	return e.aggregate(pkg, merged, contributed)
}

func (e *Engine) runDetector(ctx context.Context, d core.Detector, pkg *schemas.Package) (out core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("Detector failed, treating as no signal",
				zap.String("detector", d.Name()),
				zap.String("package", pkg.Name),
				zap.Any("panic", r))
			out = core.Outcome{}
		}
	}()
	return d.Detect(ctx, pkg)
}

// aggregate applies the escalation multipliers, clamps the score and derives
// severity, confidence, reasoning and preventive measures. Escalation order
// is fixed: critical count, then high count, then total finding count.
func (e *Engine) aggregate(pkg *schemas.Package, merged core.Outcome, contributed []core.Detector) schemas.DetectionResult {
	var nCrit, nHigh int
	for _, f := range merged.Findings {
		switch f.Severity {
		case schemas.SeverityCritical:
			nCrit++
		case schemas.SeverityHigh:
			nHigh++
		}
	}

	total := merged.RawScore
	if nCrit > 0 {
		total *= 1.4 + 0.1*float64(nCrit)
	}
	if nHigh > 2 {
		total *= 1.3
	}
	if len(merged.Findings) > 5 {
		total *= 1.25
	}

	riskScore := int(math.Round(total))
	if riskScore < 0 {
		riskScore = 0
	}
	if riskScore > 100 {
		riskScore = 100
	}

	severity := severityFor(riskScore)

	result := schemas.DetectionResult{
		PackageName:            pkg.Name,
		PackageVersion:         pkg.Version,
		RiskScore:              riskScore,
		Severity:               severity,
		Confidence:             confidenceFor(merged.Findings, nCrit, nHigh, contributed),
		ReasoningFactors:       reasoningFactors(merged.Findings),
		PreventiveMeasures:     e.preventiveMeasures(contributed),
		EstimatedTimeframeDays: timeframeDays[severity],
	}
	return result
}

// severityFor is the monotonic step function from risk score to tier.
func severityFor(riskScore int) schemas.Severity {
	switch {
	case riskScore >= criticalThreshold:
		return schemas.SeverityCritical
	case riskScore >= highThreshold:
		return schemas.SeverityHigh
	case riskScore >= mediumThreshold:
		return schemas.SeverityMedium
	default:
		return schemas.SeverityLow
	}
}

// confidenceFor is the deterministic confidence ladder: finding tiers first,
// then count, then the best contributing family's base confidence.
func confidenceFor(findings []schemas.Finding, nCrit, nHigh int, contributed []core.Detector) float64 {
	switch {
	case len(findings) == 0:
		return 0.75
	case nCrit > 0:
		return 0.98
	case nHigh > 0:
		return 0.92
	case len(findings) > 2:
		return 0.88
	}

	best := 0.8
	for _, d := range contributed {
		if bc := d.BaseConfidence(); bc > best {
			best = bc
		}
	}
	return best
}

func reasoningFactors(findings []schemas.Finding) []string {
	if len(findings) == 0 {
		out := make([]string, len(noThreatReasons))
		copy(out, noThreatReasons)
		return out
	}
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, fmt.Sprintf("[%s] %s", f.Severity, f.Label))
	}
	return out
}

func (e *Engine) preventiveMeasures(contributed []core.Detector) []string {
	out := make([]string, 0, len(baseMeasures)+len(contributed))
	out = append(out, baseMeasures...)
	for _, d := range contributed {
		if m, ok := familyMeasures[d.Name()]; ok {
			out = append(out, m)
		}
	}
	return out
}
