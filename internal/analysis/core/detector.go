// Package core defines the contract every signal detector implements and the
// outcome type the aggregator consumes. Detectors are pure over the package
// record: same input, same outcome, no side effects beyond internal memo
// caches.
package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
)

// Outcome is the result of one detector invocation for one package. RawScore
// is the sum of the contributions of every finding.
type Outcome struct {
	Findings []schemas.Finding
	RawScore float64
}

// Add appends a finding and accumulates its score contribution.
func (o *Outcome) Add(label string, severity schemas.Severity, score float64) {
	o.Findings = append(o.Findings, schemas.Finding{
		Label:    label,
		Severity: severity,
		Score:    score,
	})
	o.RawScore += score
}

// Merge folds another outcome into this one.
func (o *Outcome) Merge(other Outcome) {
	o.Findings = append(o.Findings, other.Findings...)
	o.RawScore += other.RawScore
}

// Detector is the interface every threat-family detector implements. Detect
// must be safe for concurrent use, must not mutate the package, and must
// never block on another detector. Malformed or missing input fields are "no
// signal", not errors; a detector signals hard failure only by panicking,
// which the engine contains and converts into an empty outcome.
type Detector interface {
	Name() string
	// BaseConfidence is the family's confidence in its own signal when the
	// aggregate confidence ladder falls through to the detector level.
	BaseConfidence() float64
	Detect(ctx context.Context, pkg *schemas.Package) Outcome
}

// BaseDetector provides the common fields for detector implementations. Embed
// it and implement Detect.
type BaseDetector struct {
	name           string
	baseConfidence float64
	Logger         *zap.Logger
}

// NewBaseDetector builds the embedded base with a named sub-logger.
func NewBaseDetector(name string, baseConfidence float64, logger *zap.Logger) BaseDetector {
	return BaseDetector{
		name:           name,
		baseConfidence: baseConfidence,
		Logger:         logger.Named(name),
	}
}

// Name returns the detector's registry name.
func (b *BaseDetector) Name() string { return b.name }

// BaseConfidence returns the family's fallback confidence.
func (b *BaseDetector) BaseConfidence() float64 { return b.baseConfidence }
