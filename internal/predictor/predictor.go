// Package predictor defines the strategy seam for risk assessment backends.
// The deterministic heuristic engine is the only built-in implementation;
// anyone substituting a genuinely trained model implements the same interface
// rather than patching the engine.
package predictor

import (
	"context"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/engine"
)

// Predictor produces a risk assessment for a package. Implementations must be
// deterministic for an unchanged input unless they clearly document
// otherwise.
type Predictor interface {
	Name() string
	Predict(ctx context.Context, pkg *schemas.Package) (schemas.DetectionResult, error)
}

// Heuristic adapts the detection engine to the Predictor interface.
type Heuristic struct {
	engine *engine.Engine
}

// NewHeuristic wraps an engine as a Predictor.
func NewHeuristic(e *engine.Engine) *Heuristic {
	return &Heuristic{engine: e}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Predict(ctx context.Context, pkg *schemas.Package) (schemas.DetectionResult, error) {
	return h.engine.ScanOne(ctx, pkg)
}
