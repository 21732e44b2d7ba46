// Package results turns raw detection output into the final ranked report:
// ordering, per-severity summary and JSON serialization.
package results

import (
	"bytes"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the aggregated outcome of one batch scan.
type Report struct {
	ScanID      string                    `json:"scan_id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Results     []schemas.DetectionResult `json:"results"`
	Summary     map[string]int            `json:"summary"`
}

// ToJSON serializes the report with indentation for human consumption.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToTable renders the report as an aligned text table, one row per result.
func (r *Report) ToTable() []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tSCORE\tSEVERITY\tCONFIDENCE")
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\n",
			res.PackageName, res.PackageVersion, res.RiskScore, res.Severity, res.Confidence)
	}
	w.Flush()
	fmt.Fprintf(&buf, "\nscan %s: %d package(s)", r.ScanID, r.Summary["total"])
	for _, sev := range []schemas.Severity{schemas.SeverityCritical, schemas.SeverityHigh, schemas.SeverityMedium, schemas.SeverityLow} {
		if n := r.Summary[string(sev)]; n > 0 {
			fmt.Fprintf(&buf, ", %d %s", n, sev)
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Pipeline assembles reports from detection results.
type Pipeline struct {
	logger *zap.Logger
}

// NewPipeline creates a report pipeline.
func NewPipeline(logger *zap.Logger) *Pipeline {
	return &Pipeline{logger: logger.Named("results_pipeline")}
}

// Build ranks the results and produces the report. Results arrive already
// sorted from the engine; ranking here is idempotent so callers can feed
// merged result sets from several scans.
func (p *Pipeline) Build(scanID string, results []schemas.DetectionResult) *Report {
	ranked := make([]schemas.DetectionResult, len(results))
	copy(ranked, results)
	Rank(ranked)

	report := &Report{
		ScanID:      scanID,
		GeneratedAt: time.Now().UTC(),
		Results:     ranked,
		Summary:     summarize(ranked),
	}

	p.logger.Info("Report assembled",
		zap.String("scan_id", scanID),
		zap.Int("results", len(ranked)))
	return report
}

// Rank sorts results by risk score descending, keeping the incoming order as
// the stable secondary key.
func Rank(results []schemas.DetectionResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RiskScore > results[j].RiskScore
	})
}

func summarize(results []schemas.DetectionResult) map[string]int {
	summary := map[string]int{"total": len(results)}
	for _, r := range results {
		summary[string(r.Severity)]++
	}
	return summary
}
