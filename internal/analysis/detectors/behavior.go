package detectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const BehaviorDetectorName = "behavioral_anomaly"

// BehaviorDetector catches signals that do not belong to any other family:
// download counts out of line with package age in either direction,
// executable file extensions masquerading as a package name, and odd license
// choices.
type BehaviorDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	now     func() time.Time
}

func NewBehaviorDetector(catalog *patterns.Catalog, logger *zap.Logger) *BehaviorDetector {
	return &BehaviorDetector{
		BaseDetector: core.NewBaseDetector(BehaviorDetectorName, 0.75, logger),
		catalog:      catalog,
		now:          time.Now,
	}
}

func (d *BehaviorDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	ageDays := pkg.AgeDays(d.now())
	if ageDays >= 0 {
		if ageDays < 7 && pkg.DownloadCount > 50000 {
			out.Add(fmt.Sprintf("Download count %d implausible for %d-day-old package", pkg.DownloadCount, ageDays),
				schemas.SeverityHigh, 30)
		}
		if ageDays > 730 && pkg.DownloadCount > 0 && pkg.DownloadCount < 10 {
			out.Add(fmt.Sprintf("Long-abandoned package suddenly relevant (%d downloads over %d days)", pkg.DownloadCount, ageDays),
				schemas.SeverityMedium, 15)
		}
	}

	lower := strings.ToLower(pkg.Name)
	for _, suffix := range d.catalog.ExecutableSuffixes {
		if strings.HasSuffix(lower, suffix) {
			out.Add(fmt.Sprintf("Package name carries executable extension %q", suffix),
				schemas.SeverityCritical, 40)
			break
		}
	}

	if pkg.License != "" {
		for _, lic := range d.catalog.UnusualLicenses {
			if strings.EqualFold(pkg.License, lic) {
				out.Add(fmt.Sprintf("Unusual license type %q", pkg.License),
					schemas.SeverityMedium, 10)
				break
			}
		}
	}

	return out
}
