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

const DepConfusionDetectorName = "dependency_confusion"

// DepConfusionDetector flags public packages whose names mimic internal or
// corporate namespaces, the hallmark of dependency-confusion resolution
// hijacks.
type DepConfusionDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	now     func() time.Time
}

func NewDepConfusionDetector(catalog *patterns.Catalog, logger *zap.Logger) *DepConfusionDetector {
	return &DepConfusionDetector{
		BaseDetector: core.NewBaseDetector(DepConfusionDetectorName, 0.85, logger),
		catalog:      catalog,
		now:          time.Now,
	}
}

func (d *DepConfusionDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	name := strings.ToLower(pkg.Name)

	if strings.HasPrefix(name, "@") {
		scope := name
		if i := strings.IndexByte(name, '/'); i >= 0 {
			scope = name[:i]
		}

		for _, internal := range d.catalog.InternalScopes {
			if scope == internal {
				out.Add(fmt.Sprintf("Internal-sounding scope %q published publicly", scope),
					schemas.SeverityCritical, 45)
				break
			}
		}
		for _, suffix := range d.catalog.CorporateSuffix {
			if strings.HasSuffix(scope, suffix) {
				out.Add(fmt.Sprintf("Corporate-suffix scope %q on a public package", scope),
					schemas.SeverityHigh, 35)
				break
			}
		}
	} else {
		for _, hint := range d.catalog.InternalNameHint {
			if strings.Contains(name, hint) {
				out.Add(fmt.Sprintf("Unscoped name %q sounds internal", pkg.Name),
					schemas.SeverityHigh, 25)
				break
			}
		}
	}

	// Fresh, unknown packages are the usual vehicle for a confusion attack.
	ageDays := pkg.AgeDays(d.now())
	if ageDays >= 0 && ageDays < 7 && pkg.DownloadCount < 100 {
		out.Add(fmt.Sprintf("Very recent publish (%d days) with negligible downloads", ageDays),
			schemas.SeverityMedium, 20)
	}

	return out
}
