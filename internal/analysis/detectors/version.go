package detectors

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const VersionDetectorName = "version_confusion"

// VersionDetector flags implausible version numbers used to win dependency
// resolution: absurd major versions, known attack literals and release
// cadences inconsistent with the package's age.
type VersionDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	now     func() time.Time
}

func NewVersionDetector(catalog *patterns.Catalog, logger *zap.Logger) *VersionDetector {
	return &VersionDetector{
		BaseDetector: core.NewBaseDetector(VersionDetectorName, 0.85, logger),
		catalog:      catalog,
		now:          time.Now,
	}
}

func (d *VersionDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	version := strings.TrimPrefix(pkg.Version, "v")
	if version == "" {
		return out
	}

	for _, prefix := range d.catalog.AttackVersionPrefixes {
		if strings.HasPrefix(version, prefix) {
			out.Add(fmt.Sprintf("Version %q uses a known attack literal", pkg.Version),
				schemas.SeverityCritical, 50)
			break
		}
	}

	major, minor, patch, prerelease, ok := splitSemver(version)
	if ok {
		if major > 100 {
			out.Add(fmt.Sprintf("Implausible major version %d", major),
				schemas.SeverityHigh, 40)
		}
		if minor > 999 || patch > 999 {
			out.Add(fmt.Sprintf("Implausible minor/patch magnitude in %q", pkg.Version),
				schemas.SeverityHigh, 35)
		}

		if prerelease != "" && pkg.DownloadCount > 50000 {
			out.Add(fmt.Sprintf("High download count (%d) on pre-release tag %q", pkg.DownloadCount, prerelease),
				schemas.SeverityHigh, 25)
		}

		// A deep version history on a very young package implies version
		// stuffing to outrank a legitimate release.
		ageDays := pkg.AgeDays(d.now())
		if ageDays >= 0 && ageDays < 30 && major > 10 {
			out.Add(fmt.Sprintf("Version %q implies a release cadence inconsistent with %d-day age", pkg.Version, ageDays),
				schemas.SeverityHigh, 30)
		}
	}

	return out
}

// splitSemver parses a loose semver string into its numeric components and
// pre-release tag. Returns ok=false when the leading component is not numeric.
func splitSemver(version string) (major, minor, patch int, prerelease string, ok bool) {
	rest := version
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		prerelease = rest[i+1:]
		rest = rest[:i]
	}

	parts := strings.SplitN(rest, ".", 3)
	var err error
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, "", false
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		patch, _ = strconv.Atoi(parts[2])
	}
	return major, minor, patch, prerelease, true
}
