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

const MetadataDetectorName = "metadata_analysis"

// MetadataDetector scans the descriptive metadata: description wording,
// keyword field entries, download-rate anomalies, the repository URL and the
// license string.
type MetadataDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	now     func() time.Time
}

func NewMetadataDetector(catalog *patterns.Catalog, logger *zap.Logger) *MetadataDetector {
	return &MetadataDetector{
		BaseDetector: core.NewBaseDetector(MetadataDetectorName, 0.8, logger),
		catalog:      catalog,
		now:          time.Now,
	}
}

func (d *MetadataDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	d.scanDescription(&out, pkg)
	d.scanKeywords(&out, pkg)
	d.scanDownloadRate(&out, pkg)
	d.scanRepository(&out, pkg)
	d.scanLicense(&out, pkg)

	return out
}

func (d *MetadataDetector) scanDescription(out *core.Outcome, pkg *schemas.Package) {
	if pkg.Description == "" {
		return
	}
	desc := strings.ToLower(pkg.Description)

	critical := 0
	for _, w := range d.catalog.MaliciousWords {
		if strings.Contains(desc, w) {
			critical++
		}
	}
	suspicious := 0
	for _, w := range d.catalog.SuspiciousWords {
		if strings.Contains(desc, w) {
			suspicious++
		}
	}

	switch {
	case critical > 0:
		out.Add(fmt.Sprintf("Description names malicious capability (%d term(s))", critical),
			schemas.SeverityCritical, 35)
	case suspicious > 3:
		out.Add(fmt.Sprintf("Description dense with suspicious terms (%d)", suspicious),
			schemas.SeverityHigh, 25)
	case suspicious > 1:
		out.Add(fmt.Sprintf("Description contains suspicious terms (%d)", suspicious),
			schemas.SeverityMedium, 15)
	}

	for _, phrase := range d.catalog.MarketingPhrases {
		if strings.Contains(desc, phrase) {
			out.Add(fmt.Sprintf("Misleading marketing claim %q in description", phrase),
				schemas.SeverityMedium, 12)
		}
	}
}

func (d *MetadataDetector) scanKeywords(out *core.Outcome, pkg *schemas.Package) {
	if len(pkg.Keywords) == 0 {
		return
	}
	hits := 0
	for _, kw := range pkg.Keywords {
		lower := strings.ToLower(kw)
		for _, w := range d.catalog.SuspiciousWords {
			if strings.Contains(lower, w) {
				hits++
				break
			}
		}
	}
	if hits > 2 {
		out.Add(fmt.Sprintf("Keyword field loaded with suspicious entries (%d)", hits),
			schemas.SeverityHigh, 20)
	} else if hits > 0 {
		out.Add(fmt.Sprintf("Suspicious keyword entries (%d)", hits),
			schemas.SeverityMedium, 12*float64(hits))
	}
}

func (d *MetadataDetector) scanDownloadRate(out *core.Outcome, pkg *schemas.Package) {
	ageDays := pkg.AgeDays(d.now())
	if ageDays < 0 || pkg.DownloadCount == 0 {
		return
	}

	divisor := ageDays
	if divisor < 1 {
		divisor = 1
	}
	perDay := float64(pkg.DownloadCount) / float64(divisor)

	switch {
	case perDay > 20000 && ageDays < 7:
		out.Add(fmt.Sprintf("Implausible download rate for a brand-new package (%.0f/day at %d days)", perDay, ageDays),
			schemas.SeverityHigh, 30)
	case perDay > 10000 && ageDays < 30:
		out.Add(fmt.Sprintf("Unusually high download rate for package age (%.0f/day at %d days)", perDay, ageDays),
			schemas.SeverityMedium, 18)
	}

	if pkg.DownloadCount > 100000 && ageDays < 30 {
		out.Add(fmt.Sprintf("Possible download-count inflation (%d downloads in %d days)", pkg.DownloadCount, ageDays),
			schemas.SeverityMedium, 15)
	}
}

func (d *MetadataDetector) scanRepository(out *core.Outcome, pkg *schemas.Package) {
	if pkg.Repository == nil || pkg.Repository.URL == "" {
		// A fake-official name with no repository at all is still a signal.
		if d.catalog.FakeOfficialName.MatchString(pkg.Name) {
			out.Add(fmt.Sprintf("Package name %q claims official status without a canonical repository", pkg.Name),
				schemas.SeverityHigh, 25)
		}
		return
	}

	repoURL := strings.ToLower(pkg.Repository.URL)
	for _, w := range d.catalog.AttackRepoWords {
		if strings.Contains(repoURL, w) {
			out.Add(fmt.Sprintf("Repository URL contains attack keyword %q", w),
				schemas.SeverityCritical, 40)
		}
	}

	if d.catalog.FakeOfficialName.MatchString(pkg.Name) {
		// Official-sounding names must point at the brand's own org.
		brand := containedBrand(pkg.Name, d.catalog.Brands)
		if brand == "" || !strings.Contains(repoURL, brand) {
			out.Add(fmt.Sprintf("Official-sounding name %q does not match its repository", pkg.Name),
				schemas.SeverityHigh, 25)
		}
	}
}

func (d *MetadataDetector) scanLicense(out *core.Outcome, pkg *schemas.Package) {
	if pkg.License == "" {
		return
	}
	for _, lic := range d.catalog.UnusualLicenses {
		if strings.EqualFold(pkg.License, lic) {
			out.Add(fmt.Sprintf("Unusual license %q", pkg.License),
				schemas.SeverityMedium, 10)
			return
		}
	}
}

// containedBrand returns the first brand string contained in name, or "".
func containedBrand(name string, brands []string) string {
	lower := strings.ToLower(name)
	for _, b := range brands {
		if strings.Contains(lower, b) {
			return b
		}
	}
	return ""
}
