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

const MaintainerDetectorName = "maintainer_compromise"

// MaintainerDetector looks for signs that publish rights changed hands:
// throwaway email domains, machine-generated identities and out-of-pattern
// maintainer rosters.
type MaintainerDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	now     func() time.Time
}

func NewMaintainerDetector(catalog *patterns.Catalog, logger *zap.Logger) *MaintainerDetector {
	return &MaintainerDetector{
		BaseDetector: core.NewBaseDetector(MaintainerDetectorName, 0.8, logger),
		catalog:      catalog,
		now:          time.Now,
	}
}

func (d *MaintainerDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	if len(pkg.Maintainers) == 0 {
		return out
	}

	for _, m := range pkg.Maintainers {
		email := strings.ToLower(m.Email)

		if domain := emailDomain(email); domain != "" {
			for _, disposable := range d.catalog.DisposableEmailDomains {
				if domain == disposable {
					out.Add(fmt.Sprintf("Maintainer %q uses disposable email domain %q", m.Name, domain),
						schemas.SeverityCritical, 40)
					break
				}
			}
		}

		for _, re := range d.catalog.SuspiciousEmail {
			if email != "" && re.MatchString(email) {
				out.Add(fmt.Sprintf("Maintainer email %q matches suspicious pattern", m.Email),
					schemas.SeverityHigh, 35)
				break
			}
		}

		lowerName := strings.ToLower(m.Name)
		for _, re := range d.catalog.GeneratedName {
			if re.MatchString(lowerName) {
				out.Add(fmt.Sprintf("Maintainer name %q looks machine-generated", m.Name),
					schemas.SeverityHigh, 30)
				break
			}
		}
	}

	// A fresh release is the window where a newly added identity matters
	// most: on a young package, identities stamped with the publish year
	// read as recently created accounts.
	ageDays := pkg.AgeDays(d.now())
	if ageDays >= 0 && ageDays < 30 {
		year := fmt.Sprintf("%d", d.now().Year())
		for _, m := range pkg.Maintainers {
			lower := strings.ToLower(m.Name)
			if strings.Contains(lower, year) || strings.Contains(strings.ToLower(m.Email), year) {
				out.Add(fmt.Sprintf("Maintainer %q appears recently added", m.Name),
					schemas.SeverityHigh, 25)
				break
			}
		}
	}

	if len(pkg.Maintainers) > 5 {
		out.Add(fmt.Sprintf("Unusually large maintainer roster (%d)", len(pkg.Maintainers)),
			schemas.SeverityMedium, 15)
	}

	return out
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
