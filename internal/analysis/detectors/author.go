package detectors

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const AuthorDetectorName = "author_analysis"

// AuthorDetector scores the author and maintainer identities: disposable or
// machine-generated accounts publishing a package are a classic precursor of
// throwaway malicious uploads.
type AuthorDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
}

func NewAuthorDetector(catalog *patterns.Catalog, logger *zap.Logger) *AuthorDetector {
	return &AuthorDetector{
		BaseDetector: core.NewBaseDetector(AuthorDetectorName, 0.8, logger),
		catalog:      catalog,
	}
}

func (d *AuthorDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	type identity struct {
		role  string
		name  string
		email string
	}
	var identities []identity
	if pkg.Author != nil {
		identities = append(identities, identity{"author", pkg.Author.Name, pkg.Author.Email})
	}
	for _, m := range pkg.Maintainers {
		identities = append(identities, identity{"maintainer", m.Name, m.Email})
	}
	if len(identities) == 0 {
		return out
	}

	suspicious := 0
	for _, id := range identities {
		flagged := false

		if id.email != "" {
			for _, re := range d.catalog.SuspiciousEmail {
				if re.MatchString(id.email) {
					out.Add(fmt.Sprintf("Suspicious %s email %q", id.role, id.email),
						schemas.SeverityHigh, 30)
					flagged = true
					break
				}
			}
		}

		lowerName := strings.ToLower(id.name)
		for _, part := range d.catalog.SuspiciousNameParts {
			if strings.Contains(lowerName, strings.ToLower(part)) {
				out.Add(fmt.Sprintf("Suspicious %s name %q contains %q", id.role, id.name, part),
					schemas.SeverityMedium, 18)
				flagged = true
			}
		}

		for _, re := range d.catalog.GeneratedName {
			if re.MatchString(lowerName) {
				out.Add(fmt.Sprintf("Machine-generated looking %s name %q", id.role, id.name),
					schemas.SeverityMedium, 15)
				flagged = true
				break
			}
		}

		if flagged {
			suspicious++
		}
	}

	// Ratio of suspicious identities across everyone with publish rights.
	ratio := float64(suspicious) / float64(len(identities))
	if ratio > 0.5 {
		out.Add(fmt.Sprintf("Majority of maintainers look suspicious (%d of %d)", suspicious, len(identities)),
			schemas.SeverityHigh, 25)
	} else if ratio > 0.3 {
		out.Add(fmt.Sprintf("Several maintainers look suspicious (%d of %d)", suspicious, len(identities)),
			schemas.SeverityMedium, 15)
	}

	return out
}
