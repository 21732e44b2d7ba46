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

const BrandDetectorName = "brand_jacking"

// BrandDetector flags packages that borrow a well-known brand name to look
// official, compounded when the author identity also leans on the brand.
type BrandDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
}

func NewBrandDetector(catalog *patterns.Catalog, logger *zap.Logger) *BrandDetector {
	return &BrandDetector{
		BaseDetector: core.NewBaseDetector(BrandDetectorName, 0.8, logger),
		catalog:      catalog,
	}
}

func (d *BrandDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	name := strings.ToLower(pkg.Name)
	brand := ""
	for _, b := range d.catalog.Brands {
		// The brand itself publishing under its own name is not jacking.
		if name != b && strings.Contains(name, b) {
			brand = b
			break
		}
	}

	if brand != "" {
		out.Add(fmt.Sprintf("Name %q contains brand %q", pkg.Name, brand),
			schemas.SeverityHigh, 30)

		if emailContainsBrand(pkg, brand) {
			out.Add(fmt.Sprintf("Publisher email also leans on brand %q", brand),
				schemas.SeverityCritical, 40)
		}

		for _, suffix := range d.catalog.BrandSuffixes {
			if strings.HasSuffix(name, suffix) {
				out.Add(fmt.Sprintf("Official-sounding suffix %q on branded name", suffix),
					schemas.SeverityHigh, 25)
				break
			}
		}
	}

	desc := strings.ToLower(pkg.Description)
	if strings.Contains(desc, "official") {
		out.Add("Description claims official status", schemas.SeverityMedium, 20)
	}
	for _, kw := range pkg.Keywords {
		lower := strings.ToLower(kw)
		if lower == "official" || lower == "verified" {
			out.Add(fmt.Sprintf("Keyword claims %q status", lower), schemas.SeverityMedium, 15)
			break
		}
	}

	return out
}

func emailContainsBrand(pkg *schemas.Package, brand string) bool {
	if pkg.Author != nil && strings.Contains(strings.ToLower(pkg.Author.Email), brand) {
		return true
	}
	for _, m := range pkg.Maintainers {
		if strings.Contains(strings.ToLower(m.Email), brand) {
			return true
		}
	}
	return false
}
