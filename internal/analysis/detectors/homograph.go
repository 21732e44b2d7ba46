package detectors

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const HomographDetectorName = "unicode_homograph"

// HomographDetector flags names that use visually confusable Unicode
// characters to impersonate ASCII package names. Registry names are ASCII in
// practice, so any multi-byte character in a name is already anomalous.
type HomographDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
	popular map[string]bool
}

func NewHomographDetector(catalog *patterns.Catalog, logger *zap.Logger) *HomographDetector {
	popular := make(map[string]bool, len(catalog.PopularPackages))
	for _, p := range catalog.PopularPackages {
		popular[p] = true
	}
	return &HomographDetector{
		BaseDetector: core.NewBaseDetector(HomographDetectorName, 0.9, logger),
		catalog:      catalog,
		popular:      popular,
	}
}

func (d *HomographDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	name := pkg.Name

	// Mixed-script check: any multi-byte rune makes the byte length exceed
	// the character count.
	if len(name) > utf8.RuneCountInString(name) {
		out.Add(fmt.Sprintf("Name %q mixes non-ASCII characters", name),
			schemas.SeverityCritical, 50)
	}

	for _, r := range name {
		if latin, ok := d.catalog.Confusables[r]; ok {
			out.Add(fmt.Sprintf("Name contains confusable character %q imitating %q", r, latin),
				schemas.SeverityCritical, 40)
		}
	}

	// A name that normalizes or de-confuses into a popular name while the
	// raw bytes differ is a direct impersonation.
	folded := d.foldConfusables(norm.NFD.String(name))
	if folded != name && d.popular[folded] {
		out.Add(fmt.Sprintf("Name %q normalizes to popular package %q", name, folded),
			schemas.SeverityCritical, 60)
	}

	return out
}

// foldConfusables rewrites known confusable runes to their Latin targets and
// drops combining marks left by NFD decomposition.
func (d *HomographDetector) foldConfusables(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if latin, ok := d.catalog.Confusables[r]; ok {
			out = append(out, latin)
			continue
		}
		// Combining diacritical marks.
		if r >= 0x0300 && r <= 0x036F {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
