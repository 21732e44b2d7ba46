package detectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/typosquat"
)

const TyposquatDetectorName = "typosquatting"

// maxTyposquatScore is the base contribution at similarity 1.0; the actual
// contribution scales linearly with similarity.
const maxTyposquatScore = 35

// TyposquatDetector flags names imitating popular packages. It delegates the
// similarity work to the shared matcher, whose results are memoized per name.
type TyposquatDetector struct {
	core.BaseDetector
	matcher *typosquat.Matcher
}

func NewTyposquatDetector(matcher *typosquat.Matcher, logger *zap.Logger) *TyposquatDetector {
	return &TyposquatDetector{
		BaseDetector: core.NewBaseDetector(TyposquatDetectorName, 0.9, logger),
		matcher:      matcher,
	}
}

func (d *TyposquatDetector) Detect(ctx context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	match := d.matcher.Match(ctx, pkg.Name)
	if !match.IsMatch {
		return out
	}

	out.Add(fmt.Sprintf("Name %q closely resembles popular package %q (similarity %.3f)",
		pkg.Name, match.BestTarget, match.Similarity),
		schemas.SeverityHigh, maxTyposquatScore*match.Similarity)

	// Distinct heuristics earn separate bonuses on top of the similarity
	// contribution.
	if match.Substitution {
		out.Add(fmt.Sprintf("Character-substitution disguise of %q", match.BestTarget),
			schemas.SeverityHigh, 30)
	}
	if match.AdditionRemoval {
		out.Add(fmt.Sprintf("Single-character variation of %q", match.BestTarget),
			schemas.SeverityHigh, 25)
	}
	if match.SeparatorConfusion {
		out.Add(fmt.Sprintf("Separator-confusion variant of %q", match.BestTarget),
			schemas.SeverityHigh, 35)
	}

	return out
}
