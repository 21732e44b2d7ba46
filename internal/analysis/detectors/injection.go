package detectors

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const InjectionDetectorName = "supply_chain_injection"

// InjectionDetector looks for the building blocks of an injected payload in
// package scripts: delayed execution, environment-conditional branching,
// outbound connections and credential-path access. Contributions are additive
// per distinct pattern that occurs anywhere in the scripts.
type InjectionDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
}

func NewInjectionDetector(catalog *patterns.Catalog, logger *zap.Logger) *InjectionDetector {
	return &InjectionDetector{
		BaseDetector: core.NewBaseDetector(InjectionDetectorName, 0.85, logger),
		catalog:      catalog,
	}
}

func (d *InjectionDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	if len(pkg.Scripts) == 0 {
		return out
	}

	addDistinct := func(res []*regexp.Regexp, label string, severity schemas.Severity, score float64) {
		for _, re := range res {
			for _, name := range scriptNames(pkg.Scripts) {
				if re.MatchString(pkg.Scripts[name]) {
					out.Add(fmt.Sprintf("%s in %q script: %s", label, name, re.String()),
						severity, score)
					break // one contribution per distinct pattern
				}
			}
		}
	}

	addDistinct(d.catalog.DelayedExec, "Delayed execution", schemas.SeverityHigh, 25)
	addDistinct(d.catalog.ConditionalEnv, "Environment-conditional branch", schemas.SeverityMedium, 20)
	addDistinct(d.catalog.OutboundNet, "Outbound network call", schemas.SeverityHigh, 30)
	addDistinct(d.catalog.CredentialPath, "Credential-path access", schemas.SeverityCritical, 35)

	return out
}
