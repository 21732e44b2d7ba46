// Package detectors contains the independent signal detectors, one per threat
// family. Each detector is a pure function of the package record: it returns
// its findings and score contributions without touching shared mutable state.
package detectors

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const ScriptDetectorName = "script_analysis"

// lifecycleWeight scales contributions from scripts the package manager runs
// automatically, where malicious commands execute without user action.
const lifecycleWeight = 1.5

var lifecycleScripts = map[string]bool{
	"install":     true,
	"postinstall": true,
	"prestart":    true,
	"start":       true,
}

// pattern rank boundaries for the malicious-script list: the first five
// entries are the critical tier, the next five the high tier.
const (
	criticalPatternRank = 5
	highPatternRank     = 10
)

// ScriptDetector inspects install and lifecycle scripts for malicious
// commands, obfuscation, network calls, system access, crypto mining and
// structural red flags.
type ScriptDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
}

func NewScriptDetector(catalog *patterns.Catalog, logger *zap.Logger) *ScriptDetector {
	return &ScriptDetector{
		BaseDetector: core.NewBaseDetector(ScriptDetectorName, 0.85, logger),
		catalog:      catalog,
	}
}

func (d *ScriptDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome
	if len(pkg.Scripts) == 0 {
		return out
	}

	for _, name := range scriptNames(pkg.Scripts) {
		weight := 1.0
		if lifecycleScripts[name] {
			weight = lifecycleWeight
		}
		d.analyzeScript(&out, name, pkg.Scripts[name], weight)
	}
	return out
}

// scriptNames returns the script names in sorted order. Map iteration order
// would otherwise leak into the finding order, and scoring the same package
// must always produce the same result.
func scriptNames(scripts map[string]string) []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (d *ScriptDetector) analyzeScript(out *core.Outcome, name, command string, weight float64) {
	// Ranked malicious patterns: severity follows the pattern's position in
	// the catalog.
	for rank, re := range d.catalog.MaliciousScript {
		if !re.MatchString(command) {
			continue
		}
		switch {
		case rank < criticalPatternRank:
			out.Add(fmt.Sprintf("Malicious command pattern in %q script: %s", name, re.String()),
				schemas.SeverityCritical, 45*weight)
		case rank < highPatternRank:
			out.Add(fmt.Sprintf("Dangerous command pattern in %q script: %s", name, re.String()),
				schemas.SeverityHigh, 30*weight)
		default:
			out.Add(fmt.Sprintf("Suspicious command pattern in %q script: %s", name, re.String()),
				schemas.SeverityMedium, 20*weight)
		}
	}

	// Obfuscation signals are tiered by how many distinct patterns hit.
	obfuscation := countMatches(d.catalog.Obfuscation, command)
	switch {
	case obfuscation > 3:
		out.Add(fmt.Sprintf("Heavy obfuscation in %q script (%d indicators)", name, obfuscation),
			schemas.SeverityCritical, 40*weight)
	case obfuscation > 1:
		out.Add(fmt.Sprintf("Obfuscation indicators in %q script (%d indicators)", name, obfuscation),
			schemas.SeverityHigh, 25*weight)
	}

	if network := countMatches(d.catalog.NetworkCall, command); network > 0 {
		if network > 2 {
			out.Add(fmt.Sprintf("Multiple network calls in %q script (%d)", name, network),
				schemas.SeverityCritical, 35*weight)
		} else {
			out.Add(fmt.Sprintf("Network call in %q script", name),
				schemas.SeverityHigh, 25*weight)
		}
	}

	if access := countMatches(d.catalog.SystemAccess, command); access > 0 {
		switch {
		case access > 4:
			out.Add(fmt.Sprintf("Extensive system access in %q script (%d indicators)", name, access),
				schemas.SeverityCritical, 30*weight)
		case access > 2:
			out.Add(fmt.Sprintf("System access in %q script (%d indicators)", name, access),
				schemas.SeverityHigh, 20*weight)
		default:
			out.Add(fmt.Sprintf("System access in %q script", name),
				schemas.SeverityMedium, 10*weight)
		}
	}

	lower := strings.ToLower(command)
	for _, keyword := range d.catalog.CryptoMining {
		if strings.Contains(lower, keyword) {
			out.Add(fmt.Sprintf("Crypto-mining indicator %q in %q script", keyword, name),
				schemas.SeverityCritical, 40*weight)
		}
	}

	statements := strings.Count(command, ";") + strings.Count(command, "\n")
	switch {
	case len(command) > 1000 && statements > 20:
		out.Add(fmt.Sprintf("Unusually complex %q script (%d chars, %d statements)", name, len(command), statements),
			schemas.SeverityHigh, 20*weight)
	case len(command) > 500 && statements > 10:
		out.Add(fmt.Sprintf("Complex %q script (%d chars, %d statements)", name, len(command), statements),
			schemas.SeverityMedium, 10*weight)
	}

	if chains := strings.Count(command, "&&") + strings.Count(command, "||"); chains > 5 {
		out.Add(fmt.Sprintf("Excessive command chaining in %q script (%d operators)", name, chains),
			schemas.SeverityHigh, 15*weight)
	}
}

func countMatches(res []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range res {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}
