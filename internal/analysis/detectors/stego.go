package detectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/core"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
)

const StegoDetectorName = "steganography"

// StegoDetector looks for payloads hidden inside script text: long base64 or
// hex-escape runs, decode/encode API usage, compression APIs and abnormally
// long string literals.
type StegoDetector struct {
	core.BaseDetector
	catalog *patterns.Catalog
}

func NewStegoDetector(catalog *patterns.Catalog, logger *zap.Logger) *StegoDetector {
	return &StegoDetector{
		BaseDetector: core.NewBaseDetector(StegoDetectorName, 0.8, logger),
		catalog:      catalog,
	}
}

func (d *StegoDetector) Detect(_ context.Context, pkg *schemas.Package) core.Outcome {
	var out core.Outcome

	for _, name := range scriptNames(pkg.Scripts) {
		command := pkg.Scripts[name]
		if d.catalog.Base64Run.MatchString(command) {
			out.Add(fmt.Sprintf("Base64-looking data embedded in %q script", name),
				schemas.SeverityHigh, 40)
		}
		if d.catalog.HexEscapeRun.MatchString(command) {
			out.Add(fmt.Sprintf("Long hex-escape run in %q script", name),
				schemas.SeverityHigh, 35)
		}
		if d.catalog.BufferAPI.MatchString(command) {
			out.Add(fmt.Sprintf("Buffer/encoding API usage in %q script", name),
				schemas.SeverityMedium, 25)
		}
		if d.catalog.CompressionAPI.MatchString(command) {
			out.Add(fmt.Sprintf("Compression API usage in %q script", name),
				schemas.SeverityHigh, 30)
		}
		for _, m := range d.catalog.LongString.FindAllString(command, -1) {
			out.Add(fmt.Sprintf("Very long string literal (%d chars) in %q script", len(m), name),
				schemas.SeverityMedium, 20)
		}
	}

	return out
}
