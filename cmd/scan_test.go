package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/config"
)

func writePackageDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.json")
	doc := `{"name": "left-pad", "version": "1.3.0", "license": "MIT", "description": "String left pad"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func runScan(t *testing.T, args ...string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "report.json")

	cmd := newScanCmd()
	cmd.SetArgs(append(args, "--output", out))
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return string(data)
}

func TestScanConfidenceZeroReportsEverything(t *testing.T) {
	doc := writePackageDoc(t)

	// A clean package scores confidence 0.75, below this threshold.
	cfg = config.Default()
	cfg.Engine.ConfidenceThreshold = 0.99

	report := runScan(t, doc, "--confidence", "0")
	assert.Contains(t, report, `"package_name": "left-pad"`)
}

func TestScanConfidenceFromConfigWithoutFlag(t *testing.T) {
	doc := writePackageDoc(t)

	cfg = config.Default()
	cfg.Engine.ConfidenceThreshold = 0.99

	report := runScan(t, doc)
	assert.NotContains(t, report, `"package_name": "left-pad"`)
	assert.Contains(t, report, `"total": 0`)
}
