// Package schemas defines the shared data contracts between the detection
// engine, its callers, and downstream consumers (report generators, the CLI,
// the persistence layer). These types are the stable surface of the engine;
// internal packages may wrap them but never redefine them.
package schemas

import "time"

// -- Package Schemas --

// Author identifies the publishing author of a package.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Maintainer identifies one of the accounts with publish rights on a package.
type Maintainer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Repository points at the source repository a package claims to be built from.
type Repository struct {
	URL string `json:"url"`
}

// Package is the immutable input record describing a third-party package as
// published on a registry. The engine borrows it for the duration of a scan
// and never mutates it. All fields beyond Name and Version are optional; a
// missing field is treated as "no signal", not as an error.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`

	Author      *Author      `json:"author,omitempty"`
	Maintainers []Maintainer `json:"maintainers,omitempty"`

	Keywords     []string          `json:"keywords,omitempty"`
	Scripts      map[string]string `json:"scripts,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	Repository *Repository `json:"repository,omitempty"`

	DownloadCount uint64    `json:"download_count,omitempty"`
	PublishedAt   time.Time `json:"published_at,omitempty"`
}

// AgeDays returns the number of whole days since the package was published,
// relative to now. Packages without a publish timestamp report -1 so callers
// can distinguish "unknown" from "published today".
func (p *Package) AgeDays(now time.Time) int {
	if p.PublishedAt.IsZero() {
		return -1
	}
	return int(now.Sub(p.PublishedAt).Hours() / 24)
}

// -- Finding Schemas --

// Severity classifies how dangerous a finding or an aggregate result is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns an ordering value for a severity, with CRITICAL highest.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Finding is a single labeled observation produced by exactly one detector
// call. Findings are immutable once produced; the aggregator only reads them.
type Finding struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Score    float64  `json:"score"`
}

// -- Result Schemas --

// DetectionResult is the sole output contract of the engine. It is consumed
// by report generators, recommendation generators and CLI presentation.
type DetectionResult struct {
	PackageName    string `json:"package_name"`
	PackageVersion string `json:"package_version"`

	// RiskScore is the clamped 0-100 aggregate score.
	RiskScore int      `json:"risk_score"`
	Severity  Severity `json:"severity"`

	// Confidence is a deterministic function of finding counts and tiers,
	// never of randomness. Range 0.0-1.0.
	Confidence float64 `json:"confidence"`

	// ReasoningFactors carries the flattened finding labels, or a standard
	// "no significant threats" list when the scan produced no findings.
	ReasoningFactors   []string `json:"reasoning_factors"`
	PreventiveMeasures []string `json:"preventive_measures"`

	EstimatedTimeframeDays int `json:"estimated_timeframe_days"`

	// Vulnerabilities are externally supplied advisories attached verbatim
	// for downstream reporting. They do not influence the risk score.
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
}

// Vulnerability is an externally sourced advisory for a package. The engine
// never computes these; it only passes them through to consumers.
type Vulnerability struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Severity    Severity `json:"severity,omitempty"`
	CVSSScore   float64  `json:"cvss_score,omitempty"`
	FixedIn     string   `json:"fixed_in,omitempty"`
	References  []string `json:"references,omitempty"`
	PackageName string   `json:"package_name,omitempty"`
}

// TyposquatMatch is the outcome of comparing a candidate package name against
// the reference set of popular names. Matches are memoized per candidate name
// for the lifetime of the cache; names are immutable once published.
type TyposquatMatch struct {
	CandidateName string  `json:"candidate_name"`
	BestTarget    string  `json:"best_target,omitempty"`
	Similarity    float64 `json:"similarity"`
	IsMatch       bool    `json:"is_match"`
}
