// Package typosquat implements the name-similarity engine that flags
// candidate package names imitating popular packages. Matching combines
// Levenshtein distance with a set of targeted heuristics (pluralization,
// containment, separator stripping, character substitution, single-character
// edits), and results are memoized per candidate name.
package typosquat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/analysis/patterns"
	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/cache"
)

// MatchThreshold is the similarity above which a TyposquatMatch reports
// IsMatch.
const MatchThreshold = 0.7

// lenDiffTolerance skips reference names whose length differs from the
// candidate by more than this, a cheap short-circuit before the DP table.
const lenDiffTolerance = 3

// earlyExitSimilarity stops the reference scan once a near-identical match is
// found.
const earlyExitSimilarity = 0.95

// Match extends the public TyposquatMatch with the specific heuristics that
// triggered, which the typosquat detector turns into separate score bonuses.
type Match struct {
	schemas.TyposquatMatch
	Substitution       bool
	AdditionRemoval    bool
	SeparatorConfusion bool
}

// Matcher compares candidate names against the popular-package reference set.
// Safe for concurrent use; match results are memoized in a bounded cache
// keyed by candidate name (names are immutable once published).
type Matcher struct {
	refs []string
	subs map[string][]string
	memo *cache.LRU[string, Match]
	log  *zap.Logger
}

// NewMatcher builds a matcher over the catalog's reference set.
func NewMatcher(catalog *patterns.Catalog, cacheSize int, logger *zap.Logger) *Matcher {
	return &Matcher{
		refs: catalog.PopularPackages,
		subs: catalog.CharSubstitutions,
		memo: cache.New[string, Match](cacheSize),
		log:  logger.Named("typosquat_matcher"),
	}
}

// Match returns the best typosquat match for a candidate name. An exact
// reference-set member is never a match against itself.
func (m *Matcher) Match(_ context.Context, candidate string) Match {
	if hit, ok := m.memo.Get(candidate); ok {
		return hit
	}

	result := m.compute(candidate)
	m.memo.Put(candidate, result)
	return result
}

// Reset discards the memoized matches. Called when the reference catalog is
// replaced.
func (m *Matcher) Reset() { m.memo.Reset() }

// CacheStats exposes the memo cache counters.
func (m *Matcher) CacheStats() cache.Stats { return m.memo.Stats() }

func (m *Matcher) compute(candidate string) Match {
	result := Match{TyposquatMatch: schemas.TyposquatMatch{CandidateName: candidate}}

	name := strings.ToLower(candidate)
	nameLen := len([]rune(name))

	for _, ref := range m.refs {
		// Identical names are the reference package itself.
		if name == ref {
			continue
		}
		refLen := len([]rune(ref))
		if diff := nameLen - refLen; diff > lenDiffTolerance || diff < -lenDiffTolerance {
			continue
		}

		dist := Distance(name, ref)
		maxLen := nameLen
		if refLen > maxLen {
			maxLen = refLen
		}
		similarity := 1.0 - float64(dist)/float64(maxLen)

		var matched, subHit, addRemHit, sepHit bool

		if dist <= 2 && nameLen > 3 {
			matched = true
		}
		if similarity > 0.8 {
			matched = true
		}
		if trimmed, ok := trimPluralSuffix(name); ok && trimmed == ref {
			matched = true
		}
		if nameLen > refLen && strings.Contains(name, ref) {
			matched = true
		}
		if stripSeparators(name) == stripSeparators(ref) {
			matched = true
			sepHit = true
		}
		if m.substitutionMatches(name, ref) {
			matched = true
			subHit = true
		}
		if dist == 1 && (nameLen-refLen == 1 || refLen-nameLen == 1) {
			matched = true
			addRemHit = true
		}

		if matched && similarity > result.Similarity {
			result.Similarity = similarity
			result.BestTarget = ref
			result.Substitution = subHit
			result.AdditionRemoval = addRemHit
			result.SeparatorConfusion = sepHit
		}

		if result.Similarity > earlyExitSimilarity {
			break
		}
	}

	result.IsMatch = result.Similarity > MatchThreshold
	return result
}

// substitutionMatches reports whether replacing known look-alike sequences in
// the candidate yields the reference name (e.g. "c0lors" -> "colors",
// "lodash" imitated as "1odash").
func (m *Matcher) substitutionMatches(name, ref string) bool {
	for lookalike, targets := range m.subs {
		if !strings.Contains(name, lookalike) {
			continue
		}
		for _, target := range targets {
			if strings.ReplaceAll(name, lookalike, target) == ref {
				return true
			}
		}
	}
	return false
}

func trimPluralSuffix(name string) (string, bool) {
	if len(name) < 2 {
		return name, false
	}
	last := name[len(name)-1]
	if last == 's' || last == 'd' {
		return name[:len(name)-1], true
	}
	return name, false
}

func stripSeparators(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.':
			return -1
		}
		return r
	}, name)
}
