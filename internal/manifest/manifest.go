// Package manifest parses npm-style package documents into the engine's
// Package record. It accepts both plain package.json files and registry-style
// documents that add download and publish metadata, and tolerates the
// string-or-object variants npm allows for author, license and repository.
package manifest

import (
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rawPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type rawLicense struct {
	Type string `json:"type"`
}

type rawRepository struct {
	URL string `json:"url"`
}

type rawPackage struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Description  string              `json:"description"`
	License      jsoniter.RawMessage `json:"license"`
	Author       jsoniter.RawMessage `json:"author"`
	Maintainers  []rawPerson         `json:"maintainers"`
	Keywords     []string            `json:"keywords"`
	Scripts      map[string]string   `json:"scripts"`
	Dependencies map[string]string   `json:"dependencies"`
	Repository   jsoniter.RawMessage `json:"repository"`

	// Registry extensions beyond package.json.
	DownloadCount uint64    `json:"download_count"`
	PublishedAt   time.Time `json:"published_at"`
}

// Load reads and parses a package document from disk.
func Load(path string) (*schemas.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package document %s: %w", path, err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse package document %s: %w", path, err)
	}
	return pkg, nil
}

// Parse decodes a package document.
func Parse(data []byte) (*schemas.Package, error) {
	var raw rawPackage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid package JSON: %w", err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("package document is missing a name")
	}

	pkg := &schemas.Package{
		Name:          raw.Name,
		Version:       raw.Version,
		Description:   raw.Description,
		License:       parseLicense(raw.License),
		Keywords:      raw.Keywords,
		Scripts:       raw.Scripts,
		Dependencies:  raw.Dependencies,
		DownloadCount: raw.DownloadCount,
		PublishedAt:   raw.PublishedAt,
	}

	if author := parsePerson(raw.Author); author.Name != "" || author.Email != "" {
		pkg.Author = &schemas.Author{Name: author.Name, Email: author.Email}
	}
	for _, m := range raw.Maintainers {
		pkg.Maintainers = append(pkg.Maintainers, schemas.Maintainer{Name: m.Name, Email: m.Email})
	}
	if url := parseRepository(raw.Repository); url != "" {
		pkg.Repository = &schemas.Repository{URL: url}
	}

	return pkg, nil
}

// parsePerson handles both the object form and npm's shorthand string form
// "Name <email> (url)".
func parsePerson(raw jsoniter.RawMessage) rawPerson {
	if len(raw) == 0 {
		return rawPerson{}
	}

	var obj rawPerson
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	var shorthand string
	if err := json.Unmarshal(raw, &shorthand); err != nil {
		return rawPerson{}
	}

	person := rawPerson{Name: shorthand}
	if open := strings.IndexByte(shorthand, '<'); open >= 0 {
		person.Name = strings.TrimSpace(shorthand[:open])
		if end := strings.IndexByte(shorthand[open:], '>'); end > 0 {
			person.Email = shorthand[open+1 : open+end]
		}
	}
	if paren := strings.IndexByte(person.Name, '('); paren >= 0 {
		person.Name = strings.TrimSpace(person.Name[:paren])
	}
	return person
}

func parseLicense(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj rawLicense
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Type
	}
	return ""
}

func parseRepository(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj rawRepository
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}
