package journey

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// FormulaManifestDocument models a YAML/JSON manifest declaring fields and
// KPI formulas, so teams can ship formula packs without recompiling.
type FormulaManifestDocument struct {
	Version  string            `json:"version" yaml:"version"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Package  string            `json:"package,omitempty" yaml:"package,omitempty"`
	Homepage string            `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Fields   []Field           `json:"fields,omitempty" yaml:"fields,omitempty"`
	Formulas []ManifestFormula `json:"formulas" yaml:"formulas"`
	Source   string            `json:"-" yaml:"-"`
}

// ManifestFormula describes a single formula entry within a manifest.
type ManifestFormula struct {
	Formula     KpiFormula `json:"formula" yaml:"formula"`
	Maintainers []string   `json:"maintainers,omitempty" yaml:"maintainers,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// LoadManifestFile reads a manifest from disk, registers it against the
// registry, and returns the document.
func (r *Registry) LoadManifestFile(path string) (*FormulaManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers fields and formulas from a decoded manifest.
// Fields register first so formulas can reference them.
func (r *Registry) LoadManifestDocument(doc *FormulaManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("journey: manifest document is nil")
	}
	for _, field := range doc.Fields {
		if err := r.RegisterField(field); err != nil {
			return fmt.Errorf("journey: register field %s from %s: %w", field.ID, doc.Source, err)
		}
	}
	for _, entry := range doc.Formulas {
		if err := r.RegisterFormula(entry.Formula); err != nil {
			return fmt.Errorf("journey: register formula %s from %s: %w", entry.Formula.ID, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*FormulaManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("journey: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("journey: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*FormulaManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc FormulaManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("journey: manifest is empty")
		}
		return nil, fmt.Errorf("journey: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *FormulaManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("journey: unsupported manifest version %q", doc.Version)
	}
	seenFields := make(map[string]struct{}, len(doc.Fields))
	for idx, field := range doc.Fields {
		if field.ID == "" {
			return fmt.Errorf("journey: manifest field at index %d is missing id", idx)
		}
		if _, exists := seenFields[field.ID]; exists {
			return fmt.Errorf("journey: manifest duplicates field id %s", field.ID)
		}
		seenFields[field.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(doc.Formulas))
	for idx, entry := range doc.Formulas {
		if entry.Formula.ID == "" {
			return fmt.Errorf("journey: manifest formula at index %d is missing id", idx)
		}
		if entry.Formula.Name == "" {
			return fmt.Errorf("journey: manifest formula %s missing name", entry.Formula.ID)
		}
		if entry.Formula.Formula == "" {
			return fmt.Errorf("journey: manifest formula %s missing expression", entry.Formula.ID)
		}
		if _, exists := seen[entry.Formula.ID]; exists {
			return fmt.Errorf("journey: manifest duplicates formula id %s", entry.Formula.ID)
		}
		seen[entry.Formula.ID] = struct{}{}
	}
	return nil
}

func (doc *FormulaManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}
