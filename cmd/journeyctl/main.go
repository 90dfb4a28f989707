package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"

	journey "github.com/salescope/go-journey/components/journey"
	"github.com/salescope/go-journey/components/journey/kpi"
)

type cli struct {
	Scaffold scaffoldCmd `cmd:"" help:"Scaffold a KPI formula entry into a manifest."`
	Eval     evalCmd     `cmd:"" help:"Evaluate a formula against ad-hoc bindings."`
	Fields   fieldsCmd   `cmd:"" help:"List the queryable fields a formula may reference."`
}

type scaffoldCmd struct {
	Code         string   `required:"" help:"Fully-qualified formula id (e.g. kpi.close_rate)."`
	Name         string   `help:"Display name (defaults to a title-cased version of the id)."`
	Formula      string   `required:"" help:"Arithmetic expression over registry fields."`
	Category     string   `default:"custom" help:"Formula category (sales, marketing, calls)."`
	Dashboard    []string `name:"dashboard" default:"team" help:"Dashboard types the formula applies to."`
	ManifestPath string   `required:"" type:"path" help:"Path to the formula manifest YAML file to update."`
	Tag          []string `help:"Optional tags to include in the manifest (use multiple --tag flags)."`
	Maintainer   []string `help:"Maintainers to record in the manifest."`
	Customizable bool     `help:"Mark the formula as parameterizable."`
	Overwrite    bool     `help:"Overwrite an existing manifest entry if present."`
}

func main() {
	ctx := kong.Parse(&cli{},
		kong.Description("KPI formula utility for journey manifests."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	if !strings.Contains(cmd.Code, ".") {
		return fmt.Errorf("journeyctl: formula id %s must contain at least one '.' segment", cmd.Code)
	}
	compiled, err := kpi.Parse(cmd.Formula)
	if err != nil {
		return fmt.Errorf("journeyctl: %w", err)
	}
	// Fields must exist in the default registry or the manifest being edited.
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("journeyctl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	if err := validateFields(compiled, doc); err != nil {
		return err
	}
	if !cmd.Overwrite {
		for _, entry := range doc.Formulas {
			if entry.Formula.ID == cmd.Code {
				return fmt.Errorf("journeyctl: manifest already defines formula %s (use --overwrite to replace)", cmd.Code)
			}
		}
	}

	name := cmd.Name
	if name == "" {
		name = deriveName(cmd.Code)
	}
	entry := journey.ManifestFormula{
		Formula: journey.KpiFormula{
			ID:             cmd.Code,
			Name:           name,
			Formula:        cmd.Formula,
			Category:       cmd.Category,
			DashboardTypes: cmd.Dashboard,
			RequiredFields: compiled.RequiredFields(),
			Enabled:        true,
			Customizable:   cmd.Customizable,
		},
		Maintainers: cmd.Maintainer,
		Tags:        cmd.Tag,
	}

	replaced := false
	for idx := range doc.Formulas {
		if doc.Formulas[idx].Formula.ID == cmd.Code {
			doc.Formulas[idx] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Formulas = append(doc.Formulas, entry)
	}
	sort.Slice(doc.Formulas, func(i, j int) bool {
		return doc.Formulas[i].Formula.ID < doc.Formulas[j].Formula.ID
	})

	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s (fields: %s)\n", cmd.Code, manifestPath, strings.Join(entry.Formula.RequiredFields, ", "))
	return nil
}

type evalCmd struct {
	Formula string   `arg:"" help:"Arithmetic expression to evaluate."`
	Bind    []string `help:"Field bindings as name=value pairs (comma-separated values become a series)."`
}

func (cmd *evalCmd) Run(_ context.Context) error {
	compiled, err := kpi.Parse(cmd.Formula)
	if err != nil {
		return fmt.Errorf("journeyctl: %w", err)
	}
	bindings := kpi.Bindings{}
	for _, pair := range cmd.Bind {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("journeyctl: binding %q must be name=value", pair)
		}
		value, err := parseBinding(raw)
		if err != nil {
			return fmt.Errorf("journeyctl: binding %s: %w", name, err)
		}
		bindings[strings.TrimSpace(name)] = value
	}
	result, err := compiled.Eval(bindings)
	if err != nil {
		if errors.Is(err, kpi.ErrDivisionByZero) {
			fmt.Fprintln(os.Stdout, "N/A")
			return nil
		}
		return fmt.Errorf("journeyctl: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%g\n", *result)
	return nil
}

type fieldsCmd struct {
	ManifestPath string `type:"path" help:"Optional manifest whose custom fields are included."`
}

func (cmd *fieldsCmd) Run(_ context.Context) error {
	reg := journey.NewRegistry()
	if cmd.ManifestPath != "" {
		if _, err := reg.LoadManifestFile(cmd.ManifestPath); err != nil {
			return fmt.Errorf("journeyctl: %w", err)
		}
	}
	for _, field := range reg.Fields() {
		path := field.FieldPath
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(os.Stdout, "%-22s %-10s %-8s %s\n", field.ID, field.Source, field.FieldType, path)
	}
	return nil
}

func parseBinding(raw string) (kpi.Value, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		values := make([]float64, 0, len(parts))
		for _, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return kpi.Value{}, err
			}
			values = append(values, f)
		}
		return kpi.Series(values...), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return kpi.Value{}, err
	}
	return kpi.Number(f), nil
}

// validateFields checks the expression against the default registry plus any
// custom fields already declared in the manifest.
func validateFields(compiled *kpi.Formula, doc *journey.FormulaManifestDocument) error {
	known := map[string]struct{}{}
	for _, field := range journey.DefaultFields() {
		known[field.ID] = struct{}{}
	}
	for _, field := range doc.Fields {
		known[field.ID] = struct{}{}
	}
	return compiled.Validate(func(id string) bool {
		_, ok := known[id]
		return ok
	})
}

func deriveName(code string) string {
	parts := strings.Split(code, ".")
	slug := strings.TrimSpace(parts[len(parts)-1])
	if slug == "" {
		slug = code
	}
	return strcase.ToCase(slug, strcase.TitleCase, ' ')
}

func loadOrInitManifest(path string) (*journey.FormulaManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &journey.FormulaManifestDocument{
				Version:  journey.ManifestVersion,
				Formulas: []journey.ManifestFormula{},
				Source:   path,
			}, nil
		}
		return nil, fmt.Errorf("journeyctl: stat manifest: %w", err)
	}
	return journey.ReadManifest(path)
}

func writeManifest(path string, doc *journey.FormulaManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("journeyctl: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmpDoc := *doc
	tmpDoc.Source = ""

	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("journeyctl: create manifest %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(tmpDoc); err != nil {
		return fmt.Errorf("journeyctl: write manifest: %w", err)
	}
	return nil
}
