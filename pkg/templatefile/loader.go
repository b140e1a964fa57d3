// Package templatefile loads YAML template bundles for bulk import. Bundles
// carry draft definitions only; lifecycle state is assigned at import time.
package templatefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/regexflow/regexflow/pkg/pattern"
	"github.com/regexflow/regexflow/pkg/types"
)

// Definition is one validated template definition from a bundle.
type Definition struct {
	BankName    string
	Pattern     string
	Kind        types.MessageKind
	SampleText  string
	Description string
}

// Loader parses and validates template bundles.
type Loader struct {
	validator *pattern.Validator
}

// NewLoader creates a loader that validates every pattern on load.
func NewLoader() *Loader {
	return &Loader{validator: pattern.NewValidator()}
}

// LoadBundle parses a bundle from YAML bytes. Every entry is validated;
// the first invalid entry fails the whole bundle so imports stay atomic.
func (l *Loader) LoadBundle(data []byte) ([]Definition, error) {
	var yamlFile yamlTemplatesFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlFile.Templates) == 0 {
		return nil, fmt.Errorf("no templates found in bundle")
	}

	defs := make([]Definition, 0, len(yamlFile.Templates))
	for i, yt := range yamlFile.Templates {
		def, err := convertYAMLTemplate(yt)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", i+1, err)
		}
		if err := l.validator.Validate(def.Pattern); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i+1, def.BankName, err)
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// LoadBundleFile loads a bundle from a YAML file path.
func (l *Loader) LoadBundleFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return l.LoadBundle(data)
}

func convertYAMLTemplate(yt yamlTemplate) (Definition, error) {
	if yt.Bank == "" {
		return Definition{}, fmt.Errorf("bank is required")
	}
	if yt.Pattern == "" {
		return Definition{}, fmt.Errorf("pattern is required")
	}

	kind := types.MessageKind(yt.Kind)
	switch kind {
	case types.KindDebit, types.KindCredit, types.KindBill:
	case "":
		kind = types.KindDebit
	default:
		return Definition{}, fmt.Errorf("unknown kind %q", yt.Kind)
	}

	return Definition{
		BankName:    yt.Bank,
		Pattern:     yt.Pattern,
		Kind:        kind,
		SampleText:  yt.Sample,
		Description: yt.Description,
	}, nil
}
