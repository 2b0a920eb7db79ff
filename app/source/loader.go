package source

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one source as written in a YAML seed file. The file name
// (without .yml) becomes the source id.
type Definition struct {
	ID         string            `yaml:"-"`
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	URL        string            `yaml:"url"`
	Cron       string            `yaml:"cron"`
	Enabled    *bool             `yaml:"enabled"`
	Headers    map[string]string `yaml:"headers"`
	Mapping    Mapping           `yaml:"mapping"`
	Categories []string          `yaml:"categories"`
	Visibility struct {
		Scope    string   `yaml:"scope"`
		GroupIDs []string `yaml:"group_ids"`
	} `yaml:"visibility"`
}

// Config converts the definition into a pipeline config. Category ids are
// left empty; callers resolve Categories (slugs) against the store.
func (d *Definition) Config() (Config, error) {
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return Config{}, err
	}

	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}

	return Config{
		ID:                 d.ID,
		Name:               cmp.Or(d.Name, d.ID),
		Kind:               kind,
		URL:                d.URL,
		Headers:            d.Headers,
		Mapping:            d.Mapping,
		Enabled:            enabled,
		Cron:               cmp.Or(strings.TrimSpace(d.Cron), DefaultCron),
		VisibilityScope:    cmp.Or(d.Visibility.Scope, VisibilityPublic),
		VisibilityGroupIDs: d.Visibility.GroupIDs,
	}, nil
}

// LoadDir reads every *.yml file in dir. A missing directory yields no
// definitions.
func LoadDir(dir string) ([]*Definition, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	sort.Strings(files)

	defs := make([]*Definition, 0, len(files))
	for _, file := range files {
		def, err := LoadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source definition loaded", "source", def.ID, "kind", def.Kind, "cron", def.Cron)
		defs = append(defs, def)
	}

	return defs, nil
}

func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	def.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if err := validate(&def); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", path, err)
	}

	return &def, nil
}

func validate(def *Definition) error {
	required := map[string]string{
		"source id":   def.ID,
		"source URL":  def.URL,
		"source kind": def.Kind,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	if _, err := ParseKind(def.Kind); err != nil {
		return err
	}

	switch def.Visibility.Scope {
	case "", VisibilityPublic:
	case VisibilityGroups:
		if len(def.Visibility.GroupIDs) == 0 {
			return fmt.Errorf("visibility scope %q needs at least one group id", VisibilityGroups)
		}
	default:
		return fmt.Errorf("invalid visibility scope %q", def.Visibility.Scope)
	}

	return nil
}
