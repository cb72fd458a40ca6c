package dsl

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest: описание сущностей, поставляемое плагином в YAML
type Manifest struct {
	Module   string           `yaml:"module"`
	Entities []ManifestEntity `yaml:"entities"`
}

type ManifestEntity struct {
	Name         string          `yaml:"name"`
	Versioned    bool            `yaml:"versioned,omitempty"`
	VersionOwner string          `yaml:"version_owner,omitempty"`
	Fields       []ManifestField `yaml:"fields"`
	Unique       [][]string      `yaml:"unique,omitempty"`
}

type ManifestField struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"` // тот же синтаксис, что в DSL: many[category], ref[x], enum[a,b]
	Options map[string]string `yaml:"options,omitempty"`
}

// LoadManifest читает YAML-манифест плагина
func LoadManifest(path string) ([]*Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ents, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		e.Source = path
	}
	return ents, nil
}

func ParseManifest(data []byte) ([]*Entity, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(m.Entities))
	for _, me := range m.Entities {
		name := strings.TrimSpace(me.Name)
		if name == "" {
			return nil, fmt.Errorf("manifest entity without name (module %q)", m.Module)
		}
		e := &Entity{
			Name:         name,
			Module:       strings.TrimSpace(m.Module),
			Versioned:    me.Versioned,
			VersionOwner: strings.TrimSpace(me.VersionOwner),
		}
		for _, mf := range me.Fields {
			f := Field{Name: strings.TrimSpace(mf.Name), Options: map[string]string{}}
			for k, v := range mf.Options {
				f.Options[strings.ToLower(k)] = v
			}
			applyType(&f, strings.TrimSpace(mf.Type))
			e.Fields = append(e.Fields, f)
		}
		for _, set := range me.Unique {
			if len(set) > 0 {
				e.Constraints.Unique = append(e.Constraints.Unique, append([]string(nil), set...))
			}
		}
		out = append(out, e)
	}
	return out, nil
}
