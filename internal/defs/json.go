package defs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/N8-Wright/otter-sub000/internal/env"
	"github.com/N8-Wright/otter-sub000/internal/kind"
)

// jsonManifest is the on-disk shape of an otter build manifest: one
// BuildConfig plus the definition array of spec.md §4.8. This is the
// one piece of C8 the source program never needed (it built its
// definition array as a literal C array); a Go build driver needs
// some external surface to read a target set from, so this mirrors
// BuildConfig and TargetDefinition field-for-field rather than
// inventing a separate schema.
type jsonManifest struct {
	SrcDir       string           `json:"src_dir"`
	OutDir       string           `json:"out_dir"`
	Suffix       string           `json:"suffix"`
	CCFlags      string           `json:"cc_flags"`
	LLFlags      string           `json:"ll_flags"`
	IncludeFlags string           `json:"include_flags"`
	Targets      []jsonDefinition `json:"targets"`
}

type jsonDefinition struct {
	Name       string   `json:"name"`
	Stem       string   `json:"stem"`
	Kind       string   `json:"kind"`
	Deps       []string `json:"deps"`
	ExtraFlags []string `json:"extra_flags"`
}

// resolveRoot anchors a relative src_dir/out_dir against env.OtterRoot,
// the default otter working directory; an absolute path is returned
// unchanged.
func resolveRoot(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(env.OtterRoot, dir)
}

func parseKind(s string) (kind.Kind, error) {
	switch s {
	case "object":
		return kind.Object, nil
	case "executable":
		return kind.Executable, nil
	case "shared_object":
		return kind.SharedObject, nil
	default:
		return 0, fmt.Errorf("defs: unknown target kind %q", s)
	}
}

// LoadManifest reads a JSON manifest from path and returns the
// BuildConfig and definition list it describes, in file order.
func LoadManifest(path string) (BuildConfig, []TargetDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BuildConfig{}, nil, fmt.Errorf("defs: reading manifest %s: %w", path, err)
	}

	var m jsonManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return BuildConfig{}, nil, fmt.Errorf("defs: parsing manifest %s: %w", path, err)
	}

	config := BuildConfig{
		Paths: Paths{SrcDir: resolveRoot(m.SrcDir), OutDir: resolveRoot(m.OutDir), Suffix: m.Suffix},
		Flags: Flags{CCFlags: m.CCFlags, LLFlags: m.LLFlags, IncludeFlags: m.IncludeFlags},
	}

	definitions := make([]TargetDefinition, 0, len(m.Targets))
	for _, t := range m.Targets {
		k, err := parseKind(t.Kind)
		if err != nil {
			return BuildConfig{}, nil, fmt.Errorf("defs: target %q: %w", t.Name, err)
		}
		definitions = append(definitions, TargetDefinition{
			Name:       t.Name,
			Stem:       t.Stem,
			Kind:       k,
			Deps:       t.Deps,
			ExtraFlags: t.ExtraFlags,
		})
	}

	return config, definitions, nil
}
