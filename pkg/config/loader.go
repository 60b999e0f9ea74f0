package config

import (
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// LoadNamespaceDefaults reads an optional YAML overrides file at path,
// expands ${VAR}/$VAR references, and merges it onto the built-in
// defaults with mergo (file values win over built-ins, zero-value fields
// in the file are left at their built-in value). A missing file is not an
// error — the built-in defaults are returned unchanged.
func LoadNamespaceDefaults(path string) (NamespaceDefaults, error) {
	base := DefaultNamespaceDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var override NamespaceDefaults
	if err := yaml.Unmarshal(data, &override); err != nil {
		return base, NewLoadError(path, ErrInvalidYAML)
	}

	if err := mergo.Merge(&base, override, mergo.WithOverride); err != nil {
		return base, NewLoadError(path, err)
	}
	return base, nil
}
