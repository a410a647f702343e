package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyFile permission matrix 的 YAML 表示
//
//	roles:
//	  secretary: [dashboard, people, letters]
//	  treasurer: [dashboard, finance, waste-bank]
type PolicyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// ParsePolicy decodes a YAML policy document. Roles missing from the document keep their
// default grants, so a file only needs to list the roles it overrides.
func ParsePolicy(data []byte) (*Matrix, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}

	table := DefaultMatrix().Table()
	for rawRole, rawFeatures := range pf.Roles {
		role, ok := ParseRole(rawRole)
		if !ok {
			return nil, fmt.Errorf("policy: unknown role %q", rawRole)
		}
		if role.IsElevated() {
			return nil, fmt.Errorf("policy: role %q bypasses the matrix and cannot be configured", rawRole)
		}
		features := make([]Feature, 0, len(rawFeatures))
		for _, rf := range rawFeatures {
			f, ok := ParseFeature(rf)
			if !ok {
				return nil, fmt.Errorf("policy: role %q: unknown feature %q", rawRole, rf)
			}
			features = append(features, f)
		}
		table[role] = features
	}

	m := NewMatrix(table)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadPolicy 从文件加载权限矩阵；path 为空时使用默认矩阵
func LoadPolicy(path string) (*Matrix, error) {
	if path == "" {
		return DefaultMatrix(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return ParsePolicy(data)
}
