package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadHeaderMap reads a header-map override from a YAML file of the form
//
//	Raw Column Name: CANONICAL_FIELD
//
// Every mapped target must be a member of the canonical schema.
func LoadHeaderMap(path string) (HeaderMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading header map: %w", err)
	}
	return ParseHeaderMap(data)
}

// ParseHeaderMap parses YAML header-map bytes and validates the targets.
func ParseHeaderMap(data []byte) (HeaderMap, error) {
	var m HeaderMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing header map: %w", err)
	}
	for raw, field := range m {
		if field == "" {
			delete(m, raw)
			continue
		}
		canonical, ok := Normalize(field)
		if !ok {
			return nil, fmt.Errorf("header map: %q maps to unknown field %q", raw, field)
		}
		m[raw] = canonical
	}
	return m, nil
}
