package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFileMode parses "0775", "775" or "0o775" as an octal permission set.
func ParseFileMode(s string) (FileMode, error) {
	ss := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0o"), "0O")
	if ss == "" {
		return 0, fmt.Errorf("empty file mode")
	}
	u, err := strconv.ParseUint(ss, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal file mode %q", s)
	}
	if u > 0o777 {
		return 0, fmt.Errorf("file mode %q has bits outside 0777", s)
	}
	return FileMode(u), nil
}

func (m FileMode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// UnmarshalYAML accepts the octal string form. A bare YAML integer such as
// 0775 is also accepted and read by its digits, so it means the same thing.
func (m *FileMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: file mode must be a scalar", value.Line)
	}
	parsed, err := ParseFileMode(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = parsed
	return nil
}

// MarshalYAML writes the mode as a quoted octal string.
func (m FileMode) MarshalYAML() (any, error) {
	return m.String(), nil
}
