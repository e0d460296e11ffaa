package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/remiblancher/ocspext/profiles"
)

// LoadProfileFromFile loads a profile from a YAML file.
func LoadProfileFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	return LoadProfileFromBytes(data)
}

// LoadProfileFromBytes loads a profile from YAML bytes.
// Unknown keys are rejected so that misspelled options do not go unnoticed.
func LoadProfileFromBytes(data []byte) (*Profile, error) {
	var py profileYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&py); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidProfile)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p, err := profileYAMLToProfile(&py)
	if err != nil {
		return nil, NewProfileError(py.Name, err)
	}
	return p, nil
}

// BuiltinProfiles returns the profiles compiled into the binary, keyed by name.
func BuiltinProfiles() (map[string]*Profile, error) {
	result := make(map[string]*Profile)

	err := fs.WalkDir(profiles.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}

		data, err := profiles.FS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		p, err := LoadProfileFromBytes(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		result[p.Name] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load builtin profiles: %w", err)
	}

	return result, nil
}

// ListBuiltinProfileNames returns the sorted names of all builtin profiles.
func ListBuiltinProfileNames() ([]string, error) {
	builtin, err := BuiltinProfiles()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetBuiltinProfile returns a specific builtin profile by name.
func GetBuiltinProfile(name string) (*Profile, error) {
	builtin, err := BuiltinProfiles()
	if err != nil {
		return nil, err
	}

	p, ok := builtin[name]
	if !ok {
		return nil, NewProfileError(name, ErrProfileNotFound)
	}
	return p, nil
}

// LoadProfile loads a profile by name or file path.
// File paths are detected by:
//   - Starting with "/" (absolute path)
//   - Starting with "." (relative path like ./profile.yaml)
//   - Ending with ".yaml" or ".yml"
//
// Otherwise, it's treated as a builtin profile name (e.g., "client").
func LoadProfile(nameOrPath string) (*Profile, error) {
	if strings.HasPrefix(nameOrPath, "/") ||
		strings.HasPrefix(nameOrPath, ".") ||
		isYAML(nameOrPath) {
		return LoadProfileFromFile(nameOrPath)
	}
	return GetBuiltinProfile(nameOrPath)
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
