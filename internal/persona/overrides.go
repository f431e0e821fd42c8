package persona

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstructionsFile is the on-disk shape of persona instruction overrides:
//
//	personas:
//	  QuantAgent:
//	    instructions: |
//	      ...
type InstructionsFile struct {
	Personas map[string]InstructionOverride `yaml:"personas"`
}

type InstructionOverride struct {
	Instructions string `yaml:"instructions"`
}

// LoadInstructions reads an override file and resolves persona names.
func LoadInstructions(path string) (map[ID]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona instructions failed: %w", err)
	}
	return ParseInstructions(raw)
}

func ParseInstructions(raw []byte) (map[ID]string, error) {
	var file InstructionsFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse persona instructions failed: %w", err)
	}
	out := make(map[ID]string, len(file.Personas))
	for name, ov := range file.Personas {
		id, ok := ParseID(name)
		if !ok {
			return nil, fmt.Errorf("persona instructions: unknown persona %q", name)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("persona instructions: %s configured twice", id.Name())
		}
		out[id] = strings.TrimSpace(ov.Instructions)
	}
	return out, nil
}

// Load returns the default set, overlaid with the file at path when set.
func Load(path string) (Set, error) {
	set := Default()
	if strings.TrimSpace(path) == "" {
		return set, nil
	}
	overrides, err := LoadInstructions(path)
	if err != nil {
		return Set{}, err
	}
	return set.WithInstructions(overrides), nil
}
