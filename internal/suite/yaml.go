package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a custom suite.
//
//	name: smoke
//	mode: tool
//	cases:
//	  - name: "M1: Multiply"
//	    prompt: "Calculate 6 * 7"
//	    expects_tool: true
//	    validator:
//	      any:
//	        - word: "42"
//	        - contains: ["forty-two", "forty two"]
//	          ignore_case: true
type File struct {
	Name  string     `yaml:"name"`
	Mode  Mode       `yaml:"mode"`
	Cases []CaseSpec `yaml:"cases"`
}

// CaseSpec is one case of a YAML suite.
type CaseSpec struct {
	Name        string        `yaml:"name"`
	Prompt      string        `yaml:"prompt"`
	ExpectsTool bool          `yaml:"expects_tool"`
	Steps       []string      `yaml:"steps"`
	Validator   ValidatorSpec `yaml:"validator"`
}

// ValidatorSpec declares a validator. Every field set must hold.
type ValidatorSpec struct {
	Contains    stringList      `yaml:"contains"`
	ContainsAll stringList      `yaml:"contains_all"`
	IgnoreCase  bool            `yaml:"ignore_case"`
	Regex       string          `yaml:"regex"`
	Word        string          `yaml:"word"`
	Equals      string          `yaml:"equals"`
	Prefix      stringList      `yaml:"prefix"`
	MinLength   int             `yaml:"min_length"`
	NotToolCall bool            `yaml:"not_tool_call"`
	Any         []ValidatorSpec `yaml:"any"`
	All         []ValidatorSpec `yaml:"all"`
	Not         *ValidatorSpec  `yaml:"not"`
}

// stringList accepts a scalar or a sequence.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: want a string or a list of strings", value.Line)
	}
}

// LoadFile reads a YAML suite. A mode missing from the file is taken from
// fallback.
func LoadFile(path string, fallback Mode) (Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read suite %s: %w", path, err)
	}
	s, err := Parse(raw, fallback)
	if err != nil {
		return Suite{}, fmt.Errorf("suite %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML suite.
func Parse(raw []byte, fallback Mode) (Suite, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Suite{}, fmt.Errorf("decode yaml: %w", err)
	}
	mode := f.Mode
	if mode == "" {
		mode = fallback
	}
	if _, err := ParseMode(string(mode)); err != nil || mode == "all" {
		return Suite{}, fmt.Errorf("invalid mode %q", mode)
	}

	s := Suite{Name: f.Name, Mode: mode, Cases: make([]Case, 0, len(f.Cases))}
	if s.Name == "" {
		s.Name = string(mode)
	}
	for i, cs := range f.Cases {
		v, err := cs.Validator.Build()
		if err != nil {
			return Suite{}, fmt.Errorf("case %d (%s): %w", i+1, cs.Name, err)
		}
		s.Cases = append(s.Cases, Case{
			Name:        cs.Name,
			Prompt:      cs.Prompt,
			Validator:   v,
			ExpectsTool: cs.ExpectsTool,
			Steps:       cs.Steps,
		})
	}
	return s, s.Validate()
}

// Build compiles the declaration into a Validator.
func (s ValidatorSpec) Build() (Validator, error) {
	contains := Contains
	if s.IgnoreCase {
		contains = ContainsFold
	}
	var parts []Validator
	if len(s.Contains) > 0 {
		parts = append(parts, contains(s.Contains...))
	}
	for _, sub := range s.ContainsAll {
		parts = append(parts, contains(sub))
	}
	if s.Regex != "" {
		re, err := regexp.Compile(s.Regex)
		if err != nil {
			return nil, fmt.Errorf("regex: %w", err)
		}
		parts = append(parts, re.MatchString)
	}
	if s.Word != "" {
		parts = append(parts, Word(s.Word))
	}
	if s.Equals != "" {
		want := s.Equals
		parts = append(parts, func(text string) bool {
			text = strings.TrimSpace(text)
			if s.IgnoreCase {
				return strings.EqualFold(text, want)
			}
			return text == want
		})
	}
	if len(s.Prefix) > 0 {
		parts = append(parts, HasPrefix(s.Prefix...))
	}
	if s.MinLength > 0 {
		n := s.MinLength
		parts = append(parts, func(text string) bool { return len(text) >= n })
	}
	if s.NotToolCall {
		parts = append(parts, NotToolCall())
	}
	if len(s.Any) > 0 {
		vs, err := buildAll(s.Any)
		if err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
		parts = append(parts, Any(vs...))
	}
	if len(s.All) > 0 {
		vs, err := buildAll(s.All)
		if err != nil {
			return nil, fmt.Errorf("all: %w", err)
		}
		parts = append(parts, All(vs...))
	}
	if s.Not != nil {
		v, err := s.Not.Build()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		parts = append(parts, Not(v))
	}

	switch len(parts) {
	case 0:
		return nil, errors.New("validator declares no checks")
	case 1:
		return parts[0], nil
	default:
		return All(parts...), nil
	}
}

func buildAll(specs []ValidatorSpec) ([]Validator, error) {
	out := make([]Validator, 0, len(specs))
	for _, spec := range specs {
		v, err := spec.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
