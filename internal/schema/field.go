// Package schema defines the canonical product-catalog fields and the
// providers that supply them to the import pipeline.
package schema

import "fmt"

// NormalizationFlag selects an alternate normalization rule for a field's
// aliases. Fields whose aliases collide under the default rule carry a flag.
type NormalizationFlag string

const (
	// FlagStrictAlnum strips every non-alphanumeric character, then lowercases.
	FlagStrictAlnum NormalizationFlag = "-HU"

	// FlagSeparatorsOnly lowercases, then strips only separators (- _ whitespace).
	FlagSeparatorsOnly NormalizationFlag = "-U"
)

// Guidance is operator-facing help shown when an essential header is missing.
type Guidance struct {
	Description string `json:"description" yaml:"description"`
	Solution    string `json:"solution" yaml:"solution"`
}

// Field is one canonical destination field.
type Field struct {
	Name      string              `json:"name" yaml:"name"`
	Aliases   []string            `json:"aliases,omitempty" yaml:"aliases"`
	Flags     []NormalizationFlag `json:"flags,omitempty" yaml:"flags"`
	Essential bool                `json:"essential" yaml:"essential"`
	Guidance  *Guidance           `json:"guidance,omitempty" yaml:"guidance"`
}

// HasFlag reports whether the field carries the given flag.
func (f Field) HasFlag(flag NormalizationFlag) bool {
	for _, fl := range f.Flags {
		if fl == flag {
			return true
		}
	}
	return false
}

// MissingGuidance returns the field's guidance, or the default text when the
// schema does not define one.
func (f Field) MissingGuidance() Guidance {
	if f.Guidance != nil && f.Guidance.Description != "" {
		g := *f.Guidance
		if g.Solution == "" {
			g.Solution = defaultSolution(f.Name)
		}
		return g
	}
	return Guidance{
		Description: fmt.Sprintf("The '%s' field is required but was not found in your CSV", f.Name),
		Solution:    defaultSolution(f.Name),
	}
}

func defaultSolution(name string) string {
	return fmt.Sprintf("Add a column named '%s' to your CSV file with appropriate values", name)
}

// Validate checks a field list for problems that would make header mapping
// meaningless: no fields, unnamed fields, duplicate names, unknown flags.
func Validate(fields []Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("schema field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema field %q is defined twice", f.Name)
		}
		seen[f.Name] = true
		for _, fl := range f.Flags {
			if fl != FlagStrictAlnum && fl != FlagSeparatorsOnly {
				return fmt.Errorf("schema field %q has unknown flag %q", f.Name, fl)
			}
		}
	}
	return nil
}

// EssentialNames returns the names of essential fields in schema order.
func EssentialNames(fields []Field) []string {
	var names []string
	for _, f := range fields {
		if f.Essential {
			names = append(names, f.Name)
		}
	}
	return names
}
