package compat

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/valvemist/machinecompat/scalar"
	"github.com/valvemist/machinecompat/snapshot"
	"gopkg.in/yaml.v3"
)

//go:embed data/tables.yaml
var defaultTablesYAML []byte

// Field comparison policies.
type Policy string

const (
	PolicyEqual Policy = "equal"
	PolicyGE    Policy = "ge"
	PolicySkip  Policy = "skip"
	PolicyFunc  Policy = "func"
	PolicyNull  Policy = "null"
)

type propKey struct {
	driver, property string
}

// OmittedField says what a field missing from an older build is worth.
type OmittedField struct {
	SameAs string
	Value  scalar.Value
}

// FieldFixup is a known non-issue for one field on matching machine types.
type FieldFixup struct {
	Field   string
	Machine string
	Skip    bool
	From    scalar.Value
	To      scalar.Value
}

// Tables is the read-only knowledge the checker is parameterised over.
type Tables struct {
	enums      map[string]map[string]bool
	coercions  map[string]map[string]string
	historical []snapshot.CompatOverride
	fixups     map[propKey]string
	policies   map[string]Policy
	omitted    map[string]OmittedField
	fieldFixes []FieldFixup
}

type tablesFile struct {
	Enums              map[string][]string          `yaml:"enums"`
	EnumCoercions      map[string]map[string]string `yaml:"enum_coercions"`
	HistoricalDefaults []struct {
		Driver   string `yaml:"driver"`
		Property string `yaml:"property"`
		Value    any    `yaml:"value"`
	} `yaml:"historical_defaults"`
	ValueFixups []struct {
		Driver   string `yaml:"driver"`
		Property string `yaml:"property"`
		Rule     string `yaml:"rule"`
	} `yaml:"value_fixups"`
	FieldPolicies map[string]Policy `yaml:"field_policies"`
	OmittedFields []struct {
		Field  string `yaml:"field"`
		SameAs string `yaml:"same_as"`
		Value  any    `yaml:"value"`
	} `yaml:"omitted_fields"`
	FieldFixups []struct {
		Field   string `yaml:"field"`
		Machine string `yaml:"machine"`
		Skip    bool   `yaml:"skip"`
		From    any    `yaml:"from"`
		To      any    `yaml:"to"`
	} `yaml:"field_fixups"`
}

var defaultTables = sync.OnceValues(func() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
})

// DefaultTables returns the tables shipped with the package.
func DefaultTables() *Tables {
	t, err := defaultTables()
	if err != nil {
		panic(fmt.Sprintf("embedded tables: %v", err))
	}
	return t
}

// LoadTables reads tables from a YAML file.
func LoadTables(file string) (*Tables, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	t, err := ParseTables(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return t, nil
}

// ParseTables decodes and validates a YAML tables document.
func ParseTables(data []byte) (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	t := &Tables{
		enums:     map[string]map[string]bool{},
		coercions: f.EnumCoercions,
		fixups:    map[propKey]string{},
		policies:  map[string]Policy{},
		omitted:   map[string]OmittedField{},
	}
	if t.coercions == nil {
		t.coercions = map[string]map[string]string{}
	}
	for name, members := range f.Enums {
		set := make(map[string]bool, len(members))
		for _, m := range members {
			set[m] = true
		}
		t.enums[name] = set
	}
	for enum, m := range t.coercions {
		for _, member := range m {
			if !t.enums[enum][member] {
				return nil, fmt.Errorf("enum coercion %s: %q is not a member", enum, member)
			}
		}
	}
	for _, h := range f.HistoricalDefaults {
		v, err := yamlScalar(h.Value)
		if err != nil {
			return nil, fmt.Errorf("historical default %s.%s: %w", h.Driver, h.Property, err)
		}
		t.historical = append(t.historical, snapshot.CompatOverride{Driver: h.Driver, Property: h.Property, Value: v})
	}
	for _, fx := range f.ValueFixups {
		if _, ok := fixupRules[fx.Rule]; !ok {
			return nil, fmt.Errorf("value fixup %s.%s: unknown rule %q", fx.Driver, fx.Property, fx.Rule)
		}
		t.fixups[propKey{fx.Driver, fx.Property}] = fx.Rule
	}
	for field, p := range f.FieldPolicies {
		switch p {
		case PolicyEqual, PolicyGE, PolicySkip, PolicyFunc, PolicyNull:
		default:
			return nil, fmt.Errorf("field %s: unknown policy %q", field, p)
		}
		t.policies[field] = p
	}
	for _, o := range f.OmittedFields {
		of := OmittedField{SameAs: o.SameAs}
		if o.SameAs == "" {
			v, err := yamlScalar(o.Value)
			if err != nil {
				return nil, fmt.Errorf("omitted field %s: %w", o.Field, err)
			}
			of.Value = v
		}
		t.omitted[o.Field] = of
	}
	for _, fx := range f.FieldFixups {
		if _, err := path.Match(fx.Machine, ""); err != nil {
			return nil, fmt.Errorf("field fixup %s: bad machine pattern %q", fx.Field, fx.Machine)
		}
		ff := FieldFixup{Field: fx.Field, Machine: fx.Machine, Skip: fx.Skip}
		if !fx.Skip {
			var err error
			if ff.From, err = yamlScalar(fx.From); err != nil {
				return nil, fmt.Errorf("field fixup %s: %w", fx.Field, err)
			}
			if ff.To, err = yamlScalar(fx.To); err != nil {
				return nil, fmt.Errorf("field fixup %s: %w", fx.Field, err)
			}
		}
		t.fieldFixes = append(t.fieldFixes, ff)
	}
	return t, nil
}

func yamlScalar(v any) (scalar.Value, error) {
	switch x := v.(type) {
	case nil:
		return scalar.Null(), nil
	case bool:
		return scalar.Bool(x), nil
	case int:
		return scalar.Int(int64(x)), nil
	case int64:
		return scalar.Int(x), nil
	case uint64:
		return scalar.Int(int64(x)), nil
	case string:
		return scalar.Str(x), nil
	}
	return scalar.Unknown, fmt.Errorf("unsupported value %v (%T)", v, v)
}

// Historical expands the historical-default table across a snapshot's
// hierarchy.
func (t *Tables) Historical(h snapshot.Hierarchy) EffectiveMap {
	m := EffectiveMap{}
	for _, o := range t.historical {
		for _, sub := range h.Subtypes(o.Driver) {
			m.set(sub, o.Property, o.Value)
		}
	}
	return m
}

// FieldPolicy returns the comparison policy for a machine field.
func (t *Tables) FieldPolicy(field string) Policy {
	if p, ok := t.policies[field]; ok {
		return p
	}
	return PolicyEqual
}

// Omitted returns the substitute for a field an older build lacks.
func (t *Tables) Omitted(field string) (OmittedField, bool) {
	o, ok := t.omitted[field]
	return o, ok
}

// FieldFixups returns the fixups for field whose pattern matches machine.
func (t *Tables) FieldFixups(field, machine string) []FieldFixup {
	var out []FieldFixup
	for _, fx := range t.fieldFixes {
		if fx.Field != field {
			continue
		}
		if ok, _ := path.Match(fx.Machine, machine); ok {
			out = append(out, fx)
		}
	}
	return out
}
