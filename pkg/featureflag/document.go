package featureflag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Reasons reported with an evaluation.
const (
	ReasonDisabled       = "DISABLED"
	ReasonTargetingMatch = "TARGETING_MATCH"
	ReasonSplit          = "SPLIT"
	ReasonDefault        = "DEFAULT"
)

const (
	OpEquals    = "eq"
	OpNotEquals = "neq"
	OpIn        = "in"
)

// Document is the flag set served by a Source. The same shape is accepted as
// YAML or JSON.
type Document struct {
	Flags []Flag `yaml:"flags" json:"flags"`

	index map[string]*Flag
}

type Flag struct {
	Key          string      `yaml:"key" json:"key"`
	Enabled      *bool       `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Variations   []Variation `yaml:"variations" json:"variations"`
	Rules        []Rule      `yaml:"rules,omitempty" json:"rules,omitempty"`
	Fallthrough  Serve       `yaml:"fallthrough" json:"fallthrough"`
	OffVariation string      `yaml:"offVariation,omitempty" json:"offVariation,omitempty"`
}

type Variation struct {
	ID    string      `yaml:"id" json:"id"`
	Value interface{} `yaml:"value" json:"value"`
}

type Rule struct {
	Name       string      `yaml:"name,omitempty" json:"name,omitempty"`
	Conditions []Condition `yaml:"conditions" json:"conditions"`
	Serve      Serve       `yaml:"serve" json:"serve"`
}

type Condition struct {
	Attribute string   `yaml:"attribute" json:"attribute"`
	Op        string   `yaml:"op" json:"op"`
	Values    []string `yaml:"values" json:"values"`
}

// Serve names a single variation or a weighted rollout. Rollout weights are
// percentages and must add up to 100.
type Serve struct {
	Variation string              `yaml:"variation,omitempty" json:"variation,omitempty"`
	Rollout   []WeightedVariation `yaml:"rollout,omitempty" json:"rollout,omitempty"`
}

type WeightedVariation struct {
	Variation string `yaml:"variation" json:"variation"`
	Weight    int    `yaml:"weight" json:"weight"`
}

// Evaluation is the outcome of evaluating one flag.
type Evaluation struct {
	Variant string
	Value   interface{}
	Reason  string
}

// ParseDocument decodes and validates a flag document. JSON is valid YAML, so
// both formats go through the same decoder.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flag document: %w", err)
	}
	if err := doc.compile(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) compile() error {
	d.index = make(map[string]*Flag, len(d.Flags))
	var errs []error
	for i := range d.Flags {
		f := &d.Flags[i]
		if f.Key == "" {
			errs = append(errs, fmt.Errorf("flag #%d has no key", i))
			continue
		}
		if _, dup := d.index[f.Key]; dup {
			errs = append(errs, fmt.Errorf("flag %q defined twice", f.Key))
			continue
		}
		if err := f.validate(); err != nil {
			errs = append(errs, fmt.Errorf("flag %q: %w", f.Key, err))
			continue
		}
		d.index[f.Key] = f
	}
	return errors.Join(errs...)
}

// Len reports how many flags the document defines.
func (d *Document) Len() int { return len(d.index) }

func (f *Flag) validate() error {
	if len(f.Variations) == 0 {
		return errors.New("no variations")
	}
	if err := f.validateServe(f.Fallthrough); err != nil {
		return fmt.Errorf("fallthrough: %w", err)
	}
	if f.OffVariation != "" && f.variation(f.OffVariation) == nil {
		return fmt.Errorf("unknown offVariation %q", f.OffVariation)
	}
	for i, r := range f.Rules {
		if err := f.validateServe(r.Serve); err != nil {
			return fmt.Errorf("rule #%d: %w", i, err)
		}
		for _, c := range r.Conditions {
			switch c.Op {
			case OpEquals, OpNotEquals, OpIn:
			default:
				return fmt.Errorf("rule #%d: unknown op %q", i, c.Op)
			}
		}
	}
	return nil
}

func (f *Flag) validateServe(s Serve) error {
	if len(s.Rollout) == 0 {
		if f.variation(s.Variation) == nil {
			return fmt.Errorf("unknown variation %q", s.Variation)
		}
		return nil
	}
	total := 0
	for _, wv := range s.Rollout {
		if f.variation(wv.Variation) == nil {
			return fmt.Errorf("unknown rollout variation %q", wv.Variation)
		}
		if wv.Weight < 0 {
			return fmt.Errorf("negative weight for %q", wv.Variation)
		}
		total += wv.Weight
	}
	if total != 100 {
		return fmt.Errorf("rollout weights add up to %d, want 100", total)
	}
	return nil
}

func (f *Flag) variation(id string) *Variation {
	for i := range f.Variations {
		if f.Variations[i].ID == id {
			return &f.Variations[i]
		}
	}
	return nil
}

func (f *Flag) enabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Evaluate resolves flagKey for the given targeting key and attributes.
func (d *Document) Evaluate(flagKey, targetingKey string, attributes map[string]interface{}) (Evaluation, error) {
	f, ok := d.index[flagKey]
	if !ok {
		return Evaluation{}, fmt.Errorf("%w: %s", ErrFlagNotFound, flagKey)
	}

	if !f.enabled() {
		id := f.OffVariation
		if id == "" {
			id = f.Variations[0].ID
		}
		return f.result(id, ReasonDisabled), nil
	}

	for _, r := range f.Rules {
		if matchesAll(r.Conditions, targetingKey, attributes) {
			id, split := f.pick(r.Serve, targetingKey)
			if split {
				return f.result(id, ReasonSplit), nil
			}
			return f.result(id, ReasonTargetingMatch), nil
		}
	}

	id, split := f.pick(f.Fallthrough, targetingKey)
	if split {
		return f.result(id, ReasonSplit), nil
	}
	return f.result(id, ReasonDefault), nil
}

func (f *Flag) result(id, reason string) Evaluation {
	v := f.variation(id)
	return Evaluation{Variant: v.ID, Value: v.Value, Reason: reason}
}

// pick returns the variation id to serve and whether it came from a rollout.
func (f *Flag) pick(s Serve, targetingKey string) (string, bool) {
	if len(s.Rollout) == 0 {
		return s.Variation, false
	}
	bucket := Bucket(f.Key, targetingKey)
	cumulative := 0
	for _, wv := range s.Rollout {
		cumulative += wv.Weight
		if bucket < cumulative {
			return wv.Variation, true
		}
	}
	return s.Rollout[len(s.Rollout)-1].Variation, true
}

// Bucket maps a flag and targeting key onto [0, 100). The same pair always
// lands in the same bucket.
func Bucket(flagKey, targetingKey string) int {
	return int(xxhash.Sum64String(flagKey+"."+targetingKey) % 100)
}

func matchesAll(conds []Condition, targetingKey string, attributes map[string]interface{}) bool {
	for _, c := range conds {
		if !matches(c, targetingKey, attributes) {
			return false
		}
	}
	return true
}

func matches(c Condition, targetingKey string, attributes map[string]interface{}) bool {
	var actual string
	present := false
	if c.Attribute == TargetingKeyAttribute || c.Attribute == "userId" {
		actual, present = targetingKey, targetingKey != ""
	} else if v, ok := attributes[c.Attribute]; ok && v != nil {
		actual, present = fmt.Sprint(v), true
	}

	switch c.Op {
	case OpNotEquals:
		return !present || !containsFold(c.Values, actual)
	default: // eq, in
		return present && containsFold(c.Values, actual)
	}
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
