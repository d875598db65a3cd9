package featureflag

import (
	"maps"
	"sort"
)

// TargetingKeyAttribute is the attribute name rules use to match on the user id.
const TargetingKeyAttribute = "targetingKey"

// EvaluationContext identifies who a flag is evaluated for. Values are
// immutable: With returns a copy and never touches the receiver.
type EvaluationContext struct {
	userID     string
	attributes map[string]string
}

func NewEvaluationContext(userID string, attributes map[string]string) EvaluationContext {
	return EvaluationContext{userID: userID, attributes: maps.Clone(attributes)}
}

func (c EvaluationContext) UserID() string { return c.userID }

func (c EvaluationContext) Attribute(key string) (string, bool) {
	v, ok := c.attributes[key]
	return v, ok
}

// Attributes returns a copy of the attribute map.
func (c EvaluationContext) Attributes() map[string]string {
	out := make(map[string]string, len(c.attributes))
	maps.Copy(out, c.attributes)
	return out
}

// With returns a new context carrying key=value in addition to the receiver's attributes.
func (c EvaluationContext) With(key, value string) EvaluationContext {
	attrs := c.Attributes()
	attrs[key] = value
	return EvaluationContext{userID: c.userID, attributes: attrs}
}

// Equal reports attribute equality.
func (c EvaluationContext) Equal(other EvaluationContext) bool {
	return c.userID == other.userID && maps.Equal(c.attributes, other.attributes)
}

// Keys returns the attribute names in sorted order.
func (c EvaluationContext) Keys() []string {
	keys := make([]string, 0, len(c.attributes))
	for k := range c.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c EvaluationContext) toMap() map[string]interface{} {
	out := make(map[string]interface{}, len(c.attributes))
	for k, v := range c.attributes {
		out[k] = v
	}
	return out
}
