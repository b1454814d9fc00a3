// Package rules holds the ordered decision tables used to classify accounts.
//
// Every table is a Cascade: guards are evaluated top to bottom and the first
// match wins. Variants of the rule set are different table configurations,
// never different code paths.
package rules

// DefaultRule names the fallback branch of a cascade.
const DefaultRule = "default"

// Rule pairs a guard with the value it yields.
type Rule[In, Out any] struct {
	Name string
	When func(In) bool
	Then Out
}

// Cascade is an ordered list of rules with a fallback value.
type Cascade[In, Out any] struct {
	name     string
	rules    []Rule[In, Out]
	fallback Out
}

// NewCascade builds a cascade. The fallback is returned when no rule matches,
// which keeps evaluation total.
func NewCascade[In, Out any](name string, fallback Out, rules ...Rule[In, Out]) Cascade[In, Out] {
	rs := make([]Rule[In, Out], 0, len(rules))
	for _, r := range rules {
		if r.When != nil {
			rs = append(rs, r)
		}
	}
	return Cascade[In, Out]{name: name, rules: rs, fallback: fallback}
}

// Evaluate returns the value of the first matching rule and its name.
func (c Cascade[In, Out]) Evaluate(in In) (Out, string) {
	for _, r := range c.rules {
		if r.When(in) {
			return r.Then, r.Name
		}
	}
	return c.fallback, DefaultRule
}

// Name returns the table name.
func (c Cascade[In, Out]) Name() string { return c.name }

// RuleNames lists the rule names in evaluation order, fallback last.
func (c Cascade[In, Out]) RuleNames() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return append(names, DefaultRule)
}

// Fallback returns the value used when nothing matches.
func (c Cascade[In, Out]) Fallback() Out { return c.fallback }
