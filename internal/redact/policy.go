// Package redact masks personally identifying and payment values before
// telemetry leaves the process.
//
// A Policy is an immutable table of field-name patterns. Each pattern carries
// the number of trailing characters to hide. The same Policy is shared by the
// span and log hooks and is safe for concurrent use.
package redact

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
)

// PolicyVersion identifies the built-in rule table.
const PolicyVersion = "2024-10-01"

// Rule masks up to MaskChars trailing characters of any field whose name
// contains Pattern (case-insensitive).
type Rule struct {
	Pattern   string `yaml:"pattern"`
	MaskChars int    `yaml:"mask"`
}

// DefaultRules is the built-in sensitivity table.
var DefaultRules = []Rule{
	{Pattern: "userId", MaskChars: 33},
	{Pattern: "buyerId", MaskChars: 33},
	{Pattern: "subjectId", MaskChars: 33},
	{Pattern: "BuyerIdentityGuid", MaskChars: 33},
	{Pattern: "userName", MaskChars: 128},
	{Pattern: "buyerName", MaskChars: 128},
	{Pattern: "CardNumber", MaskChars: 13},
	{Pattern: "CardHolderName", MaskChars: 128},
}

// Policy is a read-only set of rules in precedence order.
type Policy struct {
	version string
	rules   []Rule
	folded  []string // lower-cased patterns, same index as rules

	// nameOnly is set when every pattern is made of field-name bytes.
	nameOnly bool
}

// NewPolicy validates rules and orders them longest pattern first, so that
// "BuyerIdentityGuid" wins over "buyerId" for the same field.
func NewPolicy(rules ...Rule) (*Policy, error) {
	return newPolicy(PolicyVersion, rules)
}

func newPolicy(version string, rules []Rule) (*Policy, error) {
	if len(rules) == 0 {
		return nil, errors.New(constants.ErrPolicyEmpty)
	}

	seen := make(map[string]struct{}, len(rules))
	sorted := make([]Rule, 0, len(rules))
	for i, r := range rules {
		pattern := strings.TrimSpace(r.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf(constants.ErrRuleEmptyPattern, i)
		}
		if r.MaskChars < 0 {
			return nil, fmt.Errorf(constants.ErrRuleNegativeMask, pattern, r.MaskChars)
		}
		key := strings.ToLower(pattern)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf(constants.ErrRuleDuplicate, pattern)
		}
		seen[key] = struct{}{}
		sorted = append(sorted, Rule{Pattern: pattern, MaskChars: r.MaskChars})
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i].Pattern) != len(sorted[j].Pattern) {
			return len(sorted[i].Pattern) > len(sorted[j].Pattern)
		}
		return strings.ToLower(sorted[i].Pattern) < strings.ToLower(sorted[j].Pattern)
	})

	folded := make([]string, len(sorted))
	nameOnly := true
	for i, r := range sorted {
		folded[i] = strings.ToLower(r.Pattern)
		nameOnly = nameOnly && allNameBytes(r.Pattern)
	}

	return &Policy{version: version, rules: sorted, folded: folded, nameOnly: nameOnly}, nil
}

// DefaultPolicy returns a Policy built from DefaultRules.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultRules...)
	if err != nil {
		panic(err) // DefaultRules is static
	}
	return p
}

// Version returns the version of the table the policy was built from.
func (p *Policy) Version() string {
	return p.version
}

// Rules returns a copy of the rules in precedence order.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// Lookup returns the highest-precedence rule whose pattern occurs in field.
func (p *Policy) Lookup(field string) (Rule, bool) {
	if p == nil || field == "" {
		return Rule{}, false
	}
	lower := strings.ToLower(field)
	for i, pattern := range p.folded {
		if strings.Contains(lower, pattern) {
			return p.rules[i], true
		}
	}
	return Rule{}, false
}
