package presence

import (
	"fmt"
	"regexp"
	"strings"

	"homeplan/internal/config"
)

// Rule is one absence predicate over an event title.
type Rule interface {
	Match(title string) bool
}

// RuleFunc adapts a plain function into a Rule.
type RuleFunc func(title string) bool

func (f RuleFunc) Match(title string) bool { return f(title) }

type patternRule struct {
	re *regexp.Regexp
}

func (p patternRule) Match(title string) bool { return p.re.MatchString(title) }

// Pattern compiles a case-insensitive regular expression rule matched
// against the whole title.
func Pattern(expr string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, err
	}
	return patternRule{re: re}, nil
}

// Keyword matches a title that is exactly word, ignoring case and
// surrounding space. A bare location name is the usual use.
func Keyword(word string) Rule {
	return RuleFunc(func(title string) bool {
		return strings.EqualFold(strings.TrimSpace(title), word)
	})
}

// Matcher holds the ordered absence rules of every member. A member is away
// for an event when any one of their rules matches; members are evaluated
// independently, so one title can mark several people away.
type Matcher struct {
	order []string
	rules map[string][]Rule
}

func NewMatcher() *Matcher {
	return &Matcher{rules: make(map[string][]Rule)}
}

// MatcherFromConfig compiles the away patterns of every configured member.
func MatcherFromConfig(members []config.MemberConfig) (*Matcher, error) {
	m := NewMatcher()
	for _, mem := range members {
		rules := make([]Rule, 0, len(mem.AwayPatterns))
		for _, expr := range mem.AwayPatterns {
			r, err := Pattern(expr)
			if err != nil {
				return nil, fmt.Errorf("member %s: pattern %q: %w", mem.ID, expr, err)
			}
			rules = append(rules, r)
		}
		m.Add(mem.ID, rules...)
	}
	return m, nil
}

// Add appends rules to a member's list, registering the member on first use.
func (m *Matcher) Add(member string, rules ...Rule) {
	if _, ok := m.rules[member]; !ok {
		m.order = append(m.order, member)
	}
	m.rules[member] = append(m.rules[member], rules...)
}

// Matches reports whether title signals that member is away. Unknown
// members never match.
func (m *Matcher) Matches(member, title string) bool {
	for _, r := range m.rules[member] {
		if r.Match(title) {
			return true
		}
	}
	return false
}

// Members returns every member id that title marks away, in registration order.
func (m *Matcher) Members(title string) []string {
	var out []string
	for _, id := range m.order {
		if m.Matches(id, title) {
			out = append(out, id)
		}
	}
	return out
}
