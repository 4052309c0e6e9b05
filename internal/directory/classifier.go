package directory

import (
	"fmt"
	"strings"

	"dealflow/internal/crm"
)

// RoleClassifier answers whether a user holds a role. Classification is a
// pure membership/pattern test against configured data; no role state is
// stored in the CRM itself.
//
// The matching strategy is a configuration point. Three strategies exist:
// exact email-set membership, email substring matching, and display-name
// membership.
type RoleClassifier interface {
	// Matches reports whether the user holds the classifier's role.
	Matches(user crm.User) bool

	// Describe returns a short human-readable summary of the strategy and
	// its configured data, for startup logging and the check command.
	Describe() string
}

// ClassifierStrategy selects how a role's membership is decided.
type ClassifierStrategy string

const (
	// StrategyEmailSet matches users whose email is in a configured set.
	StrategyEmailSet ClassifierStrategy = "email-set"

	// StrategyEmailPattern matches users whose email contains a configured
	// substring.
	StrategyEmailPattern ClassifierStrategy = "email-pattern"

	// StrategyDisplayName matches users whose display name is in a
	// configured set.
	StrategyDisplayName ClassifierStrategy = "display-name"
)

// NewClassifier builds a RoleClassifier for the given strategy. The values
// slice carries emails, a single substring pattern, or display names
// depending on the strategy.
func NewClassifier(strategy ClassifierStrategy, values []string) (RoleClassifier, error) {
	switch strategy {
	case StrategyEmailSet, "":
		if len(values) == 0 {
			return nil, fmt.Errorf("directory: email-set classifier needs at least one email")
		}
		return newEmailSetClassifier(values), nil
	case StrategyEmailPattern:
		if len(values) != 1 || strings.TrimSpace(values[0]) == "" {
			return nil, fmt.Errorf("directory: email-pattern classifier needs exactly one pattern")
		}
		return &emailPatternClassifier{pattern: strings.ToLower(strings.TrimSpace(values[0]))}, nil
	case StrategyDisplayName:
		if len(values) == 0 {
			return nil, fmt.Errorf("directory: display-name classifier needs at least one name")
		}
		return newDisplayNameClassifier(values), nil
	default:
		return nil, fmt.Errorf("directory: unknown classifier strategy: %s", strategy)
	}
}

type emailSetClassifier struct {
	emails map[string]struct{}
}

func newEmailSetClassifier(emails []string) *emailSetClassifier {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		set[email] = struct{}{}
	}
	return &emailSetClassifier{emails: set}
}

func (c *emailSetClassifier) Matches(user crm.User) bool {
	_, ok := c.emails[strings.ToLower(strings.TrimSpace(user.Email))]
	return ok
}

func (c *emailSetClassifier) Describe() string {
	return fmt.Sprintf("email-set (%d emails)", len(c.emails))
}

type emailPatternClassifier struct {
	pattern string
}

func (c *emailPatternClassifier) Matches(user crm.User) bool {
	return strings.Contains(strings.ToLower(user.Email), c.pattern)
}

func (c *emailPatternClassifier) Describe() string {
	return fmt.Sprintf("email-pattern (%q)", c.pattern)
}

type displayNameClassifier struct {
	names map[string]struct{}
}

func newDisplayNameClassifier(names []string) *displayNameClassifier {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return &displayNameClassifier{names: set}
}

func (c *displayNameClassifier) Matches(user crm.User) bool {
	_, ok := c.names[strings.ToLower(strings.TrimSpace(user.Name))]
	return ok
}

func (c *displayNameClassifier) Describe() string {
	return fmt.Sprintf("display-name (%d names)", len(c.names))
}
