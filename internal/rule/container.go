package rule

// AndRule matches when all child rules match. An empty container matches.
type AndRule struct {
	Rules []Rule
}

// Name identifies the rule variant.
func (AndRule) Name() string { return "andContainer" }

// Match evaluates all children against the scope.
func (r AndRule) Match(scope Scope) bool {
	for _, child := range r.Rules {
		if !child.Match(scope) {
			return false
		}
	}
	return true
}

// Constraints describes the configuration schema.
func (AndRule) Constraints() map[string][]string {
	return map[string][]string{"rules": {"container"}}
}

// OrRule matches when any child rule matches. An empty container does not.
type OrRule struct {
	Rules []Rule
}

// Name identifies the rule variant.
func (OrRule) Name() string { return "orContainer" }

// Match evaluates children until one matches.
func (r OrRule) Match(scope Scope) bool {
	for _, child := range r.Rules {
		if child.Match(scope) {
			return true
		}
	}
	return false
}

// Constraints describes the configuration schema.
func (OrRule) Constraints() map[string][]string {
	return map[string][]string{"rules": {"container"}}
}
