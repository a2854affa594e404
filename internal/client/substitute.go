package client

import (
	"fmt"
	"regexp"
)

var (
	variablePattern    = regexp.MustCompile(`\$(\w+)`)
	placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)
)

// substituteVariables rewrites every $name token to a {name}
// placeholder, then fills each placeholder from the variable map. A
// placeholder with no matching variable aborts the whole substitution.
func substituteVariables(queryText string, variables map[string]string) (string, error) {
	withPlaceholders := variablePattern.ReplaceAllString(queryText, "{$1}")

	var missing string
	filled := placeholderPattern.ReplaceAllStringFunc(withPlaceholders, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := variables[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("missing query variable %q", missing)
	}
	return filled, nil
}
