package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// ExpandURLTemplate substitutes {name} placeholders in a URL template with the
// provided values. Values are query-escaped. Missing placeholders produce an
// error so malformed tool declarations fail fast.
func ExpandURLTemplate(template string, values map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return url.QueryEscape(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("url template: missing values for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// TemplateParams returns the placeholder names present in a URL template, in
// order of first appearance.
func TemplateParams(template string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
