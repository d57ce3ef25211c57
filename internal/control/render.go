package control

import "regexp"

var paramPattern = regexp.MustCompile(`\{(\w+)\}`)

// SemanticCommand is a named, parameterized shell command template.
type SemanticCommand struct {
	Label    string `yaml:"label" json:"label"`
	Template string `yaml:"template" json:"template"`
}

// ExtractParams returns the distinct {name} placeholders in template, in
// first-occurrence order.
func ExtractParams(template string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range paramPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Render substitutes every {name} in template with params[name]. A
// placeholder with no matching key is left verbatim rather than silently
// dropped or guessed at.
func Render(template string, params map[string]string) string {
	return paramPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := params[name]; ok {
			return v
		}
		return match
	})
}

// MissingParams reports which of a template's placeholders are absent
// from params, so a caller can reject a command before rendering it
// instead of emitting a raw, un-substituted placeholder.
func MissingParams(template string, params map[string]string) []string {
	var missing []string
	for _, name := range ExtractParams(template) {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
