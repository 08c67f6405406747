package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ShellEnvPrefix prefixes the variables exported to shell commands.
const ShellEnvPrefix = "MONORELEASE_"

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate replaces ${key} placeholders with values from vars. Unknown
// placeholders are left intact so shell variables survive.
func Interpolate(s string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}

// InterpolateValue interpolates every string nested in maps and slices of v.
// Other values are returned unchanged.
func InterpolateValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		return Interpolate(val, vars)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = InterpolateValue(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = InterpolateValue(item, vars)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = Interpolate(item, vars)
		}
		return out
	}
	return v
}

// InterpolateShell prepares a command for "sh -c". Known placeholders become
// references to exported variables and every value travels in the returned
// KEY=VALUE entries, so release text is never parsed as shell syntax.
func InterpolateShell(command string, vars map[string]string) (string, []string) {
	out := placeholderPattern.ReplaceAllStringFunc(command, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if _, ok := vars[key]; ok {
			return "${" + ShellEnvName(key) + "}"
		}
		return match
	})
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, ShellEnvName(k)+"="+vars[k])
	}
	return out, env
}

// ShellEnvName maps a variable such as previousTag to MONORELEASE_PREVIOUS_TAG.
func ShellEnvName(key string) string {
	var b strings.Builder
	b.WriteString(ShellEnvPrefix)
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
