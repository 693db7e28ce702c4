package markdown

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var yamlSpecial = regexp.MustCompile(`[:{}\[\],&*#?|\-<>=!%@\\"\n]`)

// Escape quotes s when it contains YAML-significant characters or
// surrounding whitespace. Inside quotes only double quotes and newlines are
// escaped.
func Escape(s string) string {
	if yamlSpecial.MatchString(s) || strings.TrimSpace(s) != s {
		r := strings.NewReplacer(`"`, `\"`, "\n", `\n`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}

// FlowArray renders items as a flow sequence, each element escaped.
func FlowArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = Escape(item)
	}
	return "[" + strings.Join(escaped, ", ") + "]"
}

// scalar renders a decoded JSON metadata value the way string interpolation
// in the desktop client did, so existing files stay byte-identical.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return number(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item == nil {
				continue
			}
			parts[i] = scalar(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return ""
	}
}

func number(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// 1e+21 style exponent without leading zeros.
		s = strings.Replace(s, "e+0", "e+", 1)
		return strings.Replace(s, "e-0", "e-", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy mirrors the loose truthiness the metadata checks have always used.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}
