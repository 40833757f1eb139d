package views

import (
	"html/template"
	"reflect"
	"strings"
)

// BuiltinHelpers returns the helpers every HTMLCompiler starts with.
// Config.Helpers entries with the same name replace them.
func BuiltinHelpers() template.FuncMap {
	return template.FuncMap{
		// Strings & escaping
		"upper":  strings.ToUpper,
		"lower":  strings.ToLower,
		"trim":   strings.TrimSpace,
		"safe":   safe,
		"escape": template.HTMLEscapeString,
		"link":   link,

		// Logic & lists
		"repeat":  repeat,
		"list":    list,
		"isSet":   isSet,
		"default": defaultValue,

		// Arithmetic
		"add": add,
		"sub": sub,
		"div": div,
		"mod": mod,
		"inc": inc,
		"dec": dec,
	}
}

// safe marks s as trusted HTML so it is written without escaping.
func safe(s string) template.HTML {
	return template.HTML(s)
}

// link builds an anchor element, escaping both the url and the text.
func link(url, text string) template.HTML {
	return template.HTML(`<a href="` + template.HTMLEscapeString(url) + `">` + template.HTMLEscapeString(text) + `</a>`)
}

// repeat returns a slice of integers from 0 to count-1.
func repeat(count int) []int {
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := 0; i < count; i++ {
		s[i] = i
	}
	return s
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}

// isSet returns true if a value is not its zero value.
func isSet(val any) bool {
	v := reflect.ValueOf(val)
	if !v.IsValid() {
		return false
	}
	return !v.IsZero()
}

// defaultValue returns val, or fallback when val is unset.
// Usage: {{.title | default "Untitled"}}
func defaultValue(fallback, val any) any {
	if isSet(val) {
		return val
	}
	return fallback
}

func add(a, b int) int { return a + b }
func sub(a, b int) int { return a - b }

// div returns a / b (integer division). Returns 0 if b is 0.
func div(a, b int) int {
	if b == 0 {
		return 0
	}
	return a / b
}

// mod returns a % b. Returns 0 if b is 0.
func mod(a, b int) int {
	if b == 0 {
		return 0
	}
	return a % b
}

func inc(i int) int { return i + 1 }
func dec(i int) int { return i - 1 }
