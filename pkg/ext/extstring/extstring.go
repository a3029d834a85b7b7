// Package extstring provides extended string methods beyond the built-in
// helpers (length, trim, substring, ...). Install them with Register or the
// top-level ext.Register.
//
//	"hello_world".camelCase()      // "helloWorld"
//	"7".padLeft(3, "0")            // "007"
//	"Hi {{name}}".template(vars)   // "Hi Ada"
package extstring

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/govel/pkg/ext/extutil"
)

// Definitions returns all extended string methods.
func Definitions() []extutil.Def {
	return []extutil.Def{
		{Name: "lastIndexOf", Kinds: extutil.StringKinds, Fn: LastIndexOf},
		{Name: "capitalize", Kinds: extutil.StringKinds, Fn: Capitalize},
		{Name: "titleCase", Kinds: extutil.StringKinds, Fn: TitleCase},
		{Name: "camelCase", Kinds: extutil.StringKinds, Fn: CamelCase},
		{Name: "snakeCase", Kinds: extutil.StringKinds, Fn: SnakeCase},
		{Name: "kebabCase", Kinds: extutil.StringKinds, Fn: KebabCase},
		{Name: "repeat", Kinds: extutil.StringKinds, Fn: Repeat},
		{Name: "words", Kinds: extutil.StringKinds, Fn: Words},
		{Name: "split", Kinds: extutil.StringKinds, Fn: Split},
		{Name: "replace", Kinds: extutil.StringKinds, Fn: strings.ReplaceAll},
		{Name: "padLeft", Kinds: extutil.StringKinds, Fn: PadLeft},
		{Name: "padRight", Kinds: extutil.StringKinds, Fn: PadRight},
		{Name: "template", Kinds: extutil.StringKinds, Fn: Template},
	}
}

// Register installs the string methods on r.
func Register(r extutil.Registrar) error {
	return extutil.Register(r, Definitions())
}

// LastIndexOf returns the rune offset of the last occurrence of sub, or -1.
func LastIndexOf(s, sub string) int {
	i := strings.LastIndex(s, sub)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}

// Capitalize uppercases the first character and lowercases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// TitleCase uppercases the first character of each space separated word.
func TitleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	start := true
	for i, r := range runes {
		if unicode.IsSpace(r) {
			start = true
			continue
		}
		if start {
			runes[i] = unicode.ToUpper(r)
			start = false
		}
	}
	return string(runes)
}

// splitWordsRe matches word separators and lower-to-upper camel humps.
var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

func splitIntoWords(s string) []string {
	expanded := splitWordsRe.ReplaceAllStringFunc(s, func(m string) string {
		if len(m) == 2 && m[0] >= 'a' && m[0] <= 'z' {
			return string(m[0]) + " " + string(m[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

// CamelCase joins the words of s as lowerCamelCase.
func CamelCase(s string) string {
	words := splitIntoWords(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(Capitalize(w))
	}
	return b.String()
}

// SnakeCase joins the lowercased words of s with underscores.
func SnakeCase(s string) string {
	return joinLower(s, "_")
}

// KebabCase joins the lowercased words of s with dashes.
func KebabCase(s string) string {
	return joinLower(s, "-")
}

func joinLower(s, sep string) string {
	words := splitIntoWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

// Repeat returns n copies of s.
func Repeat(s string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("repeat count must be non-negative, got %d", n)
	}
	return strings.Repeat(s, n), nil
}

// Words splits s on white space.
func Words(s string) []string {
	return strings.Fields(s)
}

// Split slices s around each occurrence of sep.
func Split(s, sep string) []string {
	return strings.Split(s, sep)
}

// PadLeft pads s on the left with pad until it is width runes long.
func PadLeft(s string, width int, pad string) string {
	fill := padding(s, width, pad)
	return fill + s
}

// PadRight pads s on the right with pad until it is width runes long.
func PadRight(s string, width int, pad string) string {
	return s + padding(s, width, pad)
}

func padding(s string, width int, pad string) string {
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 || pad == "" {
		return ""
	}
	p := []rune(strings.Repeat(pad, missing/utf8.RuneCountInString(pad)+1))
	return string(p[:missing])
}

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Template replaces {{key}} placeholders with values from bindings.
// Unknown keys are left in place.
func Template(s string, bindings map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := bindings[key]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}
