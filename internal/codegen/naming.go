package codegen

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true, "enum": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true, "function": true,
	"if": true, "import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true, "with": true,
	"let": true, "static": true, "yield": true, "await": true,
}

// isIdentifier reports whether s can be used verbatim as a TypeScript identifier.
func isIdentifier(s string) bool {
	return identRE.MatchString(s) && !reservedWords[s]
}

// words splits s on any non-alphanumeric rune and on lower→upper transitions.
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

// toCamelCase turns "Process order-v2" into "processOrderV2".
func toCamelCase(s string) string {
	var b strings.Builder
	for i, w := range words(s) {
		w = strings.ToLower(w)
		if i > 0 {
			w = upperFirst(w)
		}
		b.WriteString(w)
	}
	return b.String()
}

// toPascalCase turns "process order" into "ProcessOrder".
func toPascalCase(s string) string {
	c := toCamelCase(s)
	if c == "" {
		return ""
	}
	return upperFirst(c)
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// typeName derives an exported type name prefix from s.
func typeName(s string) string {
	t := toPascalCase(s)
	if t == "" {
		return "Workflow"
	}
	if r, _ := utf8.DecodeRuneInString(t); unicode.IsDigit(r) {
		t = "_" + t
	}
	return t
}

// toKebabCase turns "Process Order" into "process-order".
func toKebabCase(s string) string {
	ws := words(s)
	for i := range ws {
		ws[i] = strings.ToLower(ws[i])
	}
	return strings.Join(ws, "-")
}

// identifier derives a safe identifier from s, prefixing when the result
// would start with a digit or collide with a reserved word.
func identifier(s, fallback string) string {
	id := toCamelCase(s)
	if id == "" {
		id = fallback
	}
	if r, _ := utf8.DecodeRuneInString(id); unicode.IsDigit(r) || reservedWords[id] {
		id = "_" + id
	}
	return id
}

// sanitizeID replaces every rune that is not a letter or digit with '_'.
func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, s)
}

// tsString renders s as a single-quoted TypeScript string literal.
func tsString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// commentText flattens s so it can sit on a single // comment line.
func commentText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// propertyKey renders a key for an object literal or interface member.
func propertyKey(s string) string {
	if isIdentifier(s) {
		return s
	}
	return tsString(s)
}
