package codegen

import (
	"testing"
	"unicode/utf8"
)

func TestToCamelCase(t *testing.T) {
	tests := map[string]string{
		"Process Order":   "processOrder",
		"process-order":   "processOrder",
		"send_email_v2":   "sendEmailV2",
		"chargeCard":      "chargeCard",
		"  spaced  out  ": "spacedOut",
		"":                "",
	}
	for in, want := range tests {
		if got := toCamelCase(in); got != want {
			t.Errorf("toCamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCaseConversionKeepsMultibyteRunes(t *testing.T) {
	tests := []struct {
		in, camel, pascal string
	}{
		{"send über", "sendÜber", "SendÜber"},
		{"Zahlung über", "zahlungÜber", "ZahlungÜber"},
		{"élan vital", "élanVital", "ÉlanVital"},
		{"order ñandú", "orderÑandú", "OrderÑandú"},
	}
	for _, tt := range tests {
		camel, pascal := toCamelCase(tt.in), toPascalCase(tt.in)
		if !utf8.ValidString(camel) || !utf8.ValidString(pascal) {
			t.Errorf("%q produced invalid UTF-8: %q %q", tt.in, camel, pascal)
		}
		if camel != tt.camel {
			t.Errorf("toCamelCase(%q) = %q, want %q", tt.in, camel, tt.camel)
		}
		if pascal != tt.pascal {
			t.Errorf("toPascalCase(%q) = %q, want %q", tt.in, pascal, tt.pascal)
		}
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in, fallback, want string
	}{
		{"Order Flow", "workflow", "orderFlow"},
		{"2fast", "x", "_2fast"},
		{"", "workflow", "workflow"},
		{"delete", "x", "_delete"},
	}
	for _, tt := range tests {
		if got := identifier(tt.in, tt.fallback); got != tt.want {
			t.Errorf("identifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKebabAndPascal(t *testing.T) {
	if got := toKebabCase("Order Approval Flow"); got != "order-approval-flow" {
		t.Errorf("toKebabCase = %q", got)
	}
	if got := toPascalCase("order approval"); got != "OrderApproval" {
		t.Errorf("toPascalCase = %q", got)
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("node-1.a b"); got != "node_1_a_b" {
		t.Errorf("sanitizeID = %q", got)
	}
}

func TestTSString(t *testing.T) {
	tests := map[string]string{
		`plain`:      `'plain'`,
		`it's`:       `'it\'s'`,
		"line\nnext": `'line\nnext'`,
		`back\slash`: `'back\\slash'`,
	}
	for in, want := range tests {
		if got := tsString(in); got != want {
			t.Errorf("tsString(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	for _, s := range []string{"doWork", "_x", "$y", "a1"} {
		if !isIdentifier(s) {
			t.Errorf("expected %q to be an identifier", s)
		}
	}
	for _, s := range []string{"do-work", "1a", "", "return", "a b"} {
		if isIdentifier(s) {
			t.Errorf("expected %q not to be an identifier", s)
		}
	}
}
