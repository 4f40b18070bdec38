package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantCondition(t *testing.T) {
	tests := []struct {
		src   string
		value bool
		ok    bool
	}{
		{"true", true, true},
		{"false", false, true},
		{"1 > 2", false, true},
		{"(2 * 3) == 6 && !false", true, true},
		{"10 % 3 != 1", false, true},
		{"input.amount > 100", false, false},
		{"state.approved", false, false},
		{"1 == true", false, false},
		{"'a' == 'a'", false, false},
		{"1 === 1", false, false},
		{"check()", false, false},
		{"", false, false},
		{"9007199254740991 > 0", true, true},
		{"9223372036854775807 + 1 > 0", false, false},
		{"-9223372036854775807 - 1 < 0", false, false},
		{"4294967296 * 4294967296 > 0", false, false},
		{"1.5 * 9007199254740991 > 0", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			value, ok := constantCondition(tt.src)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.value, value)
			}
		})
	}
}
