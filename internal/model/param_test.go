package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		missing bool
	}{
		{"empty", "", true},
		{"whitespace", "  \t ", true},
		{"not found", NotFound, true},
		{"not found upper", "NOT FOUND", true},
		{"not provided", NotProvided, true},
		{"deferred", Deferred, true},
		{"deferred lower", "to be assigned by taperedplus", true},
		{"real value", "NE1 4ST", false},
		{"sentinel inside text", "Not found in drawing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, IsMissing(tt.value))
		})
	}
}

func TestParameterSet_Clone(t *testing.T) {
	orig := ParameterSet{"Post Code": "NE1", "Revision": "P02"}

	clone := orig.Clone()
	assert.Equal(t, orig, clone)

	clone["Post Code"] = "LS1"
	assert.Equal(t, "NE1", orig["Post Code"])
}

func TestParameterKeys_Closed(t *testing.T) {
	assert.Len(t, ParameterKeys, 16)
	assert.Equal(t, "Email Subject", ParameterKeys[0])
	assert.Equal(t, "Decking", ParameterKeys[len(ParameterKeys)-1])

	seen := map[string]bool{}
	for _, k := range ParameterKeys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
}
