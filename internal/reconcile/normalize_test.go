package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain value", "Metal Deck", "Metal Deck"},
		{"leading colon", ": 0.18", "0.18"},
		{"leading quote and colon", `": TP12345`, "TP12345"},
		{"trailing comma", "Ply,", "Ply"},
		{"trailing quote and comma", `Kingspan TT47",`, "Kingspan TT47"},
		{"surrounding whitespace", "  SW6  ", "SW6"},
		{"embedded key-value fragment", `Email Subject": "Re: Tapered scheme"`, "Re: Tapered scheme"},
		{"quoted time survives", `"14:30"`, "14:30"},
		{"empty", "", ""},
		{"only punctuation", `":,`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Metal Deck",
		": 0.18",
		`Email Subject": "Re: Tapered scheme"`,
		`a": "b": "c"`,
		"14:30",
		`"09:05",`,
		"   ",
		`He said "hello": fine`,
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_KeepsTimeValues(t *testing.T) {
	assert.Equal(t, "14:30", Normalize("14:30"))
	assert.Equal(t, "9:05", Normalize("9:05"))
}

func TestToDisplayDate(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"2025-07-16", "16/07/2025"},
		{"16/07/2025", "16/07/2025"},
		{"not a date", "not a date"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ToDisplayDate(tt.in))
	}
}

func TestToStorageDate(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"16/07/2025", "2025-07-16"},
		{"16-07-2025", "2025-07-16"},
		{"2025-07-16", "2025-07-16"},
		{"July 16 2025", "July 16 2025"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ToStorageDate(tt.in))
	}
}

func TestDateRoundTrip(t *testing.T) {
	// For any storage-form input, display and back is stable.
	for _, s := range []string{"2025-07-16", "2021-01-01", "1999-12-31"} {
		assert.Equal(t, ToStorageDate(s), ToStorageDate(ToDisplayDate(ToStorageDate(s))))
	}
}
