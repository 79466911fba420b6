// Package reconcile holds the deterministic core of the intake workflow:
// value normalization, board/email parameter merging with per-field
// provenance, and projection of the validatable subset used for board-item
// creation. Everything in this package is pure and request-scoped.
package reconcile

import (
	"regexp"
	"strings"
)

// Extraction artifacts observed in LLM output: stray quotes and colons at
// the start, quotes and commas at the end, and occasionally a whole
// `key": "value"` fragment leaking into the value.
var (
	timeLikeRe = regexp.MustCompile(`^\d+:\d+`)
	leadingRe  = regexp.MustCompile(`^[\s"':]+`)
	trailingRe = regexp.MustCompile(`[\s"',]+$`)
	embeddedRe = regexp.MustCompile(`^.*"\s*:\s*"(.*)$`)
)

// Normalize strips extraction-artifact punctuation from a raw value. It is
// best-effort and lossy on purpose: values containing literal colons can be
// mis-parsed, and that is accepted rather than hardened (the inputs come
// from an LLM, not a grammar). Never fails, always returns a string, and is
// idempotent. A numeric HH:MM prefix disables the colon-strip rule so times
// survive untouched.
func Normalize(raw string) string {
	v := strings.TrimSpace(raw)
	for {
		next := normalizeOnce(v)
		if next == v {
			return v
		}
		v = next
	}
}

func normalizeOnce(v string) string {
	if v == "" {
		return v
	}

	if timeLikeRe.MatchString(v) {
		// Time-like value: quotes and commas only, keep the colon.
		return strings.TrimSpace(strings.Trim(v, `"', `))
	}

	v = leadingRe.ReplaceAllString(v, "")
	v = trailingRe.ReplaceAllString(v, "")

	if m := embeddedRe.FindStringSubmatch(v); m != nil {
		v = strings.TrimSpace(m[1])
		v = trailingRe.ReplaceAllString(v, "")
	}

	return strings.TrimSpace(v)
}

var (
	storageDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	displayDateRe = regexp.MustCompile(`^(\d{2})[/-](\d{2})[/-](\d{4})$`)
)

// ToDisplayDate reorders a storage date (YYYY-MM-DD) to display form
// (DD/MM/YYYY). Anything else passes through unchanged; calendar validity
// is not checked.
func ToDisplayDate(s string) string {
	m := storageDateRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

// ToStorageDate reorders a display date (DD/MM/YYYY or DD-MM-YYYY) to
// storage form (YYYY-MM-DD). Values already in storage form, and anything
// unrecognized, pass through unchanged.
func ToStorageDate(s string) string {
	if storageDateRe.MatchString(s) {
		return s
	}
	m := displayDateRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "-" + m[2] + "-" + m[1]
}
