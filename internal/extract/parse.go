package extract

import (
	"regexp"
	"strings"

	"github.com/taperedplus/design-intake/internal/model"
)

var (
	leadingAsteriskRe = regexp.MustCompile(`^\*+\s*`)
	postcodePrefixRe  = regexp.MustCompile(`(?i)^\s*of Project Location:?\*?\s*`)
	notProvidedRe     = regexp.MustCompile(`(?i)not\s+provided|not\s+found|none`)
	ukPostcodeAreaRe  = regexp.MustCompile(`([A-Z]{1,2})[0-9]`)

	// headerDateRe finds the Date line of the first email header in the
	// assembled text. Forwarded chains repeat From/To/Subject/Date blocks;
	// only the outermost one is the request to TaperedPlus.
	headerDateRe   = regexp.MustCompile(`(?is)EMAIL CONTENT:\s*From:.*?\nTo:.*?\nSubject:.*?\nDate:\s*(.+?)\s*(?:\n|$)`)
	headerDayRe    = regexp.MustCompile(`\d{1,2} \w{3} \d{4}`)
	headerMinuteRe = regexp.MustCompile(`\d{2}:\d{2}`)

	keyRes = buildKeyRegexps()
)

func buildKeyRegexps() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(model.ParameterKeys))
	for _, key := range model.ParameterKeys {
		res[key] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) + `\s*:?\s*(.*?)(?:\n|$)`)
	}
	return res
}

// parseResponse pulls one value per canonical parameter out of an LLM
// answer. Lines look like "Key: value" or "**Key** : value"; a key the
// model never mentions yields "Not found".
func parseResponse(resp string) model.ParameterSet {
	params := make(model.ParameterSet, len(model.ParameterKeys))
	for _, key := range model.ParameterKeys {
		val := model.NotFound
		if m := keyRes[key].FindStringSubmatch(resp); m != nil {
			val = strings.TrimSpace(m[1])
		}
		val = leadingAsteriskRe.ReplaceAllString(val, "")

		switch key {
		case "Tapered Insulation":
			val = MapInsulation(val)
		case "Post Code":
			val = narrowPostcode(val)
		}
		params[key] = val
	}
	return params
}

// narrowPostcode reduces a full UK postcode to its area letters, e.g.
// "LS12 4QB" to "LS". Values that do not look like a postcode pass
// through so a reviewer can still see what the model said.
func narrowPostcode(val string) string {
	cleaned := strings.TrimSpace(postcodePrefixRe.ReplaceAllString(val, ""))
	if notProvidedRe.MatchString(cleaned) {
		return model.NotProvided
	}
	if m := ukPostcodeAreaRe.FindStringSubmatch(strings.ToUpper(cleaned)); m != nil {
		return m[1]
	}
	return cleaned
}

// overrideFromHeader replaces Date Received and Hour Received with values
// read straight from the email header in allText. The header is ground
// truth; the model routinely picks a date from deeper in a forwarded
// chain. Values stay untouched when the header cannot be parsed.
func overrideFromHeader(params model.ParameterSet, allText string) {
	m := headerDateRe.FindStringSubmatch(allText)
	if m == nil {
		return
	}
	fullDate := strings.TrimSpace(m[1])
	day := headerDayRe.FindString(fullDate)
	minute := headerMinuteRe.FindString(fullDate)
	if day == "" || minute == "" {
		return
	}
	params["Date Received"] = day
	params["Hour Received"] = minute
}
