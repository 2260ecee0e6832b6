// Package parse turns a free-text restaurant request into a models.Query
// using keyword and pattern rules.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Concierge/internal/models"
)

// Cuisines recognised in free text, in match priority order.
var Cuisines = []string{
	"turkish", "italian", "chinese", "mexican", "indian",
	"french", "japanese", "mediterranean", "thai",
}

var (
	downtownPattern  = regexp.MustCompile(`(?i)\b(?:in|at|near)\s+(downtown(?:\s+[a-z]+){0,2})`)
	placePattern     = regexp.MustCompile(`\b(?:in|near)\s+([A-Z][\w']*(?:\s+[A-Z][\w']*){0,3})`)
	budgetPattern    = regexp.MustCompile(`(?i)\bunder\s+\$?(\d+(?:\.\d{1,2})?)`)
	partyPattern     = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten)\b(?:\s+(?:people|persons|guests|diners))?`)
	dayPattern       = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	timePattern      = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	starsPattern     = regexp.MustCompile(`(?i)\b(?:(\d(?:\.\d)?)\s*\+\s*stars?|at\s+least\s+(\d(?:\.\d)?)\s+stars?)`)
	viewOfPattern    = regexp.MustCompile(`(?i)\bviews?\s+of\s+([^.,;]+)`)
	namedViewPattern = regexp.MustCompile(`(?i)\b(garden|street|harbor|water|city)\s+views?\b`)
	wordPattern      = regexp.MustCompile(`[a-z]+`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var priceWords = []struct {
	word string
	tier int
}{
	{"cheap", 1},
	{"moderate", 2},
	{"upscale", 3},
}

// localityStopWords end a locality phrase.
var localityStopWords = map[string]bool{
	"for": true, "on": true, "at": true, "under": true, "with": true, "near": true,
	"to": true, "and": true, "tonight": true, "this": true, "next": true,
}

var viewWords = []string{"garden", "street", "harbor", "water", "city"}

// Note records one extracted field.
type Note struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Match string `json:"match"`
}

func (n Note) String() string {
	return fmt.Sprintf("%s: %s", n.Field, n.Value)
}

// Result is a parsed query and the notes explaining it.
type Result struct {
	Query models.Query `json:"query"`
	Notes []Note       `json:"notes"`
}

// Parse extracts whatever it recognises from text. Unrecognised text is
// ignored; the caller validates the resulting query.
func Parse(text string) Result {
	text = strings.Join(strings.Fields(text), " ")
	lower := strings.ToLower(text)
	res := Result{Query: models.Query{Text: text}}
	note := func(field, value, match string) {
		res.Notes = append(res.Notes, Note{Field: field, Value: value, Match: strings.TrimSpace(match)})
	}

	words := map[string]bool{}
	for _, w := range wordPattern.FindAllString(lower, -1) {
		words[w] = true
	}

	for _, c := range Cuisines {
		if words[c] {
			res.Query.Cuisine = titleWord(c)
			note("cuisine", res.Query.Cuisine, c)
			break
		}
	}

	if loc, match := extractLocality(text); loc != "" {
		res.Query.Locality = loc
		note("locality", loc, match)
	}

	if m := budgetPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			res.Query.Budget = models.Float64Ptr(v)
			note("budget", fmt.Sprintf("$%.2f", v), m[0])
		}
	}

	if n, match := extractPartySize(text); n > 0 {
		res.Query.PartySize = n
		note("party_size", strconv.Itoa(n), match)
	}

	if m := dayPattern.FindStringSubmatch(text); m != nil {
		res.Query.Day = titleWord(m[1])
		note("day", res.Query.Day, m[0])
	}

	if slot, match, assumed := extractTime(text); slot != "" {
		res.Query.Time = slot
		value := slot
		if assumed {
			value += " (pm assumed)"
		}
		note("time", value, match)
	}

	for _, pw := range priceWords {
		if words[pw.word] {
			res.Query.PriceCeiling = models.IntPtr(pw.tier)
			note("price_ceiling", strconv.Itoa(pw.tier), pw.word)
			break
		}
	}

	if m := starsPattern.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v <= 5 {
			res.Query.MinRating = models.Float64Ptr(v)
			note("min_rating", strconv.FormatFloat(v, 'f', -1, 64), m[0])
		}
	}

	if words["window"] || words["windows"] {
		res.Query.Window = true
		note("window", "requested", "window")
	}
	if views, match := extractViews(text); len(views) > 0 {
		res.Query.Views = views
		note("views", strings.Join(views, ", "), match)
	}

	return res
}

// extractLocality prefers an explicit "downtown ..." phrase, then any
// capitalised place after "in" or "near". The phrase ends at punctuation
// or a stop word.
func extractLocality(text string) (string, string) {
	if m := downtownPattern.FindStringSubmatch(text); m != nil {
		if loc := trimLocality(m[1]); loc != "" {
			return titlePhrase(loc), m[0]
		}
	}
	if m := placePattern.FindStringSubmatch(text); m != nil {
		if loc := trimLocality(m[1]); loc != "" && !isWeekday(loc) {
			return loc, m[0]
		}
	}
	return "", ""
}

func trimLocality(phrase string) string {
	var kept []string
	for _, w := range strings.Fields(phrase) {
		if localityStopWords[strings.ToLower(w)] {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isWeekday(s string) bool {
	return dayPattern.MatchString(s) && len(strings.Fields(s)) == 1
}

// extractTime returns a slot in the "7:30 pm" form the repositories use.
// A bare hour without am/pm is read as an evening time.
func extractTime(text string) (slot, match string, assumed bool) {
	for _, m := range timePattern.FindAllStringSubmatch(text, -1) {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour < 1 || hour > 12 {
			continue
		}
		minutes, suffix := m[2], strings.ToLower(m[3])
		if minutes == "" && suffix == "" {
			// "at 5" alone is too ambiguous; "at 5:00" is not
			continue
		}
		if minutes == "" {
			minutes = "00"
		}
		if suffix == "" {
			suffix, assumed = "pm", true
		}
		return fmt.Sprintf("%d:%s %s", hour, minutes, suffix), m[0], assumed
	}
	return "", "", false
}

func extractViews(text string) ([]string, string) {
	found := map[string]bool{}
	var matches []string
	for _, m := range viewOfPattern.FindAllStringSubmatch(text, -1) {
		clause := strings.ToLower(m[1])
		for _, v := range viewWords {
			if strings.Contains(clause, v) {
				found[v] = true
			}
		}
		matches = append(matches, m[0])
	}
	for _, m := range namedViewPattern.FindAllStringSubmatch(text, -1) {
		found[strings.ToLower(m[1])] = true
		matches = append(matches, m[0])
	}
	var views []string
	for _, v := range viewWords {
		if found[v] {
			views = append(views, v)
		}
	}
	return views, strings.Join(matches, "; ")
}

// extractPartySize skips "for 7:30", which is a time.
func extractPartySize(text string) (int, string) {
	for _, loc := range partyPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[3] < len(text) && text[loc[3]] == ':' {
			continue
		}
		if n := partySize(text[loc[2]:loc[3]]); n > 0 {
			return n, text[loc[0]:loc[1]]
		}
	}
	return 0, ""
}

func partySize(s string) int {
	if n, ok := numberWords[strings.ToLower(s)]; ok {
		return n
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 50 {
		return 0
	}
	return n
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}

func titlePhrase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}
