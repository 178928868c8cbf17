package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Locale-tolerant normalization of the raw text the booking site renders
// into its result tables: dates, times, durations and prices. Everything
// here is pure; no function touches the page or returns an error for
// unparseable input — callers decide what a miss means.

var (
	numericDateRe = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?`)
	namedDateRe   = regexp.MustCompile(`(\d{1,2})\s+(\p{L}{3,})`)
	timeTokenRe   = regexp.MustCompile(`\b\d{1,2}[:.]\d{2}\b`)

	priceBeforeRe = regexp.MustCompile(`(?i)(CHF|EUR|€)\s*([0-9][0-9.,]*)`)
	priceAfterRe  = regexp.MustCompile(`(?i)([0-9][0-9.,]*)\s*(CHF|EUR|€)`)
)

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// monthIndexFromName maps a 3-letter month prefix (English or German,
// accented variants included) to a 0-based month index. The map is
// knowingly partial; an unknown token makes the caller fall back to raw
// text, which breaks calendar ordering for that row.
var monthIndex = map[string]int{
	"jan": 0,
	"feb": 1,
	"mar": 2, "mär": 2, "mrz": 2,
	"apr": 3,
	"may": 4, "mai": 4,
	"jun": 5,
	"jul": 6,
	"aug": 7,
	"sep": 8,
	"oct": 9, "okt": 9,
	"nov": 10,
	"dec": 11, "dez": 11,
}

func monthIndexFromName(raw string) (int, bool) {
	runes := []rune(strings.ToLower(strings.TrimSpace(raw)))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	idx, ok := monthIndex[string(runes)]
	return idx, ok
}

// ParseDateCell turns the date cell of a results row into a sortable
// YYYY-MM-DD key and a short display label. It accepts numeric
// "dd.mm[.yyyy]" forms (weekday prefixes ignored) and "dd <month-name>"
// forms. When neither matches, the raw text is returned as both key and
// label.
func ParseDateCell(text string, baseYear int) (key, label string) {
	t := strings.Join(strings.Fields(text), " ")
	if baseYear <= 0 {
		baseYear = time.Now().Year()
	}

	if m := numericDateRe.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		year := baseYear
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if mon >= 1 && mon <= 12 {
			key = fmt.Sprintf("%04d-%02d-%02d", year, mon, day)
			label = fmt.Sprintf("%02d %s", day, monthLabels[mon-1])
			return key, label
		}
	}

	if m := namedDateRe.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		if mon, ok := monthIndexFromName(m[2]); ok {
			key = fmt.Sprintf("%04d-%02d-%02d", baseYear, mon+1, day)
			label = fmt.Sprintf("%02d %s", day, m[2])
			return key, label
		}
	}

	return t, t
}

// ParsePrice finds a currency token (CHF, EUR or the € symbol) adjacent
// to a numeric run in either order and returns the ISO currency with the
// normalized decimal amount. ok is false when no such pair exists.
func ParsePrice(text string) (currency, price string, ok bool) {
	t := strings.ReplaceAll(text, "\u00a0", " ")

	if m := priceBeforeRe.FindStringSubmatch(t); m != nil {
		if p := normalizePriceNumber(m[2]); p != "" {
			return canonicalCurrency(m[1]), p, true
		}
	}
	if m := priceAfterRe.FindStringSubmatch(t); m != nil {
		if p := normalizePriceNumber(m[1]); p != "" {
			return canonicalCurrency(m[2]), p, true
		}
	}
	return "", "", false
}

func canonicalCurrency(tok string) string {
	if tok == "€" {
		return "EUR"
	}
	return strings.ToUpper(tok)
}

// normalizePriceNumber disambiguates thousands and decimal separators by
// their position and returns a plain decimal string, or "" when nothing
// numeric remains.
func normalizePriceNumber(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "\u00a0", "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.NewReplacer("€", "", "CHF", "", "chf", "", "EUR", "", "eur", "").Replace(s)

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// 1.234,56 — dot groups thousands, comma is decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = parts[0] + "." + parts[1]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractTimes returns every H:MM token in text in document order, with
// dot separators normalized to colons.
func ExtractTimes(text string) []string {
	matches := timeTokenRe.FindAllString(text, -1)
	times := make([]string, 0, len(matches))
	for _, m := range matches {
		times = append(times, strings.Replace(m, ".", ":", 1))
	}
	return times
}

// MinutesBetween computes the elapsed minutes from dep to arr (both
// "H:MM"). Arrivals past midnight wrap into the next day.
func MinutesBetween(dep, arr string) (int, bool) {
	a, okA := toMinutes(dep)
	b, okB := toMinutes(arr)
	if !okA || !okB {
		return 0, false
	}
	d := b - a
	if d < 0 {
		d += 24 * 60
	}
	return d, true
}

func toMinutes(hm string) (int, bool) {
	parts := strings.Split(hm, ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return 0, false
	}
	return h*60 + m, true
}

// FormatDuration renders minutes as "1h 30m", dropping the zero part.
func FormatDuration(mins int) string {
	if mins <= 0 {
		return ""
	}
	h := mins / 60
	m := mins % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
