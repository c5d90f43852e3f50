// Package normalize holds the date, text and URL helpers shared by the
// source adapters.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// now is replaced in tests.
var now = time.Now

var (
	weekdaySuffix = regexp.MustCompile(`\s*[\(（][^\)）]*[\)）]\s*`)
	// 2024/1/15, 2024.01.15, 2024-01-15, 2024年1月15日
	separatedDate = regexp.MustCompile(`(\d{4})[/.\-年](\d{1,2})[/.\-月](\d{1,2})日?`)
	compactDate   = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
)

// ParseDate parses ISO-8601, RFC 1123/822 and most other common layouts.
// An empty or unparseable input yields the current time and ok=false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "0123456789") {
		return now(), false
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return now(), false
	}
	return t, true
}

// ParseTime is ParseDate for adapters that already got a parsed time from
// their decoder. A nil or zero value counts as missing.
func ParseTime(t *time.Time, fallback string) (time.Time, bool) {
	if t != nil && !t.IsZero() {
		return *t, true
	}
	return ParseDate(fallback)
}

// ParseJapaneseDate parses the date formats used by Japanese sites, in local time.
func ParseJapaneseDate(s string) (time.Time, bool) {
	return ParseJapaneseDateIn(s, time.Local)
}

// ParseJapaneseDateIn parses "YYYY/M/D", "YYYY.MM.DD", "YYYY-MM-DD",
// "YYYY年M月D日" and compact "YYYYMMDD" dates, ignoring a parenthesised
// weekday such as "(月)". The result is midnight in loc. Other inputs fall
// through to ParseDate.
func ParseJapaneseDateIn(s string, loc *time.Location) (time.Time, bool) {
	cleaned := strings.TrimSpace(weekdaySuffix.ReplaceAllString(s, ""))

	for _, re := range []*regexp.Regexp{separatedDate, compactDate} {
		m := re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
	}

	return ParseDate(s)
}
