// Package wikitext holds the targeted pattern matching the bot applies to page source.
// It is not a wikitext parser: every pattern lives behind a named function.
package wikitext

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	journalArgRe     = regexp.MustCompile(`\|\s*[Jj]ournal\s*=[ \t]*([^|}\n]+)`)
	volumeArgRe      = regexp.MustCompile(`\|\s*(?i:volume)\s*=\s*(\d+)`)
	issueArgRe       = regexp.MustCompile(`\|\s*(?i:issue)\s*=\s*(\d+)`)
	rowTemplateArgRe = regexp.MustCompile(`\|\s*row_template\s*=[ \t]*([^|}\n]+)`)
	entityIDRe       = regexp.MustCompile(`^Q\d+$`)
)

// journalArg returns the trimmed value of the first |journal= argument.
func journalArg(content string) (string, bool) {
	m := journalArgRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// volumeArg returns the first |volume= argument.
func volumeArg(content string) (int, bool) {
	return intArg(volumeArgRe, content)
}

// issueArg returns the first |issue= argument.
func issueArg(content string) (int, bool) {
	return intArg(issueArgRe, content)
}

// RowTemplate returns the page's |row_template= override, if any.
func RowTemplate(content string) (string, bool) {
	m := rowTemplateArgRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// IsEntityID reports whether s looks like a Wikidata item id such as Q24657325.
func IsEntityID(s string) bool {
	return entityIDRe.MatchString(s)
}

func intArg(re *regexp.Regexp, content string) (int, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
