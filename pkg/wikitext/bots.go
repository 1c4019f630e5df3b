package wikitext

import "regexp"

var allowListRe = regexp.MustCompile(`(?i)\{\{(bots\|allow=.*?)\}\}`)

// AllowBots applies the {{bots}}/{{nobots}} exclusion convention for user.
// Deny markers win over allow markers; an allow-list that does not name user denies.
func AllowBots(text, user string) bool {
	q := regexp.QuoteMeta(user)

	deny := regexp.MustCompile(`(?i)\{\{(nobots|bots\|allow=none|bots\|deny=all|bots\|optout=all|bots\|deny=.*?` + q + `.*?)\}\}`)
	if deny.MatchString(text) {
		return false
	}

	allow := regexp.MustCompile(`(?i)\{\{(bots\|allow=all|bots\|allow=.*?` + q + `.*?)\}\}`)
	if allow.MatchString(text) {
		return true
	}

	return !allowListRe.MatchString(text)
}
