package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Version is the current bot version. Overridden at build time via -ldflags.
var Version = "v0.3.0"

// UserAgent builds a header value in the form the Wikimedia User-Agent
// policy asks for: client name and version, a contact, then the library.
func UserAgent(client, contact string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		client = "WikiJournalBot"
	}
	ua := client + "/" + strings.TrimPrefix(Version, "v")
	if contact = strings.TrimSpace(contact); contact != "" {
		ua += " (" + contact + ")"
	}
	return fmt.Sprintf("%s wikijournalbot-go/%s", ua, runtime.Version())
}
