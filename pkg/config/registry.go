package config

// Persistent state keys (Registry) for operator overrides.
const (
	KeyPaused   = "bot.paused"
	KeyDryRun   = "bot.dry_run"
	KeyThrottle = "bot.throttle"
	KeySummary  = "bot.summary"
)

// OverrideKeys lists the keys an operator may set between runs.
var OverrideKeys = []string{KeyPaused, KeyDryRun, KeyThrottle, KeySummary}
