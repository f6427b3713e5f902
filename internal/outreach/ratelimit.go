package outreach

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SafetyBuffer is added on top of any channel-reported wait.
const SafetyBuffer = 5 * time.Second

// DefaultWait applies when a rate-limit error carries no parseable
// duration.
const DefaultWait = 60 * time.Second

// waitPattern matches the wait hint embedded in channel rate-limit
// messages, e.g. "Take a break for 7 minutes" or "try again in 30 seconds".
var waitPattern = regexp.MustCompile(`(?i)(\d+)\s*(minute|second)`)

// IsRateLimited reports whether the error text is a channel rate-limit
// rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(err.Error()), "RATELIMIT")
}

// ParseWait extracts the wait duration from rate-limit error text and
// adds the safety buffer. Text without a parseable duration yields
// DefaultWait.
func ParseWait(text string) time.Duration {
	m := waitPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultWait
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultWait
	}

	wait := time.Duration(n) * time.Second
	if strings.HasPrefix(strings.ToLower(m[2]), "minute") {
		wait = time.Duration(n) * time.Minute
	}
	return wait + SafetyBuffer
}
