package instance

import (
	"os"

	"github.com/angelmondragon/stashbot/pkg/env"
)

// GetID names this process in logs: STASHBOT_INSTANCE_ID, then DYNO, then the
// hostname.
func GetID() string {
	if id := env.First("", "STASHBOT_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "bot-0"
}
