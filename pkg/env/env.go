package env

import "os"

// First returns the value of the first set variable among keys, or fallback.
// Stashbot-prefixed names go first so they win over generic platform ones.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return fallback
}
