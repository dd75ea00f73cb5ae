// Package singleinstance keeps a second keyviz process from installing a
// second global input hook.
package singleinstance

import (
	"errors"
	"os"
	"os/user"
	"regexp"
	"strings"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

var errNameRequired = errors.New("lock name is required")

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var currentUserFn = user.Current

// DefaultName returns the per-user lock identifier for this platform.
func DefaultName() string {
	return defaultName(sanitizeUsername(currentUsername()))
}

func currentUsername() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if name := strings.TrimSpace(os.Getenv(key)); name != "" {
			return name
		}
	}
	if current, err := currentUserFn(); err == nil {
		return current.Username
	}
	return ""
}

// sanitizeUsername replaces characters that are not valid in mutex or file
// names.
func sanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}
