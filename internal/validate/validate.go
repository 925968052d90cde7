package validate

import (
	"regexp"
	"strings"
)

var (
	reEmail   = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reChannel = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
)

// ID validates a simple resource identifier (item/order/user ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Channel validates a broadcast channel name.
func Channel(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reChannel.MatchString(s)
}

// Name validates a displayable item name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 80 {
		return "", false
	}
	return s, true
}
