package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Page is the room page a user was sent to, e.g. https://meet.example.com/rooms/42/.
type Page struct {
	Host   string
	Secure bool
	Room   string
}

// ParseRoomInput accepts either a bare room identifier or a room page URL.
// For a URL the room is the last non-empty path segment, and the returned
// Page carries the host and security level the signaling endpoint mirrors.
func ParseRoomInput(input string) (string, *Page, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil, fmt.Errorf("room ID cannot be empty")
	}

	if !strings.Contains(input, "://") {
		if strings.Contains(input, "/") {
			return "", nil, fmt.Errorf("room ID %q must not contain '/'", input)
		}
		return input, nil, nil
	}

	page, err := parsePage(input)
	if err != nil {
		return "", nil, err
	}
	return page.Room, page, nil
}

func parsePage(raw string) (*Page, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse room URL: %w", err)
	}

	var secure bool
	switch u.Scheme {
	case "https", "wss":
		secure = true
	case "http", "ws":
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	room := parts[len(parts)-1]
	if room == "" {
		return nil, fmt.Errorf("could not extract room ID from URL: %s", raw)
	}

	return &Page{
		Host:   u.Hostname(),
		Secure: secure,
		Room:   room,
	}, nil
}
