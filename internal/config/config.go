package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Default configuration values
const (
	DefaultHost = "localhost"
	DefaultPort = 8000 // fixed signaling port of the relay
	DefaultPath = "ws"
	DefaultSTUN = "stun:stun.l.google.com:19302"
	DefaultName = "guest"
)

// Config holds application configuration
type Config struct {
	// Signaling relay location. Secure mirrors the security level of the
	// page the room was opened from.
	Host   string
	Port   int
	Path   string
	Secure bool

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Name is the display name announced in the join message.
	Name string

	// Local capture inputs
	VideoFile string
	AudioFile string
	Silence   bool
}

// Options for loading config with CLI flag overrides
type Options struct {
	Host       string
	Port       int
	Path       string
	Secure     bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Name       string
	VideoFile  string
	AudioFile  string
	Silence    bool

	// Page is the room the user opened, if it was given as a URL. Its host
	// and scheme are used when no explicit host or security flag is set.
	Page *Page
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	host := firstNonEmpty(opts.Host, os.Getenv("SIGNALING_HOST"))
	if host == "" && opts.Page != nil {
		host = opts.Page.Host
	}
	if host == "" {
		host = DefaultHost
	}

	port := opts.Port
	if port == 0 {
		if v := os.Getenv("SIGNALING_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid SIGNALING_PORT %q: %w", v, err)
			}
			port = p
		}
	}
	if port == 0 {
		port = DefaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("signaling port %d out of range", port)
	}

	secure := opts.Secure
	if !secure {
		secure = envBool("SIGNALING_SECURE")
	}
	if !secure && opts.Page != nil {
		secure = opts.Page.Secure
	}

	return &Config{
		Host:       host,
		Port:       port,
		Path:       strings.Trim(firstNonEmpty(opts.Path, os.Getenv("SIGNALING_PATH"), DefaultPath), "/"),
		Secure:     secure,
		STUNServer: firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER")),
		TURNUser:   firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME")),
		TURNPass:   firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD")),
		ForceRelay: opts.ForceRelay,
		Name:       firstNonEmpty(opts.Name, os.Getenv("DISPLAY_NAME"), DefaultName),
		VideoFile:  opts.VideoFile,
		AudioFile:  opts.AudioFile,
		Silence:    opts.Silence,
	}, nil
}

// SignalingURL returns the relay endpoint for a room:
// <ws|wss>://<host>:<port>/<path>/<room>
func (c *Config) SignalingURL(room string) string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Path + "/" + room,
	}
	if c.Path == "" {
		u.Path = "/" + room
	}
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
