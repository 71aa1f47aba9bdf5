package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SIGNALING_HOST", "SIGNALING_PORT", "SIGNALING_PATH", "SIGNALING_SECURE", "STUN_SERVER", "TURN_SERVER", "DISPLAY_NAME"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != DefaultHost || cfg.Port != DefaultPort || cfg.Path != DefaultPath {
		t.Fatalf("endpoint=%s:%d/%s, want defaults", cfg.Host, cfg.Port, cfg.Path)
	}
	if cfg.Secure {
		t.Fatalf("Secure=true, want false")
	}
	if cfg.Name != DefaultName {
		t.Fatalf("Name=%q, want %q", cfg.Name, DefaultName)
	}
	if got := cfg.GetTURNServers(); got != nil {
		t.Fatalf("GetTURNServers()=%v, want nil", got)
	}
}

func TestLoad_Priority(t *testing.T) {
	t.Setenv("SIGNALING_HOST", "env.example.com")
	t.Setenv("SIGNALING_PORT", "9000")
	t.Setenv("DISPLAY_NAME", "env-name")

	cfg, err := Load(Options{Host: "flag.example.com"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "flag.example.com" {
		t.Fatalf("Host=%q, want flag value", cfg.Host)
	}
	if cfg.Port != 9000 {
		t.Fatalf("Port=%d, want env value 9000", cfg.Port)
	}
	if cfg.Name != "env-name" {
		t.Fatalf("Name=%q, want env value", cfg.Name)
	}
}

func TestLoad_PageSuppliesHostAndScheme(t *testing.T) {
	t.Setenv("SIGNALING_HOST", "")
	t.Setenv("SIGNALING_SECURE", "")

	cfg, err := Load(Options{Page: &Page{Host: "meet.example.com", Secure: true, Room: "42"}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.SignalingURL("42"), "wss://meet.example.com:8000/ws/42"; got != want {
		t.Fatalf("SignalingURL=%q, want %q", got, want)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("SIGNALING_PORT", "nope")
	if _, err := Load(Options{}); err == nil {
		t.Fatalf("Load succeeded with invalid SIGNALING_PORT")
	}
}

func TestSignalingURL(t *testing.T) {
	tests := []struct {
		cfg  Config
		room string
		want string
	}{
		{Config{Host: "localhost", Port: 8000, Path: "ws"}, "abc", "ws://localhost:8000/ws/abc"},
		{Config{Host: "example.com", Port: 443, Path: "signal", Secure: true}, "r1", "wss://example.com:443/signal/r1"},
		{Config{Host: "::1", Port: 8000, Path: "ws"}, "x", "ws://[::1]:8000/ws/x"},
		{Config{Host: "h", Port: 1, Path: ""}, "x", "ws://h:1/x"},
	}
	for _, tt := range tests {
		if got := tt.cfg.SignalingURL(tt.room); got != tt.want {
			t.Fatalf("SignalingURL(%q)=%q, want %q", tt.room, got, tt.want)
		}
	}
}

func TestGetTURNServers(t *testing.T) {
	cfg := Config{TURNServer: "turn:relay.example.com", TURNUser: "u", TURNPass: "p"}
	want := []string{
		"turn:relay.example.com:3478?transport=udp",
		"turn:relay.example.com:3478?transport=tcp",
		"turns:relay.example.com:5349?transport=tcp",
	}
	if got := cfg.GetTURNServers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetTURNServers()=%v, want %v", got, want)
	}
	if u, p := cfg.GetTURNCredentials(); u != "u" || p != "p" {
		t.Fatalf("credentials=(%q,%q)", u, p)
	}
}

func TestParseRoomInput(t *testing.T) {
	tests := []struct {
		in       string
		wantRoom string
		wantPage *Page
		wantErr  bool
	}{
		{in: "abc123", wantRoom: "abc123"},
		{in: "https://meet.example.com/rooms/42/", wantRoom: "42", wantPage: &Page{Host: "meet.example.com", Secure: true, Room: "42"}},
		{in: "http://localhost:8080/rooms/7", wantRoom: "7", wantPage: &Page{Host: "localhost", Room: "7"}},
		{in: "", wantErr: true},
		{in: "a/b", wantErr: true},
		{in: "ftp://x/rooms/1", wantErr: true},
		{in: "https://meet.example.com/", wantErr: true},
	}
	for _, tt := range tests {
		room, page, err := ParseRoomInput(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRoomInput(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRoomInput(%q): %v", tt.in, err)
		}
		if room != tt.wantRoom {
			t.Fatalf("ParseRoomInput(%q) room=%q, want %q", tt.in, room, tt.wantRoom)
		}
		if !reflect.DeepEqual(page, tt.wantPage) {
			t.Fatalf("ParseRoomInput(%q) page=%+v, want %+v", tt.in, page, tt.wantPage)
		}
	}
}

func TestGenerateRoomName(t *testing.T) {
	name := GenerateRoomName()

	parts := strings.Split(name, "-")
	if len(parts) != 3 {
		t.Fatalf("room name %q should have three words", name)
	}

	room, page, err := ParseRoomInput(name)
	if err != nil || room != name || page != nil {
		t.Fatalf("generated name %q does not round-trip: room=%q page=%v err=%v", name, room, page, err)
	}
}
