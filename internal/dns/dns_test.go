package dns

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixed(ips ...string) lookupFunc {
	return func(context.Context, string) ([]string, error) { return ips, nil }
}

func failing(context.Context, string) ([]string, error) {
	return nil, errors.New("no such host")
}

func TestLookupIPLiteral(t *testing.T) {
	r := &Resolver{local: failing}
	for _, host := range []string{"127.0.0.1", "::1"} {
		got, err := r.Lookup(context.Background(), host)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", host, err)
		}
		if got != host {
			t.Fatalf("Lookup(%q) = %q", host, got)
		}
	}
}

func TestLookupPrefersIPv4(t *testing.T) {
	r := &Resolver{LocalTimeout: time.Second, local: fixed("2001:db8::1", "192.0.2.7")}
	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatal(err)
	}
	if got != "192.0.2.7" {
		t.Fatalf("got %q, want 192.0.2.7", got)
	}
}

func TestLookupFallsBackToPublic(t *testing.T) {
	r := &Resolver{
		LocalTimeout:  time.Second,
		RemoteTimeout: time.Second,
		local:         failing,
		remote:        []lookupFunc{failing, fixed("198.51.100.3")},
	}
	got, err := r.Lookup(context.Background(), "relay.example")
	if err != nil {
		t.Fatal(err)
	}
	if got != "198.51.100.3" {
		t.Fatalf("got %q", got)
	}
}

func TestLookupAllFail(t *testing.T) {
	r := &Resolver{
		LocalTimeout:  time.Second,
		RemoteTimeout: time.Second,
		local:         failing,
		remote:        []lookupFunc{failing, failing},
	}
	if _, err := r.Lookup(context.Background(), "relay.example"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTrimBrackets(t *testing.T) {
	if got := trimBrackets("[2620:fe::fe]"); got != "2620:fe::fe" {
		t.Fatalf("got %q", got)
	}
	if got := trimBrackets("9.9.9.9"); got != "9.9.9.9" {
		t.Fatalf("got %q", got)
	}
}
