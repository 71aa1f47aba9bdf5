package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResolveRoom(t *testing.T) {
	room, page, err := resolveRoom("")
	if err != nil || page != nil || strings.Count(room, "-") != 2 {
		t.Fatalf("generated room = %q page=%v err=%v", room, page, err)
	}

	room, page, err = resolveRoom("https://meet.example.com/rooms/standup/")
	if err != nil || room != "standup" || page == nil || !page.Secure {
		t.Fatalf("url room = %q page=%+v err=%v", room, page, err)
	}

	if _, _, err := resolveRoom("a/b"); err == nil {
		t.Fatal("room with a slash was accepted")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunRelayServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runRelay(ctx, port, "ws") }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("health status = %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runRelay: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not shut down")
	}
}
