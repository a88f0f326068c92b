package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

func TestNewServerSetsAddr(t *testing.T) {
	server := NewServer("8080", logr.Discard())
	if server.server.Addr != ":8080" {
		t.Errorf("Addr = %s, want :8080", server.server.Addr)
	}
}

func TestServerStartStop(t *testing.T) {
	server := NewServer("0", logr.Discard())
	server.StartAsync()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
