package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

// admits reports whether tool gets a token without a noticeable wait.
func admits(t *testing.T, l *Limiter, tool string) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, tool) == nil
}

func TestNilLimiterAdmitsEverything(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background(), "echo"); err != nil {
		t.Fatalf("Wait on nil limiter: %v", err)
	}
}

func TestToolPolicyOverridesWildcard(t *testing.T) {
	l, err := New([]models.RateLimitPolicy{
		{Tool: "*", RPS: 0.001, Burst: 1},
		{Tool: "echo", RPS: 1000, Burst: 10},
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if !admits(t, l, "echo") {
			t.Fatalf("echo call %d rejected", i)
		}
	}

	if !admits(t, l, "read_file") {
		t.Fatal("first wildcard call rejected")
	}
	if admits(t, l, "list_files") {
		t.Error("wildcard bucket is shared and should be exhausted")
	}
}

func TestUnlimitedWithoutWildcard(t *testing.T) {
	l, err := New([]models.RateLimitPolicy{{Tool: "execute_command", RPS: 0.001, Burst: 1}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if !admits(t, l, "echo") {
			t.Fatal("tool without policy must not be limited")
		}
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l, err := New([]models.RateLimitPolicy{{Tool: "slow", RPS: 0.001, Burst: 1}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := l.Wait(ctx, "slow"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "slow"); err == nil {
		t.Fatal("expected Wait to fail once the bucket is empty")
	}
}

func TestInvalidPolicies(t *testing.T) {
	tests := []struct {
		name     string
		policies []models.RateLimitPolicy
	}{
		{"missing tool", []models.RateLimitPolicy{{RPS: 1}}},
		{"zero rps", []models.RateLimitPolicy{{Tool: "echo"}}},
		{"duplicate", []models.RateLimitPolicy{{Tool: "echo", RPS: 1}, {Tool: "echo", RPS: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.policies)
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}
