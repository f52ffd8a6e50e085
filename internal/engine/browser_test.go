package engine

import (
	"context"
	"testing"
	"time"
)

func TestScrollContextEnforcesBudget(t *testing.T) {
	Init(Config{ScrollBudget: 20 * time.Millisecond})
	t.Cleanup(func() { Init(Config{}) })

	ctx, cancel := ScrollContext(context.Background())
	defer cancel()

	if ctx.Err() != nil {
		t.Fatal("budget expired before any work")
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("no deadline on scroll context")
	}
	if until := time.Until(deadline); until > 20*time.Millisecond {
		t.Errorf("deadline %v out, want at most the configured budget", until)
	}

	time.Sleep(50 * time.Millisecond)
	if ctx.Err() == nil {
		t.Fatal("budget never expired")
	}
}

func TestScrollContextInheritsCancellation(t *testing.T) {
	Init(Config{ScrollBudget: time.Hour})
	t.Cleanup(func() { Init(Config{}) })

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := ScrollContext(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation did not propagate")
	}
}
