package engine

import (
	"context"
	"errors"
	"testing"
)

func TestTrackOperationPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	err := TrackOperation(context.Background(), "op", func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestTrackOperationPassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := TrackOperation(ctx, "op", func(inner context.Context) error {
		if inner.Value(key{}) != "v" {
			t.Error("context not threaded through")
		}
		return nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
