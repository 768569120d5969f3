package main

import (
	"context"
	"strings"
	"testing"
)

func TestE2ERegionFailureIsIsolated(t *testing.T) {
	src := `
(pocket "big" (rect 0 0 80 50))
(pocket "tiny" (rect 100 0 4 4))
(pocket "outside" (rect 200 0 40 40) (rect 230 30 20 20))
`
	result := NewApp(nil).Evaluate(context.Background(), src)

	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	if !result.Results[0].OK() {
		t.Errorf("region big failed: %v", result.Results[0].Err)
	}
	if result.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", result.Failed())
	}
	msgs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		msgs = append(msgs, e.Message)
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{`pocket "tiny"`, `pocket "outside"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors %q do not name %s", joined, want)
		}
	}
}

func TestE2EOpenDrawingWarns(t *testing.T) {
	// The closed square chains; the stray segment is reported.
	src := `
(pocket "square"
  (line (pt 0 0) (pt 40 0))
  (line (pt 40 0) (pt 40 40))
  (line (pt 40 40) (pt 0 40))
  (line (pt 0 40) (pt 0 0))
  (line (pt 60 0) (pt 80 10)))
`
	result := NewApp(nil).Evaluate(context.Background(), src)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, `pocket "square"`) && strings.Contains(strings.ToLower(w.Message), "open") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an open path warning, got %v", result.Warnings)
	}
}

func TestE2EInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"zero tool", `(params :tool-diameter 0) (pocket "a" (rect 0 0 40 40))`},
		{"negative margin", `(params :margin -1) (pocket "a" (rect 0 0 40 40))`},
		{"fillet bounds", `(params :min-fillet 3 :max-fillet 1) (pocket "a" (rect 0 0 40 40))`},
		{"zero feed", `(params :feed 0) (pocket "a" (rect 0 0 40 40))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewApp(nil).Evaluate(context.Background(), tt.src)
			if len(result.Errors) == 0 {
				t.Fatal("expected an error")
			}
			if result.Job != nil {
				t.Error("invalid params should produce no job")
			}
		})
	}
}

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// Alternates between valid and invalid sources.
	app := NewApp(nil)

	sources := []string{
		`(pocket "ok" (rect 0 0 40 40))`,
		`(pocket "broken"`,
		``,
		`(pocket "a" missing-shape)`,
		`(pocket "also-ok" (circle 0 0 20))`,
		`(+ 1 2)`,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		`(pocket "last" (rect 0 0 30 30))`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(context.Background(), source)
		}()
	}

	result := app.Evaluate(context.Background(), sources[len(sources)-1])
	if len(result.Errors) > 0 || len(result.Results) != 1 || !result.Results[0].OK() {
		t.Errorf("engine did not recover: %+v", result.Errors)
	}
}

func TestE2ECancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := NewApp(nil).Evaluate(ctx, `(pocket "a" (rect 0 0 40 40))`)
	if len(result.Errors) == 0 {
		t.Fatal("expected a cancellation error")
	}
	if result.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", result.Failed())
	}
}
