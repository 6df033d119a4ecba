package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// For a pipeline with no failures, the final data equals the fold of every
// step applied in order over the initial context.
func TestExecute_EqualsFoldOfSteps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		increments := make([]int, n)
		for i := range increments {
			increments[i] = rapid.IntRange(-100, 100).Draw(t, "inc")
		}

		p := New()
		for i, inc := range increments {
			inc := inc
			p.Step(fmt.Sprintf("s%d", i), func(ctx context.Context, data Context) (Context, error) {
				data["acc"] = data["acc"].(int) + inc
				return data, nil
			})
		}

		seed := rapid.IntRange(-1000, 1000).Draw(t, "seed")
		result := p.Execute(context.Background(), Context{"acc": seed}, Options{})

		if !result.Success {
			t.Fatalf("pipeline unexpectedly failed")
		}
		expected := seed
		for _, inc := range increments {
			expected += inc
		}
		if got := result.Data["acc"].(int); got != expected {
			t.Fatalf("expected fold %d, got %d", expected, got)
		}
	})
}

// With the default policy, a failure at step k prevents every later step from
// executing; with ContinueOnError all steps run and the result is failed.
func TestExecute_FailurePolicies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		k := rapid.IntRange(0, n-1).Draw(t, "k")
		continueOnError := rapid.Bool().Draw(t, "continueOnError")

		calls := 0
		p := New()
		for i := 0; i < n; i++ {
			i := i
			p.Step(fmt.Sprintf("s%d", i), func(ctx context.Context, data Context) (Context, error) {
				calls++
				if i == k {
					return nil, errors.New("injected")
				}
				return data, nil
			})
		}

		result := p.Execute(context.Background(), Context{}, Options{ContinueOnError: continueOnError})

		if result.Success {
			t.Fatalf("pipeline with a failing step reported success")
		}
		expectedCalls := k + 1
		if continueOnError {
			expectedCalls = n
		}
		if calls != expectedCalls {
			t.Fatalf("expected %d step calls, got %d", expectedCalls, calls)
		}
		if len(result.Steps) != n {
			t.Fatalf("expected a record for all %d steps, got %d", n, len(result.Steps))
		}
		for i, rec := range result.Steps {
			wantSkipped := !continueOnError && i > k
			if rec.Skipped != wantSkipped {
				t.Fatalf("step %d: skipped=%v, want %v", i, rec.Skipped, wantSkipped)
			}
		}
	})
}
