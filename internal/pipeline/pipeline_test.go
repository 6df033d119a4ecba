package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Empty(t *testing.T) {
	initial := Context{"seed": 1}

	result := New().Execute(context.Background(), initial, Options{})

	assert.True(t, result.Success)
	assert.Equal(t, initial, result.Data)
	assert.Empty(t, result.Steps)
}

func TestPipeline_StepsRunInOrder(t *testing.T) {
	var order []string
	p := New().
		Step("first", func(ctx context.Context, data Context) (Context, error) {
			order = append(order, "first")
			data["a"] = 1
			return data, nil
		}).
		Step("second", func(ctx context.Context, data Context) (Context, error) {
			order = append(order, "second")
			data["b"] = data["a"].(int) + 1
			return data, nil
		})

	result := p.Execute(context.Background(), Context{}, Options{})

	require.True(t, result.Success)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 2, result.Data["b"])
	require.Len(t, result.Steps, 2)
	for _, rec := range result.Steps {
		assert.True(t, rec.Success)
		assert.GreaterOrEqual(t, rec.Duration.Nanoseconds(), int64(0))
	}
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	p := New().
		Step("ok", func(ctx context.Context, data Context) (Context, error) {
			calls++
			return data, nil
		}).
		Step("boom", func(ctx context.Context, data Context) (Context, error) {
			calls++
			return nil, errors.New("boom")
		}).
		Step("never", func(ctx context.Context, data Context) (Context, error) {
			calls++
			return data, nil
		})

	result := p.Execute(context.Background(), Context{}, Options{})

	assert.False(t, result.Success)
	assert.Equal(t, 2, calls, "steps after the failure must not execute")
	require.Len(t, result.Steps, 3)
	assert.Equal(t, "boom", result.Steps[1].Error)
	assert.True(t, result.Steps[2].Skipped, "short-circuited steps are recorded as skipped")
	assert.False(t, result.Steps[2].Success)
	assert.Equal(t, "never", result.Steps[2].Name)
}

func TestPipeline_ContinueOnError(t *testing.T) {
	calls := 0
	p := New().
		Step("boom", func(ctx context.Context, data Context) (Context, error) {
			calls++
			data["poison"] = true
			return data, errors.New("boom")
		}).
		Step("after", func(ctx context.Context, data Context) (Context, error) {
			calls++
			data["after"] = true
			return data, nil
		})

	result := p.Execute(context.Background(), Context{}, Options{ContinueOnError: true})

	assert.False(t, result.Success, "overall result reflects the failure")
	assert.Equal(t, 2, calls, "all steps execute under continue-on-error")
	assert.Equal(t, true, result.Data["after"])
	assert.NotContains(t, result.Data, "poison", "failed step's mutations are discarded")
}

func TestPipeline_PanicCoercedToError(t *testing.T) {
	p := New().Step("panics", func(ctx context.Context, data Context) (Context, error) {
		panic(42)
	})

	result := p.Execute(context.Background(), Context{}, Options{})

	assert.False(t, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "42", result.Steps[0].Error)
}
