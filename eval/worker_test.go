//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package eval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-ai/nimbus/model"
)

// signalingModel signals doneCh once per call and checks ctx liveness.
type signalingModel struct {
	mu       sync.Mutex
	calls    int
	canceled int
	doneCh   chan struct{}
}

func (s *signalingModel) GenerateContent(ctx context.Context, _ *model.Request) (*model.Response, error) {
	s.mu.Lock()
	s.calls++
	if ctx.Err() != nil {
		s.canceled++
	}
	s.mu.Unlock()
	s.doneCh <- struct{}{}
	return &model.Response{
		Choices: []model.Choice{{
			Message: model.NewAssistantMessage(`{"score":0.9,"reasoning":"fine"}`),
		}},
	}, nil
}

func (s *signalingModel) Info() model.Info {
	return model.Info{Name: "judge-model"}
}

func TestWorkerRunsDetachedFromRequestContext(t *testing.T) {
	m := &signalingModel{doneCh: make(chan struct{}, len(Criteria))}
	worker, err := NewWorker(NewJudge(m, WithAttempts(1)), 2)
	require.NoError(t, err)
	defer worker.Release()

	// Cancel the request context before submitting: the evaluation must
	// still run to completion.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.Submit(ctx, testInput())

	for range Criteria {
		select {
		case <-m.doneCh:
		case <-time.After(5 * time.Second):
			t.Fatal("evaluation did not run")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, len(Criteria), m.calls)
	assert.Zero(t, m.canceled, "judge calls must not observe the request cancellation")
}

func TestNewWorkerDefaultSize(t *testing.T) {
	worker, err := NewWorker(NewJudge(&scriptedModel{content: `{}`}), 0)
	require.NoError(t, err)
	worker.Release()
}
