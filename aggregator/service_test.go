package aggregator_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/fedlearn/aggregator"
	"github.com/absmach/fedlearn/directory"
	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
	"github.com/absmach/fedlearn/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, size, expected int, dynamic bool) (aggregator.Service, directory.Service) {
	t.Helper()

	members := directory.NewService(storage.NewInMemoryStorage(), discardLogger())

	return aggregator.NewService(model.Zeros(size), expected, dynamic, members, nil, nil, discardLogger()), members
}

func submit(id string, round uint64, values []float64) messages.UpdateSubmission {
	return messages.UpdateSubmission{
		ParticipantID: id,
		RoundNumber:   round,
		Parameters:    model.NewParameters(values),
	}
}

func TestSubmitUpdateClosesRound(t *testing.T) {
	svc, _ := newTestService(t, 4, 3, false)
	ctx := context.Background()

	r1, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{1, 1, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, 1, r1.Received)
	assert.Equal(t, 3, r1.Expected)
	assert.False(t, r1.ClosedRound)

	r2, err := svc.SubmitUpdate(ctx, submit("agent-2", 0, []float64{2, 2, 2, 2}))
	require.NoError(t, err)
	assert.False(t, r2.ClosedRound)

	r3, err := svc.SubmitUpdate(ctx, submit("agent-3", 0, []float64{0, 0, 0, 0}))
	require.NoError(t, err)
	assert.True(t, r3.ClosedRound)

	global, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), global.RoundNumber)
	assert.Equal(t, []float64{1, 1, 1, 1}, global.Parameters.Values)

	_, err = svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{5, 5, 5, 5}))
	assert.ErrorIs(t, err, pkgerrors.ErrStaleRound)
}

func TestSubmitUpdateRejections(t *testing.T) {
	tests := []struct {
		name string
		subs []messages.UpdateSubmission
		last messages.UpdateSubmission
		err  error
	}{
		{
			name: "future round",
			last: submit("agent-1", 5, []float64{1, 1, 1, 1}),
			err:  pkgerrors.ErrFutureRound,
		},
		{
			name: "shape mismatch",
			last: submit("agent-1", 0, []float64{1, 2, 3}),
			err:  pkgerrors.ErrShapeMismatch,
		},
		{
			name: "duplicate submission",
			subs: []messages.UpdateSubmission{
				submit("agent-1", 0, []float64{1, 1, 1, 1}),
			},
			last: submit("agent-1", 0, []float64{9, 9, 9, 9}),
			err:  pkgerrors.ErrDuplicateSubmission,
		},
		{
			name: "empty participant id",
			last: submit("", 0, []float64{1, 1, 1, 1}),
			err:  pkgerrors.ErrEmptyKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, 4, 3, false)
			ctx := context.Background()

			for _, sub := range tt.subs {
				_, err := svc.SubmitUpdate(ctx, sub)
				require.NoError(t, err)
			}

			before, err := svc.GetGlobalModel(ctx)
			require.NoError(t, err)

			_, err = svc.SubmitUpdate(ctx, tt.last)
			assert.ErrorIs(t, err, tt.err)

			after, err := svc.GetGlobalModel(ctx)
			require.NoError(t, err)
			assert.Equal(t, before, after, "rejection must not change round state")
		})
	}
}

func TestDuplicateKeepsFirstUpdate(t *testing.T) {
	svc, _ := newTestService(t, 2, 2, false)
	ctx := context.Background()

	_, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{2, 2}))
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{100, 100}))
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicateSubmission)

	r, err := svc.SubmitUpdate(ctx, submit("agent-2", 0, []float64{4, 4}))
	require.NoError(t, err)
	assert.True(t, r.ClosedRound)

	global, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, global.Parameters.Values)
}

func TestAggregationOrderIndependent(t *testing.T) {
	updates := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	orders := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 0, 2},
	}

	var results [][]float64
	for _, order := range orders {
		svc, _ := newTestService(t, 3, 3, false)
		ctx := context.Background()

		for i, idx := range order {
			_, err := svc.SubmitUpdate(ctx, submit(
				string(rune('a'+i)), 0, updates[idx],
			))
			require.NoError(t, err)
		}

		global, err := svc.GetGlobalModel(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), global.RoundNumber)
		results = append(results, global.Parameters.Values)
	}

	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0], results[i])
	}
	assert.Equal(t, []float64{4, 5, 6}, results[0])
}

func TestExactlyOneClosure(t *testing.T) {
	const participants = 16

	svc, _ := newTestService(t, 1, participants, false)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]aggregator.SubmitResult, participants)

	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.SubmitUpdate(ctx, submit(
				string(rune('a'+i)), 0, []float64{float64(i)},
			))
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	closures := 0
	for _, r := range results {
		if r.ClosedRound {
			closures++
		}
	}
	assert.Equal(t, 1, closures, "exactly one submitter must observe closure")

	global, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), global.RoundNumber)
	assert.InDelta(t, 7.5, global.Parameters.Values[0], 1e-9)
}

func TestExpectedCountClampedToOne(t *testing.T) {
	for _, count := range []int{0, -3} {
		svc, _ := newTestService(t, 2, count, false)
		ctx := context.Background()

		r, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{4, 6}))
		require.NoError(t, err)
		assert.Equal(t, 1, r.Expected)
		assert.LessOrEqual(t, r.Received, r.Expected)
		assert.True(t, r.ClosedRound, "a single submission must close the clamped barrier")

		global, err := svc.GetGlobalModel(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), global.RoundNumber)
		assert.Equal(t, []float64{4, 6}, global.Parameters.Values)
	}
}

func TestGetGlobalModelIdempotentMidRound(t *testing.T) {
	svc, _ := newTestService(t, 2, 2, false)
	ctx := context.Background()

	before, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{8, 8}))
	require.NoError(t, err)

	mid, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, mid, "pending updates must not leak into reads")
}

func TestGlobalModelCloneIsolated(t *testing.T) {
	svc, _ := newTestService(t, 2, 1, false)
	ctx := context.Background()

	_, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{6, 6}))
	require.NoError(t, err)

	global, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	global.Parameters.Values[0] = -1

	again, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6}, again.Parameters.Values)
}

func TestDynamicMembershipRecomputesAtRoundOpen(t *testing.T) {
	svc, _ := newTestService(t, 1, 1, true)
	ctx := context.Background()

	for _, reg := range []messages.Registration{
		{ParticipantID: "agent-1", Address: "http://localhost:9001"},
		{ParticipantID: "agent-2", Address: "http://localhost:9002"},
	} {
		_, err := svc.Register(ctx, reg)
		require.NoError(t, err)
	}

	// Round 0 still needs the configured single participant.
	r, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{1}))
	require.NoError(t, err)
	require.True(t, r.ClosedRound)

	// Round 1 opened with two live members, so one update cannot close it.
	r, err = svc.SubmitUpdate(ctx, submit("agent-1", 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Expected)
	assert.False(t, r.ClosedRound)

	r, err = svc.SubmitUpdate(ctx, submit("agent-2", 1, []float64{3}))
	require.NoError(t, err)
	assert.True(t, r.ClosedRound)

	global, err := svc.GetGlobalModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), global.RoundNumber)
	assert.Equal(t, []float64{2}, global.Parameters.Values)
}

func TestExpectedCountStableMidRound(t *testing.T) {
	svc, _ := newTestService(t, 1, 2, true)
	ctx := context.Background()

	r, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{1}))
	require.NoError(t, err)
	require.Equal(t, 2, r.Expected)

	// A registration mid-round must not change the active round's barrier.
	_, err = svc.Register(ctx, messages.Registration{
		ParticipantID: "agent-3", Address: "http://localhost:9003",
	})
	require.NoError(t, err)

	r, err = svc.SubmitUpdate(ctx, submit("agent-2", 0, []float64{3}))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Expected)
	assert.True(t, r.ClosedRound)
}

func TestGetParticipantView(t *testing.T) {
	svc, members := newTestService(t, 1, 1, false)
	ctx := context.Background()

	_, err := svc.Register(ctx, messages.Registration{
		ParticipantID: "agent-1",
		Address:       "http://localhost:9001",
		TTL:           time.Millisecond,
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, messages.Registration{
		ParticipantID: "agent-2",
		Address:       "http://localhost:9002",
		TTL:           time.Hour,
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	view, err := svc.GetParticipantView(ctx)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, aggregator.StatusExpired, view[0].Status)
	assert.Equal(t, aggregator.StatusAlive, view[1].Status)

	// The expired record is still listed until a sweep removes it.
	members.Sweep(ctx)
	view, err = svc.GetParticipantView(ctx)
	require.NoError(t, err)
	assert.Len(t, view, 1)
}

func TestRenewLeaseLifecycle(t *testing.T) {
	svc, _ := newTestService(t, 1, 1, false)
	ctx := context.Background()

	lease, err := svc.Register(ctx, messages.Registration{
		ParticipantID: "agent-1",
		Address:       "http://localhost:9001",
		TTL:           time.Hour,
	})
	require.NoError(t, err)
	require.NotEmpty(t, lease.ID)

	assert.NoError(t, svc.RenewLease(ctx, lease.ID))
	assert.ErrorIs(t, svc.RenewLease(ctx, "no-such-lease"), pkgerrors.ErrLeaseExpired)
}

func TestStatus(t *testing.T) {
	svc, _ := newTestService(t, 1, 3, false)
	ctx := context.Background()

	_, err := svc.SubmitUpdate(ctx, submit("agent-1", 0, []float64{1}))
	require.NoError(t, err)

	reply, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "aggregator", reply.Role)
	assert.Contains(t, reply.State, "1/3")
}
