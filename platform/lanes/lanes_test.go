package lanes

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueue_SameLaneRunsInArrivalOrder(t *testing.T) {
	svc := New()
	ctx := context.Background()

	const n = 25
	var mu sync.Mutex
	var order []int

	results := make([]<-chan Result, 0, n)
	for i := 0; i < n; i++ {
		i := i
		results = append(results, svc.Enqueue(ctx, "contractor-1", func(context.Context) (any, error) {
			// Random sleep so out-of-order execution would surface.
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}

	for i, ch := range results {
		res := <-ch
		if res.Err != nil {
			t.Fatalf("task %d failed: %v", i, res.Err)
		}
	}

	for i, got := range order {
		if got != i {
			t.Fatalf("expected arrival order, got %v", order)
		}
	}
}

func TestEnqueue_DifferentLanesDoNotSerialize(t *testing.T) {
	svc := New()
	ctx := context.Background()

	slowStarted := make(chan struct{})
	release := make(chan struct{})

	slow := svc.Enqueue(ctx, "contractor-slow", func(context.Context) (any, error) {
		close(slowStarted)
		<-release
		return nil, nil
	})

	<-slowStarted

	fast := svc.Enqueue(ctx, "contractor-fast", func(context.Context) (any, error) {
		return "done", nil
	})

	select {
	case res := <-fast:
		if res.Err != nil {
			t.Fatalf("fast lane task failed: %v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fast lane blocked behind unrelated slow lane")
	}

	close(release)
	<-slow
}

func TestEnqueue_TaskErrorDoesNotStallLane(t *testing.T) {
	svc := New()
	ctx := context.Background()

	boom := errors.New("boom")
	first := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return nil, boom
	})
	second := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return 42, nil
	})

	if res := <-first; !errors.Is(res.Err, boom) {
		t.Fatalf("expected task error to propagate, got %v", res.Err)
	}
	res := <-second
	if res.Err != nil {
		t.Fatalf("lane stalled after error: %v", res.Err)
	}
	if res.Value != 42 {
		t.Fatalf("expected 42, got %v", res.Value)
	}
}

func TestEnqueue_PanicIsRecovered(t *testing.T) {
	svc := New()
	ctx := context.Background()

	first := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		panic("handler blew up")
	})
	second := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return "ok", nil
	})

	if res := <-first; res.Err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if res := <-second; res.Err != nil {
		t.Fatalf("lane stalled after panic: %v", res.Err)
	}
}

func TestClear_RejectsQueuedTasksOnly(t *testing.T) {
	svc := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	active := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		close(started)
		<-release
		return "active-done", nil
	})
	<-started

	var queued []<-chan Result
	for i := 0; i < 3; i++ {
		queued = append(queued, svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
			return nil, nil
		}))
	}

	if cleared := svc.Clear("lane"); cleared != 3 {
		t.Fatalf("expected 3 cleared tasks, got %d", cleared)
	}

	for i, ch := range queued {
		res := <-ch
		if !errors.Is(res.Err, ErrLaneCleared) {
			t.Fatalf("queued task %d: expected ErrLaneCleared, got %v", i, res.Err)
		}
	}

	// The in-flight task must complete normally.
	close(release)
	res := <-active
	if res.Err != nil || res.Value != "active-done" {
		t.Fatalf("active task affected by clear: %+v", res)
	}

	if depth := svc.QueueDepth("lane"); depth != 0 {
		t.Fatalf("expected empty lane after clear, got depth %d", depth)
	}
}

func TestReset_DiscardsStaleCompletionsAndResumes(t *testing.T) {
	svc := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	old := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		close(started)
		<-release
		return "old", nil
	})
	<-started

	svc.Reset()

	// Post-reset work must run even though the pre-reset task still
	// holds what used to be the lane's only slot.
	fresh := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return "fresh", nil
	})

	select {
	case res := <-fresh:
		if res.Err != nil {
			t.Fatalf("post-reset task failed: %v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("post-reset task never ran")
	}

	// The stale completion still reaches its caller but must not
	// corrupt the lane's active count.
	close(release)
	if res := <-old; res.Value != "old" {
		t.Fatalf("stale task result lost: %+v", res)
	}

	done := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return "after", nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lane wedged after stale completion")
	}
}

func TestSetConcurrency_AllowsBoundedParallelism(t *testing.T) {
	svc := New()
	svc.SetConcurrency("lane", 3)
	ctx := context.Background()

	var concurrent atomic.Int32
	var peak atomic.Int32

	var results []<-chan Result
	for i := 0; i < 12; i++ {
		results = append(results, svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
			now := concurrent.Add(1)
			for {
				seen := peak.Load()
				if now <= seen || peak.CompareAndSwap(seen, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			concurrent.Add(-1)
			return nil, nil
		}))
	}

	for _, ch := range results {
		<-ch
	}

	if got := peak.Load(); got > 3 {
		t.Fatalf("concurrency cap exceeded: peak %d", got)
	}
	if got := peak.Load(); got < 2 {
		t.Fatalf("expected parallelism under cap 3, peak was %d", got)
	}
}

func TestWaitWarning_FiresForLongQueueWaits(t *testing.T) {
	var warned atomic.Int32
	var warnedLane string
	var badWait atomic.Bool
	svc := New(WithWaitWarning(time.Millisecond, func(laneKey string, waited time.Duration, depth int) {
		warned.Add(1)
		warnedLane = laneKey
		if waited < time.Millisecond {
			badWait.Store(true)
		}
	}))
	ctx := context.Background()

	blocker := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	})
	waiter := svc.Enqueue(ctx, "lane", func(context.Context) (any, error) {
		return nil, nil
	})

	<-blocker
	<-waiter

	if warned.Load() == 0 {
		t.Fatalf("expected wait warning to fire")
	}
	if warnedLane != "lane" {
		t.Fatalf("warning fired for wrong lane: %q", warnedLane)
	}
	if badWait.Load() {
		t.Fatalf("warning fired below threshold")
	}
}

func TestRun_RespectsCallerContext(t *testing.T) {
	svc := New()

	started := make(chan struct{})
	release := make(chan struct{})
	go svc.Run(context.Background(), "lane", func(context.Context) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Run(ctx, "lane", func(context.Context) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(release)
}
