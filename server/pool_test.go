package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chess-opponent/engine"
)

func TestSearchPoolAcquire(t *testing.T) {
	p := NewSearchPool(1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.TryAcquire() {
		t.Fatal("TryAcquire succeeded on a full pool")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Acquire(ctx)
	if !errors.Is(err, ErrPoolSaturated) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire on a full pool = %v", err)
	}

	p.Release()
	if st := p.Stats(); st.Active != 0 || st.Queued != 0 || st.Total != 1 || st.Workers != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSearchPoolGo(t *testing.T) {
	p := NewSearchPool(2)
	release := make(chan struct{})
	done, err := p.Go(context.Background(), func() { <-release })
	if err != nil {
		t.Fatal(err)
	}
	if st := p.Stats(); st.Active != 1 {
		t.Errorf("active = %d while running", st.Active)
	}
	close(release)
	<-done
	if st := p.Stats(); st.Active != 0 || st.Total != 1 {
		t.Errorf("stats after run = %+v", st)
	}
	if !p.TryAcquire() || !p.TryAcquire() {
		t.Error("slots were not returned")
	}
}

func TestNewSearchPoolClampsWorkers(t *testing.T) {
	if w := NewSearchPool(0).Stats().Workers; w != 1 {
		t.Errorf("workers = %d", w)
	}
}

func TestSearchTimeoutHandsResultToLateCallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchTimeout = 10 * time.Millisecond
	s, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	late := make(chan engine.Result, 1)
	_, err = s.search(context.Background(), func() engine.Result {
		<-release
		return engine.Result{Found: true, Depth: 7}
	}, func(res engine.Result) { late <- res })
	if !errors.Is(err, ErrSearchTimeout) {
		t.Fatalf("search = %v, want ErrSearchTimeout", err)
	}
	if statusFor(err) != 504 {
		t.Errorf("status = %d", statusFor(err))
	}

	close(release)
	select {
	case res := <-late:
		if !res.Found || res.Depth != 7 {
			t.Errorf("late result = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("late callback never ran")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrGameNotFound, 404},
		{ErrGameOver, 409},
		{ErrNotYourTurn, 409},
		{ErrEngineThinking, 409},
		{errors.Join(ErrPoolSaturated, context.Canceled), 503},
		{ErrSearchTimeout, 504},
		{engine.ErrUnknownTier, 400},
		{errBadRequest, 400},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	bad := DefaultConfig()
	bad.MaxDepth = 0
	if err := bad.Validate(); err == nil {
		t.Error("MaxDepth 0 accepted")
	}
	bad = DefaultConfig()
	bad.Backend = "nope"
	if err := bad.Validate(); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestSearchPoolReleaseWakesWaiter(t *testing.T) {
	p := NewSearchPool(1)
	if !p.TryAcquire() {
		t.Fatal("TryAcquire on an empty pool failed")
	}

	acquired := make(chan error, 1)
	go func() { acquired <- p.Acquire(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for p.Stats().Queued != 1 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never queued")
		}
		time.Sleep(time.Millisecond)
	}
	p.Release()

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Acquire after release = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken by Release")
	}
	if st := p.Stats(); st.Active != 1 || st.Queued != 0 || st.Total != 1 {
		t.Errorf("stats = %+v", st)
	}
	p.Release()
}
