package resilience

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker("test", BreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Minute}, WithClock(clock.now))
	return b, clock
}

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func succeed() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		if err := b.Do(fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: error = %v, want boom", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err = %v, called = %v", err, called)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)
	b.Do(fail)
	b.Do(succeed)
	b.Do(fail)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerRecovers(t *testing.T) {
	b, clock := newTestBreaker(1)
	b.Do(fail)
	clock.advance(30 * time.Second)
	if err := b.Do(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("before reset timeout: err = %v, want ErrCircuitOpen", err)
	}

	clock.advance(31 * time.Second)
	if err := b.Do(succeed); err != nil {
		t.Fatalf("trial call: err = %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	b, clock := newTestBreaker(1)
	var transitions []string
	b.onStateChange = func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) }

	b.Do(fail)
	clock.advance(time.Minute)
	b.Do(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	want := []string{"closed>open", "open>half-open", "half-open>open"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", transitions, want)
			break
		}
	}
}

func TestBreakerHalfOpenLimit(t *testing.T) {
	b, clock := newTestBreaker(1)
	b.Do(fail)
	clock.advance(time.Minute)

	release := make(chan struct{})
	done := make(chan error)
	go func() { done <- b.Do(func() error { <-release; return nil }) }()

	for b.State() != StateHalfOpen {
		time.Sleep(time.Millisecond)
	}
	if err := b.Do(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second trial: err = %v, want ErrCircuitOpen", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first trial: err = %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}
