package fence

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWait_alreadySignaled(t *testing.T) {
	f := New(nil)
	defer f.Put()
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
	if err := f.Wait(context.Background()); err != nil {
		t.Fatalf(`wait on signaled fence: %v`, err)
	}
}

func TestWait_blocksUntilSignal(t *testing.T) {
	f := New(nil)
	defer f.Put()
	released := make(chan struct{})
	go func() {
		<-released
		if err := f.Signal(); err != nil {
			t.Error(err)
		}
	}()
	close(released)
	if err := f.Wait(context.Background()); err != nil {
		t.Fatalf(`wait: %v`, err)
	}
	if !f.IsSignaled() {
		t.Fatal(`wait returned before signal`)
	}
}

func TestWait_nilContext(t *testing.T) {
	f := New(nil)
	defer f.Put()
	go func() {
		time.Sleep(time.Millisecond)
		_ = f.Signal()
	}()
	if err := f.Wait(nil); err != nil {
		t.Fatalf(`uninterruptible wait: %v`, err)
	}
}

func TestWait_contextCanceled(t *testing.T) {
	f := New(nil)
	defer f.Put()
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()
	err := f.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf(`got %v, want context.Canceled`, err)
	}
	if f.IsSignaled() {
		t.Fatal(`interrupted wait signaled the fence`)
	}
	// the interrupted waiter must have deregistered itself
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
}

func TestWait_preCanceledContext(t *testing.T) {
	f := New(nil)
	defer f.Put()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf(`got %v, want context.Canceled`, err)
	}
}

func TestWaitTimeout_success(t *testing.T) {
	f := New(nil)
	defer f.Put()
	go func() { _ = f.Signal() }()
	remaining, err := f.WaitTimeout(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf(`wait: %v`, err)
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf(`remaining = %v, want within (0, 1m]`, remaining)
	}
}

func TestWaitTimeout_alreadySignaled(t *testing.T) {
	f := New(nil)
	defer f.Put()
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
	remaining, err := f.WaitTimeout(context.Background(), time.Second)
	if err != nil || remaining != time.Second {
		t.Fatalf(`got (%v, %v), want (1s, nil)`, remaining, err)
	}
	// success on an exhausted budget still reports a positive residue
	remaining, err = f.WaitTimeout(context.Background(), 0)
	if err != nil || remaining <= 0 {
		t.Fatalf(`got (%v, %v), want (>0, nil)`, remaining, err)
	}
}

func TestWaitTimeout_expiry(t *testing.T) {
	f := New(nil)
	defer f.Put()
	remaining, err := f.WaitTimeout(context.Background(), time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf(`got %v, want ErrTimeout`, err)
	}
	if remaining != 0 {
		t.Fatalf(`remaining = %v, want 0`, remaining)
	}
	// expired waiter must have deregistered itself
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
}

func TestWaitTimeout_poll(t *testing.T) {
	f := New(nil)
	defer f.Put()
	if remaining, err := f.WaitTimeout(context.Background(), 0); !errors.Is(err, ErrTimeout) || remaining != 0 {
		t.Fatalf(`got (%v, %v), want (0, ErrTimeout)`, remaining, err)
	}
}

func TestWaitTimeout_interruptionPreservesResidue(t *testing.T) {
	f := New(nil)
	defer f.Put()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond)
		cancel()
	}()
	const budget = time.Hour
	remaining, err := f.WaitTimeout(ctx, budget)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf(`got %v, want context.Canceled`, err)
	}
	if remaining <= 0 || remaining >= budget {
		t.Fatalf(`remaining = %v, want within (0, %v)`, remaining, budget)
	}
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
}

func TestWaitTimeout_signalRacesTimer(t *testing.T) {
	// repeatedly race a short timeout against a signal; whichever wins, the
	// result must be coherent
	for i := 0; i < 64; i++ {
		f := New(nil)
		go func() { _ = f.Signal() }()
		remaining, err := f.WaitTimeout(context.Background(), time.Microsecond)
		switch {
		case err == nil:
			if remaining <= 0 {
				t.Fatalf(`success with remaining %v`, remaining)
			}
		case errors.Is(err, ErrTimeout):
			if remaining != 0 {
				t.Fatalf(`timeout with remaining %v`, remaining)
			}
		default:
			t.Fatalf(`unexpected error %v`, err)
		}
		_ = f.Wait(nil) // ensure signaled before Put
		f.Put()
	}
}

func TestWait_multipleWaitersAllWoken(t *testing.T) {
	f := New(nil)
	const n = 8
	done := make(chan int, n)
	ready := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			var cb Callback
			ch := make(chan struct{})
			if err := f.AddCallback(&cb, func(*Fence, *Callback) { close(ch) }); err != nil {
				done <- i
				return
			}
			ready <- struct{}{}
			<-ch
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-ready
	}
	if err := f.Signal(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		<-done
	}
	f.Put()
}
