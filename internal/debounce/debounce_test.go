// internal/debounce/debounce_test.go
package debounce

import (
	"math/rand"
	"testing"
	"time"
)

const window = 250 * time.Millisecond

func TestUpdate_AcceptsStableChange(t *testing.T) {
	t0 := time.Unix(1000, 0)
	d := New(window, true)

	if got := d.Update(false, t0); !got {
		t.Fatalf("change must not be accepted immediately")
	}
	if got := d.Update(false, t0.Add(window)); !got {
		t.Fatalf("change must not be accepted at exactly the window")
	}
	if got := d.Update(false, t0.Add(window+time.Millisecond)); got {
		t.Fatalf("stable change must be accepted after the window")
	}
}

func TestUpdate_FlickerIgnored(t *testing.T) {
	t0 := time.Unix(1000, 0)
	d := New(window, true)

	// Long quiet period first so a naive implementation would accept at once.
	d.Update(true, t0)
	now := t0.Add(10 * time.Second)

	d.Update(false, now)
	d.Update(false, now.Add(100*time.Millisecond))
	d.Update(true, now.Add(200*time.Millisecond))
	for i := 0; i < 50; i++ {
		if !d.Update(true, now.Add(time.Duration(200+10*i)*time.Millisecond)) {
			t.Fatalf("flicker produced an accepted transition")
		}
	}
}

func TestUpdate_Rollover(t *testing.T) {
	t0 := time.Unix(5000, 0)
	d := New(window, true)
	d.Update(true, t0)

	// Clock jumps backwards; the raw change must still wait a full window.
	back := t0.Add(-time.Hour)
	if !d.Update(false, back) {
		t.Fatalf("backwards clock must not produce an instant transition")
	}
	if !d.Update(false, back.Add(window/2)) {
		t.Fatalf("accepted before the window elapsed after rollover")
	}
	if d.Update(false, back.Add(window+time.Millisecond)) {
		t.Fatalf("change should be accepted one window after rollover")
	}
}

func TestUpdate_TransitionsSeparatedByWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Unix(0, 0)
	d := New(window, false)

	var last time.Time
	haveLast := false
	prev := d.Value()
	for run := 0; run < 2000; run++ {
		// Hold a random level for a random time, sampled every 1-10 ms.
		raw := rng.Intn(2) == 0
		hold := time.Duration(rng.Intn(600)) * time.Millisecond
		for end := now.Add(hold); now.Before(end); {
			now = now.Add(time.Duration(1+rng.Intn(10)) * time.Millisecond)
			got := d.Update(raw, now)
			if got != prev {
				if haveLast && now.Sub(last) < window {
					t.Fatalf("transitions %v apart, window %v", now.Sub(last), window)
				}
				last = now
				haveLast = true
				prev = got
			}
		}
	}
	if !haveLast {
		t.Fatalf("random sequence never produced a transition; test is vacuous")
	}
}

func TestReset(t *testing.T) {
	t0 := time.Unix(0, 0)
	d := New(window, true)
	d.Reset(false, t0)
	if d.Value() {
		t.Fatalf("reset value not applied")
	}
	if d.Update(true, t0.Add(time.Millisecond)) {
		t.Fatalf("reset must restart the window")
	}
}
