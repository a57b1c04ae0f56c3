// internal/line/line_test.go
package line

import (
	"errors"
	"sync"
	"testing"
)

func TestInvertInput(t *testing.T) {
	raw := NewFake(false)
	in := InvertInput(raw)

	v, err := in.Read()
	if err != nil {
		t.Fatalf("read err=%v", err)
	}
	if !v {
		t.Fatalf("low wire should read asserted through inverter")
	}

	raw.Drive(true)
	if v, _ := in.Read(); v {
		t.Fatalf("high wire should read de-asserted through inverter")
	}
}

func TestInvertOutput(t *testing.T) {
	raw := NewFake(false)
	out := InvertOutput(raw)

	if err := out.Set(true); err != nil {
		t.Fatalf("set err=%v", err)
	}
	if raw.Level() {
		t.Fatalf("asserting an inverted output must drive the wire low")
	}
	if err := out.Set(false); err != nil {
		t.Fatalf("set err=%v", err)
	}
	if !raw.Level() {
		t.Fatalf("de-asserting an inverted output must drive the wire high")
	}
}

func TestFake_FailPropagates(t *testing.T) {
	f := NewFake(true)
	boom := errors.New("boom")
	f.Fail(boom)

	if _, err := InvertInput(f).Read(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := f.Set(false); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if f.Writes() != 0 {
		t.Fatalf("failed writes must not be counted")
	}
}

func TestInvert_Nil(t *testing.T) {
	if InvertInput(nil) != nil || InvertOutput(nil) != nil {
		t.Fatalf("inverting a nil line should stay nil")
	}
}

func TestSyncOutput_ConcurrentWriters(t *testing.T) {
	raw := NewFake(true)
	out := SyncOutput(raw)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := out.Set(false); err != nil {
					t.Errorf("set err=%v", err)
				}
			}
		}()
	}
	wg.Wait()

	if raw.Level() || raw.Writes() != 400 {
		t.Fatalf("level=%v writes=%d", raw.Level(), raw.Writes())
	}
	if SyncOutput(nil) != nil {
		t.Fatalf("nil output must stay nil")
	}
}
