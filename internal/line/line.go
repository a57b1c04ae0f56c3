// internal/line/line.go
package line

import "sync"

// Input is one logical digital input.
// true means the signal is asserted, whatever the wire polarity.
type Input interface {
	Read() (bool, error)
}

// Output is one logical digital output.
// true means the signal is asserted, whatever the wire polarity.
type Output interface {
	Set(v bool) error
}

// InvertInput flips the logical level of an input (active-low wiring).
func InvertInput(in Input) Input {
	if in == nil {
		return nil
	}
	return invertedInput{in: in}
}

// InvertOutput flips the logical level of an output (opto-isolated or active-low wiring).
func InvertOutput(out Output) Output {
	if out == nil {
		return nil
	}
	return invertedOutput{out: out}
}

type invertedInput struct{ in Input }

func (i invertedInput) Read() (bool, error) {
	v, err := i.in.Read()
	if err != nil {
		return false, err
	}
	return !v, nil
}

type invertedOutput struct{ out Output }

func (o invertedOutput) Set(v bool) error { return o.out.Set(!v) }

// SyncOutput serialises writes to out. Used for lines that are also
// released from the liveness hook, which runs off the control goroutine.
func SyncOutput(out Output) Output {
	if out == nil {
		return nil
	}
	return &syncOutput{out: out}
}

type syncOutput struct {
	mu  sync.Mutex
	out Output
}

func (o *syncOutput) Set(v bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.out.Set(v)
}

// Fake is an in-memory line usable as both input and output.
// It backs tests.
type Fake struct {
	mu     sync.Mutex
	level  bool
	writes int
	err    error
}

// NewFake returns a fake line at the given level.
func NewFake(level bool) *Fake {
	return &Fake{level: level}
}

func (f *Fake) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.level, nil
}

func (f *Fake) Set(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.level = v
	f.writes++
	return nil
}

// Drive forces the level seen by readers (simulates the field side).
func (f *Fake) Drive(v bool) {
	f.mu.Lock()
	f.level = v
	f.mu.Unlock()
}

// Level returns the current level without counting a read.
func (f *Fake) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Writes returns how many times Set succeeded.
func (f *Fake) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Fail makes every subsequent Read and Set return err (nil clears it).
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
