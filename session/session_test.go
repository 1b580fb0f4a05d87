package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/DaniruKun/cloak/imgproc"
	"gocv.io/x/gocv"
)

const side = 20

// BGR (43,43,200) converts to HSV (0,200,200), inside the default red ranges
var (
	red   = gocv.NewScalar(43, 43, 200, 0)
	patch = image.Rect(5, 5, 15, 15)
)

func solid(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), side, side, gocv.MatTypeCV8UC3)
}

func withPatch(v float64) gocv.Mat {
	m := solid(v)
	region := m.Region(patch)
	region.SetTo(red)
	region.Close()
	return m
}

// queueSource replays frames in order; an empty Mat is a failed read
type queueSource struct {
	frames []gocv.Mat
	pos    int
}

func (q *queueSource) add(frames ...gocv.Mat) *queueSource {
	q.frames = append(q.frames, frames...)
	return q
}

func (q *queueSource) Read(dst *gocv.Mat) bool {
	if q.pos >= len(q.frames) {
		return false
	}
	f := q.frames[q.pos]
	q.pos++
	if f.Empty() {
		return false
	}
	f.CopyTo(dst)
	return true
}

func (q *queueSource) close() {
	for i := range q.frames {
		q.frames[i].Close()
	}
}

// scriptedDisplay returns keys in order, then -1, and keeps what it showed
type scriptedDisplay struct {
	keys  []int
	shown []gocv.Mat
}

func (d *scriptedDisplay) Show(frame gocv.Mat) {
	d.shown = append(d.shown, frame.Clone())
}

func (d *scriptedDisplay) WaitKey(int) int {
	if len(d.keys) == 0 {
		return -1
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *scriptedDisplay) Close() error {
	for i := range d.shown {
		d.shown[i].Close()
	}
	return nil
}

func testOptions(t *testing.T, bgFrames int) Options {
	opts := DefaultOptions()
	opts.BackgroundFrames = bgFrames
	opts.KeyDelay = 0
	opts.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.png")
	return opts
}

func pixel(m gocv.Mat, x, y int) uint8 {
	return m.GetVecbAt(y, x)[0]
}

func TestRunQuit(t *testing.T) {
	src := (&queueSource{}).add(solid(60), solid(60))
	for i := 0; i < 5; i++ {
		src.add(withPatch(100))
	}
	defer src.close()

	display := &scriptedDisplay{keys: []int{-1, 'x', 'q'}}
	defer display.Close()

	c := New(src, display, testOptions(t, 2))
	if c.State() != StateWarmup {
		t.Fatalf("initial state got %v, want warmup", c.State())
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state got %v, want terminated", c.State())
	}
	if len(display.shown) != 3 || c.Stats().Frames != 3 {
		t.Fatalf("expected 3 frames shown, got %d (stats %d)", len(display.shown), c.Stats().Frames)
	}

	out := display.shown[0]
	if got := pixel(out, 10, 10); got != 60 {
		t.Errorf("cloak pixel got %d, want background 60", got)
	}
	if got := pixel(out, 0, 0); got != 100 {
		t.Errorf("non-cloak pixel got %d, want live 100", got)
	}
}

func TestRunEndOfStream(t *testing.T) {
	src := (&queueSource{}).add(solid(60), solid(60), solid(60), solid(100), solid(100))
	defer src.close()

	display := &scriptedDisplay{}
	defer display.Close()

	c := New(src, display, testOptions(t, 3))
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("end of stream should not be an error: %v", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state got %v, want terminated", c.State())
	}
	if len(display.shown) != 2 {
		t.Errorf("expected 2 frames shown, got %d", len(display.shown))
	}
}

func TestRunWarmupFailure(t *testing.T) {
	src := (&queueSource{}).add(gocv.NewMat(), gocv.NewMat())
	defer src.close()

	display := &scriptedDisplay{}
	defer display.Close()

	c := New(src, display, testOptions(t, 2))
	err := c.Run(context.Background())
	if !errors.Is(err, imgproc.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state got %v, want terminated", c.State())
	}
	if len(display.shown) != 0 {
		t.Errorf("nothing should be shown during warmup, got %d frames", len(display.shown))
	}
}

func TestRunRecapture(t *testing.T) {
	src := (&queueSource{}).add(solid(60), withPatch(100), solid(200), withPatch(100))
	defer src.close()

	display := &scriptedDisplay{keys: []int{'r', 'q'}}
	defer display.Close()

	c := New(src, display, testOptions(t, 1))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Stats().Recaptures != 1 {
		t.Errorf("expected 1 recapture, got %d", c.Stats().Recaptures)
	}
	if len(display.shown) != 2 {
		t.Fatalf("expected 2 frames shown, got %d", len(display.shown))
	}

	if got := pixel(display.shown[0], 10, 10); got != 60 {
		t.Errorf("before recapture cloak pixel got %d, want 60", got)
	}
	if got := pixel(display.shown[1], 10, 10); got != 200 {
		t.Errorf("after recapture cloak pixel got %d, want 200", got)
	}
}

func TestRunRecaptureFailure(t *testing.T) {
	src := (&queueSource{}).add(solid(60), withPatch(100))
	defer src.close()

	display := &scriptedDisplay{keys: []int{'r'}}
	defer display.Close()

	c := New(src, display, testOptions(t, 1))
	err := c.Run(context.Background())
	if !errors.Is(err, imgproc.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
	if c.State() != StateTerminated {
		t.Errorf("state got %v, want terminated", c.State())
	}
}

func TestRunSave(t *testing.T) {
	src := (&queueSource{}).add(solid(60), withPatch(100), withPatch(100))
	defer src.close()

	display := &scriptedDisplay{keys: []int{'s', 'q'}}
	defer display.Close()

	opts := testOptions(t, 1)
	c := New(src, display, opts)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Stats().Snapshots != 1 {
		t.Errorf("expected 1 snapshot, got %d", c.Stats().Snapshots)
	}

	if _, err := os.Stat(opts.SnapshotPath); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	saved := gocv.IMRead(opts.SnapshotPath, gocv.IMReadColor)
	defer saved.Close()
	if saved.Rows() != side || saved.Cols() != side {
		t.Errorf("snapshot size got %dx%d, want %dx%d", saved.Cols(), saved.Rows(), side, side)
	}
	if got := pixel(saved, 10, 10); got != 60 {
		t.Errorf("snapshot cloak pixel got %d, want 60", got)
	}
}

func TestRunCancelled(t *testing.T) {
	src := (&queueSource{}).add(solid(60), solid(100), solid(100))
	defer src.close()

	display := &scriptedDisplay{}
	defer display.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(src, display, testOptions(t, 1))
	if err := c.Run(ctx); err != nil {
		t.Fatalf("cancellation should not be an error: %v", err)
	}
	if len(display.shown) != 0 {
		t.Errorf("expected no frames after cancellation, got %d", len(display.shown))
	}
}

func TestProcessEmptyRangeSet(t *testing.T) {
	src := (&queueSource{}).add(solid(60))
	defer src.close()

	opts := testOptions(t, 1)
	opts.Ranges = imgproc.NewRangeSet()
	c := New(src, Headless{}, opts)
	defer c.terminate()

	if _, err := c.bg.Initialize(src, 1); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	live := withPatch(100)
	defer live.Close()

	out, err := c.Process(live)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer out.Close()

	if got := out.GetVecbAt(10, 10); got[0] != 43 || got[2] != 200 {
		t.Errorf("with no ranges the live frame should pass through, got %v", got)
	}
}

func TestCommandForKey(t *testing.T) {
	var tests = []struct {
		key  int
		want Command
	}{
		{-1, CommandNone},
		{'q', CommandQuit},
		{'r', CommandRecapture},
		{'s', CommandSave},
		{'x', CommandNone},
		{0x100 | 'q', CommandQuit},
	}

	for _, tt := range tests {
		testname := fmt.Sprintf("%d -> %v", tt.key, tt.want)
		t.Run(testname, func(t *testing.T) {
			if got := CommandForKey(tt.key); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
