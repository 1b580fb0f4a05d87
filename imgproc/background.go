package imgproc

import (
	"fmt"
	"slices"

	"gocv.io/x/gocv"
)

// FrameReader is anything frames can be read from, such as a camera
type FrameReader interface {
	Read(dst *gocv.Mat) bool
}

// BackgroundModel keeps a bounded FIFO window of frames and derives the stable
// background as their per-pixel median. The median is cached and dropped on
// every mutation of the window.
type BackgroundModel struct {
	capacity int
	frames   []gocv.Mat // oldest first

	stable gocv.Mat
	cached bool
}

func NewBackgroundModel(capacity int) *BackgroundModel {
	if capacity < 1 {
		capacity = DefaultBufferCapacity
	}
	return &BackgroundModel{capacity: capacity}
}

// Captures `sampleCount` frames from `src`, skipping failed reads, and seeds
// the window with their median. The returned Mat is owned by the model.
func (b *BackgroundModel) Initialize(src FrameReader, sampleCount int) (gocv.Mat, error) {
	background, err := CaptureBackground(src, sampleCount)
	if err != nil {
		return gocv.Mat{}, err
	}

	b.clear()
	b.frames = append(b.frames, background)
	return b.CurrentStable()
}

// Replaces the whole window with a freshly captured background. On failure the
// previous window is left untouched.
func (b *BackgroundModel) Recapture(src FrameReader, sampleCount int) (gocv.Mat, error) {
	return b.Initialize(src, sampleCount)
}

// Appends a copy of `frame`, evicting the oldest entry once over capacity
func (b *BackgroundModel) Push(frame gocv.Mat) error {
	if frame.Empty() {
		return ErrEmptyFrame
	}
	if len(b.frames) > 0 && !sameShape(b.frames[0], frame) {
		return ErrFrameMismatch
	}

	b.invalidate()
	b.frames = append(b.frames, frame.Clone())
	for len(b.frames) > b.capacity {
		b.frames[0].Close()
		b.frames = b.frames[1:]
	}
	return nil
}

// Returns the per-pixel median of the window. The Mat is owned by the model and
// stays valid until the next Initialize, Recapture, Push or Close.
func (b *BackgroundModel) CurrentStable() (gocv.Mat, error) {
	if len(b.frames) == 0 {
		return gocv.Mat{}, ErrNotInitialized
	}
	if !b.cached {
		stable, err := Median(b.frames)
		if err != nil {
			return gocv.Mat{}, err
		}
		b.stable = stable
		b.cached = true
	}
	return b.stable, nil
}

func (b *BackgroundModel) Len() int {
	return len(b.frames)
}

func (b *BackgroundModel) Capacity() int {
	return b.capacity
}

func (b *BackgroundModel) Close() error {
	b.clear()
	return nil
}

func (b *BackgroundModel) invalidate() {
	if b.cached {
		b.stable.Close()
		b.cached = false
	}
}

func (b *BackgroundModel) clear() {
	b.invalidate()
	for i := range b.frames {
		b.frames[i].Close()
	}
	b.frames = nil
}

// Reads up to `sampleCount` frames from `src` and returns their median.
// Failed or empty reads are skipped; ErrCapture is returned if none succeed.
func CaptureBackground(src FrameReader, sampleCount int) (gocv.Mat, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	var samples []gocv.Mat
	defer func() {
		for i := range samples {
			samples[i].Close()
		}
	}()

	for i := 0; i < sampleCount; i++ {
		if ok := src.Read(&frame); !ok || frame.Empty() {
			continue
		}
		samples = append(samples, frame.Clone())
	}

	if len(samples) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w (%d attempts)", ErrCapture, sampleCount)
	}
	return Median(samples)
}

// Computes the per-pixel, per-channel median of equally shaped frames. For an
// even number of samples the two middle values are averaged and truncated.
func Median(frames []gocv.Mat) (gocv.Mat, error) {
	if len(frames) == 0 {
		return gocv.Mat{}, ErrCapture
	}

	first := frames[0]
	if first.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}
	for _, f := range frames[1:] {
		if !sameShape(first, f) {
			return gocv.Mat{}, ErrFrameMismatch
		}
	}
	if len(frames) == 1 {
		return first.Clone(), nil
	}

	data := make([][]byte, len(frames))
	for i := range frames {
		data[i] = frames[i].ToBytes()
	}

	out := gocv.NewMatWithSize(first.Rows(), first.Cols(), first.Type())
	dst, err := out.DataPtrUint8()
	if err != nil {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("median output: %w", err)
	}

	n := len(frames)
	mid := n / 2
	samples := make([]byte, n)

	for p := range dst {
		for i := range data {
			samples[i] = data[i][p]
		}
		slices.Sort(samples)
		if n%2 == 1 {
			dst[p] = samples[mid]
		} else {
			dst[p] = uint8((int(samples[mid-1]) + int(samples[mid])) / 2)
		}
	}
	return out, nil
}
