// Package source opens the camera or video file frames are read from.
package source

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrSourceUnavailable is returned when the device or file cannot be opened.
var ErrSourceUnavailable = errors.New("source: frame source unavailable")

// Reader yields BGR frames. Read returns false when no frame could be read.
type Reader interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

type Options struct {
	Device int    // Capture device index, used when File is empty
	File   string // Video file path
	Width  int    // Requested frame width, devices only
	Height int    // Requested frame height, devices only
}

// Capture is a gocv capture device or video file
type Capture struct {
	vc   *gocv.VideoCapture
	name string
}

// Opens the video file if one is given, the capture device otherwise
func Open(opts Options) (*Capture, error) {
	var (
		vc   *gocv.VideoCapture
		err  error
		name string
	)

	if opts.File != "" {
		name = opts.File
		vc, err = gocv.VideoCaptureFile(opts.File)
	} else {
		name = fmt.Sprintf("device %d", opts.Device)
		vc, err = gocv.VideoCaptureDevice(opts.Device)
	}
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, name)
	}

	if opts.File == "" {
		if opts.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		}
		if opts.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
		}
	}

	return &Capture{vc: vc, name: name}, nil
}

// Read reports false on a failed read or an empty frame, both of which mean
// the stream has ended.
func (c *Capture) Read(dst *gocv.Mat) bool {
	return c.vc.Read(dst) && !dst.Empty()
}

// Size returns the resolution the device actually negotiated
func (c *Capture) Size() image.Point {
	return image.Pt(int(c.vc.Get(gocv.VideoCaptureFrameWidth)), int(c.vc.Get(gocv.VideoCaptureFrameHeight)))
}

func (c *Capture) String() string {
	return c.name
}

func (c *Capture) Close() error {
	return c.vc.Close()
}

// Mirrored flips every frame of the wrapped Reader horizontally
type Mirrored struct {
	r   Reader
	raw gocv.Mat
}

func Mirror(r Reader) *Mirrored {
	return &Mirrored{r: r, raw: gocv.NewMat()}
}

func (m *Mirrored) Read(dst *gocv.Mat) bool {
	if !m.r.Read(&m.raw) || m.raw.Empty() {
		return false
	}
	gocv.Flip(m.raw, dst, 1)
	return true
}

// Close releases the scratch frame and closes the wrapped Reader
func (m *Mirrored) Close() error {
	m.raw.Close()
	return m.r.Close()
}
