package session

import (
	"time"

	"gocv.io/x/gocv"
)

// Display shows composited frames and polls the keyboard. WaitKey blocks for
// up to `delay` milliseconds, which also paces the frame loop.
type Display interface {
	Show(frame gocv.Mat)
	WaitKey(delay int) int
	Close() error
}

// Window is a HighGUI window
type Window struct {
	w *gocv.Window
}

func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

func (w *Window) Show(frame gocv.Mat) {
	w.w.IMShow(frame)
}

func (w *Window) WaitKey(delay int) int {
	return w.w.WaitKey(delay)
}

func (w *Window) Close() error {
	return w.w.Close()
}

// Headless shows nothing and never reports a key
type Headless struct{}

func (Headless) Show(gocv.Mat) {}

func (Headless) WaitKey(delay int) int {
	if delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}
	return -1
}

func (Headless) Close() error {
	return nil
}
