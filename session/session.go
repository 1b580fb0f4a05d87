// Package session runs the invisibility effect frame loop.
//
// A Controller moves through three states. During Warmup it captures the
// initial background; Running reads, composites and shows one frame per
// iteration and then polls for a command; Terminated is entered on quit, on
// end of stream, on cancellation or on a fatal error. Everything happens on
// the calling goroutine.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DaniruKun/cloak/imgproc"
	"github.com/DaniruKun/cloak/internal/log"
	"github.com/DaniruKun/cloak/utils"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// State of a Controller
type State int

const (
	StateWarmup State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateRunning:
		return "running"
	default:
		return "terminated"
	}
}

type Options struct {
	Ranges           imgproc.RangeSet
	Pipeline         imgproc.Config
	BackgroundFrames int    // Frames captured at warmup and on every recapture
	SnapshotPath     string // Where the save command writes the output frame
	KeyDelay         int    // Milliseconds to wait for a key after each frame
}

func DefaultOptions() Options {
	return Options{
		Ranges:           imgproc.DefaultRedRanges(),
		Pipeline:         imgproc.DefaultConfig(),
		BackgroundFrames: 60,
		SnapshotPath:     utils.DefaultSnapshotName,
		KeyDelay:         1,
	}
}

// Stats counts what happened during a session
type Stats struct {
	Frames     int
	Snapshots  int
	Recaptures int
}

// Controller owns the background model and sequences the pipeline per frame.
// The frame source and display stay owned by the caller.
type Controller struct {
	src     imgproc.FrameReader
	display Display
	opts    Options
	bg      *imgproc.BackgroundModel
	log     *slog.Logger

	state State
	stats Stats
}

func New(src imgproc.FrameReader, display Display, opts Options) *Controller {
	if opts.SnapshotPath == "" {
		opts.SnapshotPath = utils.DefaultSnapshotName
	}
	if opts.Pipeline == (imgproc.Config{}) {
		opts.Pipeline = imgproc.DefaultConfig()
	}
	return &Controller{
		src:     src,
		display: display,
		opts:    opts,
		bg:      imgproc.NewBackgroundModel(opts.Pipeline.BufferCapacity),
		log:     log.With("session", uuid.NewString()),
		state:   StateWarmup,
	}
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Stats() Stats {
	return c.stats
}

// Run captures the background and then loops until quit, end of stream or
// cancellation of ctx, all of which return nil. A failed background capture or
// a frame that cannot be composited is returned as an error. The background
// model is released before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.terminate()

	c.state = StateWarmup
	c.log.Info("capturing clean background, please stay out of frame", "frames", c.opts.BackgroundFrames)
	c.log.Debug("background window", "capacity", c.bg.Capacity())
	if _, err := c.bg.Initialize(c.src, c.opts.BackgroundFrames); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}

	c.state = StateRunning
	c.log.Info("ready, hold the cloak up to vanish", "keys", KeyHelp, "ranges", c.opts.Ranges.Len())

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			c.log.Info("session cancelled", "frames", c.stats.Frames)
			return nil
		}

		if ok := c.src.Read(&frame); !ok || frame.Empty() {
			c.log.Info("frame source ended", "frames", c.stats.Frames)
			return nil
		}

		out, err := c.Process(frame)
		if err != nil {
			return fmt.Errorf("frame %d: %w", c.stats.Frames, err)
		}
		c.display.Show(out)
		c.stats.Frames++

		cmd := CommandForKey(c.display.WaitKey(c.opts.KeyDelay))
		err = c.handle(cmd, out)
		out.Close()

		if err != nil {
			return err
		}
		if cmd == CommandQuit {
			c.log.Info("quit requested", "frames", c.stats.Frames)
			return nil
		}
	}
}

// Process composites one live frame over the current stable background.
// The caller owns the returned Mat.
func (c *Controller) Process(frame gocv.Mat) (gocv.Mat, error) {
	stable, err := c.bg.CurrentStable()
	if err != nil {
		return gocv.Mat{}, err
	}

	raw := imgproc.Segment(frame, c.opts.Ranges)
	defer raw.Close()

	mask := imgproc.RefineWith(raw, c.opts.Pipeline)
	defer mask.Close()

	return imgproc.Compose(frame, mask, stable)
}

func (c *Controller) handle(cmd Command, out gocv.Mat) error {
	switch cmd {
	case CommandSave:
		if !gocv.IMWrite(c.opts.SnapshotPath, out) {
			c.log.Error("could not save frame", "path", c.opts.SnapshotPath)
			return nil
		}
		c.stats.Snapshots++
		c.log.Info("saved frame", "path", c.opts.SnapshotPath)

	case CommandRecapture:
		c.log.Info("re-capturing background, stay out of frame", "frames", c.opts.BackgroundFrames)
		if _, err := c.bg.Recapture(c.src, c.opts.BackgroundFrames); err != nil {
			return fmt.Errorf("recapture: %w", err)
		}
		c.stats.Recaptures++
	}
	return nil
}

func (c *Controller) terminate() {
	c.state = StateTerminated
	c.bg.Close()
}
