package imgproc

import "errors"

// DefaultBufferCapacity is the number of frames the background window holds
const DefaultBufferCapacity = 15

type Config struct {
	OpenKernel       int // Side of the square kernel used by the opening step
	OpenIterations   int // Erosions, then as many dilations, per opening
	DilateKernel     int // Side of the square kernel used by the final dilation
	DilateIterations int // Number of final dilations
	BufferCapacity   int // Frames kept for the stable background median
}

func DefaultConfig() Config {
	return Config{
		OpenKernel:       3,
		OpenIterations:   2,
		DilateKernel:     5,
		DilateIterations: 1,
		BufferCapacity:   DefaultBufferCapacity,
	}
}

func (c Config) Validate() error {
	if c.OpenKernel < 1 || c.DilateKernel < 1 {
		return errors.New("kernel sizes must be positive")
	}
	if c.OpenIterations < 0 || c.DilateIterations < 0 {
		return errors.New("iterations must not be negative")
	}
	if c.BufferCapacity < 1 {
		return errors.New("buffer capacity must be at least 1")
	}
	return nil
}
