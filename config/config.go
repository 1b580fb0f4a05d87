// Package config loads the colour ranges and capture settings of a session.
//
// The colour document is JSON, or YAML when its path ends in .yaml/.yml:
//
//	{
//	  "ranges": [
//	    {"lower": [0, 120, 70],   "upper": [10, 255, 255]},
//	    {"lower": [170, 120, 70], "upper": [180, 255, 255]}
//	  ],
//	  "use_dual_range_for_red": true
//	}
//
// A missing or malformed document is not an error for Load: it falls back to
// the built-in dual-range red default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DaniruKun/cloak/imgproc"
	"github.com/DaniruKun/cloak/internal/log"
	"gopkg.in/yaml.v3"
)

// OriginDefault marks a Configuration whose ranges are the built-in default.
const OriginDefault = "default"

var (
	// ErrMalformed is returned by Parse for documents that cannot be used.
	ErrMalformed = errors.New("config: malformed document")

	// ErrInvalid is returned by Validate for unusable capture settings.
	ErrInvalid = errors.New("config: invalid settings")
)

// Format of a colour document on disk.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the document format from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Range is one {lower, upper} entry of a document, as [h, s, v] triples.
type Range struct {
	Lower []int `json:"lower" yaml:"lower"`
	Upper []int `json:"upper" yaml:"upper"`
}

// Document is the on-disk colour configuration.
type Document struct {
	Ranges             []Range `json:"ranges" yaml:"ranges"`
	UseDualRangeForRed bool    `json:"use_dual_range_for_red" yaml:"use_dual_range_for_red"`
}

// Camera holds the frame source settings.
type Camera struct {
	Index  int    // Capture device index
	Video  string // Video file to read instead of a device
	Width  int    // Requested capture width
	Height int    // Requested capture height
	Mirror bool   // Flip frames horizontally right after reading
}

// Configuration is everything a session needs, validated once at startup.
type Configuration struct {
	Ranges           imgproc.RangeSet
	DualRange        bool
	Origin           string // Document path, or OriginDefault
	Camera           Camera
	BackgroundFrames int // Frames captured for the background median
	BufferCapacity   int // Frames kept in the background window
}

// Default returns the built-in configuration.
func Default() Configuration {
	return Configuration{
		Ranges:    imgproc.DefaultRedRanges(),
		DualRange: true,
		Origin:    OriginDefault,
		Camera: Camera{
			Index:  0,
			Width:  640,
			Height: 480,
			Mirror: true,
		},
		BackgroundFrames: 60,
		BufferCapacity:   imgproc.DefaultBufferCapacity,
	}
}

// Validate checks the capture settings.
func (c Configuration) Validate() error {
	var problems []string
	if c.Camera.Index < 0 {
		problems = append(problems, "camera index must not be negative")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		problems = append(problems, "capture width and height must be positive")
	}
	if c.BackgroundFrames < 1 {
		problems = append(problems, "background frame count must be at least 1")
	}
	if c.BufferCapacity < 1 {
		problems = append(problems, "background buffer capacity must be at least 1")
	}
	if err := c.Ranges.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Load reads the colour document at `path` on top of Default(). An empty path,
// a missing file or a malformed document keeps the default ranges.
func Load(path string) Configuration {
	cfg := Default()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("config unreadable, using default ranges", "path", path, "error", err)
		return cfg
	}

	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		log.Warn("config malformed, using default ranges", "path", path, "error", err)
		return cfg
	}

	set, err := doc.RangeSet()
	if err != nil {
		log.Warn("config malformed, using default ranges", "path", path, "error", err)
		return cfg
	}

	if !doc.UseDualRangeForRed {
		for _, r := range set.Ranges() {
			if r.Wraps() {
				log.Warn("range wraps the hue seam but dual ranges are disabled; it matches nothing",
					"range", r.String())
			}
		}
	}

	cfg.Ranges = set
	cfg.DualRange = doc.UseDualRangeForRed
	cfg.Origin = path
	return cfg
}

// Parse decodes a colour document.
func Parse(data []byte, format Format) (Document, error) {
	var doc Document
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}

// RangeSet validates the document and converts it into an imgproc.RangeSet.
// With UseDualRangeForRed, ranges whose lower hue exceeds the upper hue are
// split into their two hue bands.
func (d Document) RangeSet() (imgproc.RangeSet, error) {
	ranges := make([]imgproc.ColorRange, 0, len(d.Ranges))
	for i, r := range d.Ranges {
		lower, err := triple(r.Lower)
		if err != nil {
			return imgproc.RangeSet{}, fmt.Errorf("%w: range %d lower: %v", ErrMalformed, i, err)
		}
		upper, err := triple(r.Upper)
		if err != nil {
			return imgproc.RangeSet{}, fmt.Errorf("%w: range %d upper: %v", ErrMalformed, i, err)
		}
		cr := imgproc.ColorRange{Lower: lower, Upper: upper}
		if err := cr.Validate(); err != nil {
			return imgproc.RangeSet{}, fmt.Errorf("%w: range %d: %v", ErrMalformed, i, err)
		}
		ranges = append(ranges, cr)
	}

	set := imgproc.NewRangeSet(ranges...)
	if d.UseDualRangeForRed {
		set = set.SplitWrapped()
	}
	return set, nil
}

func triple(v []int) (imgproc.HSV, error) {
	if len(v) != 3 {
		return imgproc.HSV{}, fmt.Errorf("want [h, s, v], got %d values", len(v))
	}
	return imgproc.HSV{H: v[0], S: v[1], V: v[2]}, nil
}

// NewDocument builds a document holding the members of `set`.
func NewDocument(set imgproc.RangeSet, dualRange bool) Document {
	doc := Document{UseDualRangeForRed: dualRange}
	for _, r := range set.Ranges() {
		doc.Ranges = append(doc.Ranges, Range{
			Lower: []int{r.Lower.H, r.Lower.S, r.Lower.V},
			Upper: []int{r.Upper.H, r.Upper.S, r.Upper.V},
		})
	}
	return doc
}

// Save writes `doc` to `path` in the format implied by its extension.
func Save(path string, doc Document) error {
	var data []byte
	var err error

	switch FormatFor(path) {
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
