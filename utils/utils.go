package utils

import (
	"errors"
	"path/filepath"
	"strings"
)

// DefaultSnapshotName is where the save command writes the current frame
const DefaultSnapshotName = "invisibility_frame.jpg"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// Reports whether gocv can encode an image at `path` based on its extension
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Resolves the snapshot path, defaulting to DefaultSnapshotName
func SnapshotPath(path string) (string, error) {
	if path == "" {
		return DefaultSnapshotName, nil
	}
	if !IsImagePath(path) {
		return "", errors.New("unsupported snapshot format: " + path)
	}
	return filepath.Clean(path), nil
}
