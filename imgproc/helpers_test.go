package imgproc

import (
	"bytes"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func solidBGR(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func solidMask(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

func fillRect(m *gocv.Mat, rect image.Rectangle, s gocv.Scalar) {
	region := m.Region(rect)
	region.SetTo(s)
	region.Close()
}

func randomMat(t *testing.T, rows, cols int, mt gocv.MatType, gen func() byte) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, mt)
	data, err := m.DataPtrUint8()
	if err != nil {
		m.Close()
		t.Fatalf("DataPtrUint8: %v", err)
	}
	for i := range data {
		data[i] = gen()
	}
	return m
}

func matsEqual(a, b gocv.Mat) bool {
	return sameShape(a, b) && bytes.Equal(a.ToBytes(), b.ToBytes())
}

// fakeReader replays frames in order; an empty Mat is a failed read
type fakeReader struct {
	frames []gocv.Mat
	pos    int
}

func (r *fakeReader) Read(dst *gocv.Mat) bool {
	if r.pos >= len(r.frames) {
		return false
	}
	f := r.frames[r.pos]
	r.pos++
	if f.Empty() {
		return false
	}
	f.CopyTo(dst)
	return true
}

func (r *fakeReader) Close() {
	for i := range r.frames {
		r.frames[i].Close()
	}
}
