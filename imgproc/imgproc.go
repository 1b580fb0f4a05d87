package imgproc

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

var (
	ErrCapture        = errors.New("imgproc: no background frames could be read")
	ErrEmptyFrame     = errors.New("imgproc: empty frame")
	ErrFrameMismatch  = errors.New("imgproc: frame size or type mismatch")
	ErrNotInitialized = errors.New("imgproc: background model not initialized")
)

// Converts a BGR `frame` to HSV and returns the mask of pixels matching `set`.
// The caller owns the returned Mat.
func Segment(frame gocv.Mat, set RangeSet) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()

	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)
	return SegmentHSV(hsv, set)
}

// Returns a CV_8UC1 mask that is 255 wherever the HSV pixel falls inside any
// member range of `set` and 0 elsewhere. An empty set yields an all-zero mask.
func SegmentHSV(hsv gocv.Mat, set RangeSet) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8UC1)

	inRange := gocv.NewMat()
	defer inRange.Close()

	for _, r := range set.ranges {
		gocv.InRangeWithScalar(hsv, r.Lower.Scalar(), r.Upper.Scalar(), &inRange)
		gocv.BitwiseOr(mask, inRange, &mask)
	}
	return mask
}

// Cleans a raw mask with the default kernels
func Refine(mask gocv.Mat) gocv.Mat {
	return RefineWith(mask, DefaultConfig())
}

// Opens `mask` (erode then dilate, OpenIterations times each, square
// OpenKernel) to drop speckles, then dilates it with the larger DilateKernel
// to close holes and grow the boundary.
func RefineWith(mask gocv.Mat, cfg Config) gocv.Mat {
	out := mask.Clone()
	if out.Empty() {
		return out
	}

	openKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.OpenKernel, cfg.OpenKernel))
	defer openKernel.Close()
	dilateKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.DilateKernel, cfg.DilateKernel))
	defer dilateKernel.Close()

	tmp := gocv.NewMat()

	for i := 0; i < cfg.OpenIterations; i++ {
		gocv.Erode(out, &tmp, openKernel)
		out, tmp = tmp, out
	}
	for i := 0; i < cfg.OpenIterations; i++ {
		gocv.Dilate(out, &tmp, openKernel)
		out, tmp = tmp, out
	}
	for i := 0; i < cfg.DilateIterations; i++ {
		gocv.Dilate(out, &tmp, dilateKernel)
		out, tmp = tmp, out
	}

	tmp.Close()
	return out
}

// Returns a 0/255 mask that is set exactly where `mask` is 0. Any nonzero
// input value counts as set, matching CopyToWithMask.
func Complement(mask gocv.Mat) gocv.Mat {
	inverse := gocv.NewMat()
	gocv.Threshold(mask, &inverse, 0, 255, gocv.ThresholdBinaryInv)
	return inverse
}

// Keeps `live` where `mask` is 0 and takes `stable` where it is set, then sums
// the two disjoint parts with saturation. Returns a zero Mat on error.
func Compose(live, mask, stable gocv.Mat) (gocv.Mat, error) {
	if live.Empty() || stable.Empty() {
		return gocv.Mat{}, ErrEmptyFrame
	}
	if !sameShape(live, stable) {
		return gocv.Mat{}, ErrFrameMismatch
	}
	if mask.Rows() != live.Rows() || mask.Cols() != live.Cols() || mask.Type() != gocv.MatTypeCV8UC1 {
		return gocv.Mat{}, ErrFrameMismatch
	}

	inverse := Complement(mask)
	defer inverse.Close()

	zero := gocv.NewScalar(0, 0, 0, 0)

	livePart := gocv.NewMatWithSizeFromScalar(zero, live.Rows(), live.Cols(), live.Type())
	defer livePart.Close()
	live.CopyToWithMask(&livePart, inverse)

	cloakPart := gocv.NewMatWithSizeFromScalar(zero, stable.Rows(), stable.Cols(), stable.Type())
	defer cloakPart.Close()
	stable.CopyToWithMask(&cloakPart, mask)

	out := gocv.NewMat()
	gocv.Add(livePart, cloakPart, &out)
	return out, nil
}

func sameShape(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols() && a.Type() == b.Type()
}
