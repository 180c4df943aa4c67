package plate

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/trafficlens/speedcam/internal/geom"
	"github.com/trafficlens/speedcam/internal/vision"
)

// minCropSide is the smallest crop dimension fed to OCR as-is; smaller
// crops are scaled up first.
const minCropSide = 100

// Recognizer reads license plates from vehicle crops. It preprocesses each
// crop two ways, runs the OCR engine on both variants, and lets the policy
// pick the winner from the combined candidates.
type Recognizer struct {
	reader vision.PlateReader
	policy Policy
}

// NewRecognizer wraps an OCR engine with the given policy.
func NewRecognizer(reader vision.PlateReader, policy Policy) *Recognizer {
	return &Recognizer{reader: reader, policy: policy}
}

// Policy returns the recognizer's cadence and filtering policy.
func (r *Recognizer) Policy() Policy { return r.policy }

// Close releases the underlying OCR engine.
func (r *Recognizer) Close() error { return r.reader.Close() }

// Read crops the vehicle box out of the frame and attempts a plate read.
// A clean "nothing plausible in this crop" comes back as ok=false with a
// nil error; only OCR engine failures are errors. The returned candidate's
// box is relative to the crop, not the frame.
func (r *Recognizer) Read(frame gocv.Mat, box geom.BBox) (vision.Candidate, bool, error) {
	rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(
		image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return vision.Candidate{}, false, nil
	}

	crop := frame.Region(rect)
	defer crop.Close()

	enhanced, thresh := preprocess(crop)
	defer enhanced.Close()
	defer thresh.Close()

	fromEnhanced, err := r.reader.ReadText(enhanced)
	if err != nil {
		return vision.Candidate{}, false, err
	}
	fromThresh, err := r.reader.ReadText(thresh)
	if err != nil {
		return vision.Candidate{}, false, err
	}

	best, ok := r.policy.Best(append(fromEnhanced, fromThresh...))
	return best, ok, nil
}

// preprocess produces the two OCR input variants from a vehicle crop: a
// contrast-enhanced grayscale image and its binarized counterpart. Small
// crops are upscaled first so plate glyphs reach a size OCR can resolve.
// The caller owns both returned Mats.
func preprocess(crop gocv.Mat) (enhanced, thresh gocv.Mat) {
	work := crop
	scaled := gocv.NewMat()
	defer scaled.Close()

	h, w := crop.Rows(), crop.Cols()
	if h < minCropSide || w < minCropSide {
		scale := float64(minCropSide) / float64(h)
		if s := float64(minCropSide) / float64(w); s > scale {
			scale = s
		}
		gocv.Resize(crop, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		work = scaled
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(work, &gray, gocv.ColorBGRToGray)

	filtered := gocv.NewMat()
	defer filtered.Close()
	gocv.BilateralFilter(gray, &filtered, 11, 17, 17)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	enhanced = gocv.NewMat()
	clahe.Apply(filtered, &enhanced)

	thresh = gocv.NewMat()
	gocv.Threshold(enhanced, &thresh, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	return enhanced, thresh
}
