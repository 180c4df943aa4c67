package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/trafficlens/speedcam/internal/geom"
)

const (
	yoloInputSize = 640

	// yoloScoreFloor drops boxes before NMS; the engine applies its own
	// confidence threshold afterwards.
	yoloScoreFloor = 0.25
	yoloNMSThresh  = 0.45
)

// YOLODetector runs a YOLOv8 ONNX model through the OpenCV DNN module.
// The model's raw output is an 84xN tensor: four box coordinates in
// letterboxed input space followed by 80 COCO class scores per column.
type YOLODetector struct {
	net     gocv.Net
	outName string
}

// NewYOLODetector loads the ONNX model at modelPath.
func NewYOLODetector(modelPath string) (*YOLODetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("loading detector model %s: empty network", modelPath)
	}
	names := net.GetLayerNames()
	if len(names) == 0 {
		net.Close()
		return nil, fmt.Errorf("loading detector model %s: no layers", modelPath)
	}
	return &YOLODetector{net: net, outName: names[len(names)-1]}, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}

// Detect runs the model on one frame and returns all detections above the
// score floor, after non-maximum suppression, with boxes mapped back to
// frame coordinates.
func (d *YOLODetector) Detect(frame gocv.Mat) ([]Detection, error) {
	blob := gocv.BlobFromImage(frame, 1.0/255.0,
		image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward(d.outName)
	defer output.Close()

	// Output shape is [1, 84, N]; transpose to row-per-candidate.
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected detector output rank %d", len(dims))
	}
	reshaped := output.Reshape(1, dims[1])
	defer reshaped.Close()
	rows := gocv.NewMat()
	defer rows.Close()
	gocv.Transpose(reshaped, &rows)

	scaleX := float64(frame.Cols()) / yoloInputSize
	scaleY := float64(frame.Rows()) / yoloInputSize

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int
	for i := 0; i < rows.Rows(); i++ {
		classID, score := bestClass(rows, i, dims[1])
		if score < yoloScoreFloor {
			continue
		}

		cx := float64(rows.GetFloatAt(i, 0))
		cy := float64(rows.GetFloatAt(i, 1))
		w := float64(rows.GetFloatAt(i, 2))
		h := float64(rows.GetFloatAt(i, 3))
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY)))
		scores = append(scores, score)
		classIDs = append(classIDs, classID)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, yoloScoreFloor, yoloNMSThresh)
	detections := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		b := boxes[idx]
		detections = append(detections, Detection{
			Box:        geom.BBox{X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y},
			ClassID:    classIDs[idx],
			Confidence: float64(scores[idx]),
		})
	}
	return detections, nil
}

// bestClass returns the highest-scoring class for one candidate row. The
// first four columns are box geometry; the rest are class scores.
func bestClass(rows gocv.Mat, row, width int) (int, float32) {
	best, bestScore := 0, float32(0)
	for c := 4; c < width; c++ {
		if s := rows.GetFloatAt(row, c); s > bestScore {
			best, bestScore = c-4, s
		}
	}
	return best, bestScore
}
