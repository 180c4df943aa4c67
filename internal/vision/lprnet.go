package vision

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

const (
	lprInputWidth  = 94
	lprInputHeight = 24
)

// DefaultPlateChars is the character set of the bundled LPRNet model. The
// final entry is the CTC blank.
var DefaultPlateChars = []string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"A", "B", "C", "D", "E", "F", "G", "H", "J", "K",
	"L", "M", "N", "P", "Q", "R", "S", "T", "U", "V",
	"W", "X", "Y", "Z", "-",
}

// LPRNetReader reads plate text with an LPRNet ONNX model through the
// OpenCV DNN module. The model emits a character-probability column per
// plate position; greedy CTC decoding collapses repeats and blanks.
type LPRNetReader struct {
	net   gocv.Net
	chars []string
}

// NewLPRNetReader loads the ONNX model at modelPath. chars is the training
// character set with the CTC blank last; nil selects DefaultPlateChars.
func NewLPRNetReader(modelPath string, chars []string) (*LPRNetReader, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("loading plate model %s: empty network", modelPath)
	}
	if chars == nil {
		chars = DefaultPlateChars
	}
	return &LPRNetReader{net: net, chars: chars}, nil
}

// Close releases the network.
func (r *LPRNetReader) Close() error {
	return r.net.Close()
}

// ReadText runs the model on one preprocessed crop. LPRNet reads the whole
// crop as a single plate, so at most one candidate comes back; its quad is
// zero because the model reports no location.
func (r *LPRNetReader) ReadText(crop gocv.Mat) ([]Candidate, error) {
	blob := gocv.BlobFromImage(crop, 1.0/128.0,
		image.Pt(lprInputWidth, lprInputHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	r.net.SetInput(blob, "")
	output := r.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] != len(r.chars) {
		return nil, fmt.Errorf("unexpected plate model output shape %v for %d chars", dims, len(r.chars))
	}
	probs := output.Reshape(1, dims[1])
	defer probs.Close()

	text, confidence := r.decode(probs, dims[2])
	if text == "" {
		return nil, nil
	}
	return []Candidate{{Text: text, Confidence: confidence}}, nil
}

// decode greedily picks the best character per plate position, then
// collapses consecutive repeats and blanks. The confidence is the mean
// softmax probability of the characters that survive collapsing.
func (r *LPRNetReader) decode(probs gocv.Mat, positions int) (string, float64) {
	blank := len(r.chars) - 1

	text := ""
	var confSum float64
	var confN int
	prev := -1
	for x := 0; x < positions; x++ {
		best, bestScore := blank, float32(math.Inf(-1))
		var expSum float64
		for c := 0; c < len(r.chars); c++ {
			v := probs.GetFloatAt(c, x)
			expSum += math.Exp(float64(v))
			if v > bestScore {
				best, bestScore = c, v
			}
		}

		if best == blank || best == prev {
			prev = best
			continue
		}
		text += r.chars[best]
		confSum += math.Exp(float64(bestScore)) / expSum
		confN++
		prev = best
	}

	if confN == 0 {
		return "", 0
	}
	return text, confSum / float64(confN)
}
