// Package video wraps frame-level video IO: a Source reading frames from a
// container file and a Writer producing the annotated output alongside it.
package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// defaultFPS substitutes for containers that report no frame rate, which
// some phone recordings and stream dumps do.
const defaultFPS = 30.0

// Meta describes the geometry and timing of an opened video.
type Meta struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
}

// FrameTimestamp returns the presentation time of a frame in seconds.
func (m Meta) FrameTimestamp(frame int) float64 {
	return float64(frame) / m.FPS
}

// Source reads decoded frames from a video file.
type Source struct {
	cap  *gocv.VideoCapture
	meta Meta
}

// Open opens a video file and probes its metadata. TotalFrames may be zero
// for containers without an index; callers should treat it as a hint.
func Open(path string) (*Source, error) {
	cap, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("opening video %s: %w", path, err)
	}

	meta := Meta{
		Width:       int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         cap.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}
	if meta.FPS <= 0 {
		meta.FPS = defaultFPS
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		cap.Close()
		return nil, fmt.Errorf("video %s reports invalid dimensions %dx%d", path, meta.Width, meta.Height)
	}

	return &Source{cap: cap, meta: meta}, nil
}

// Meta returns the probed video metadata.
func (s *Source) Meta() Meta { return s.meta }

// Next decodes the next frame into m. It returns false at end of stream or
// on a decode error; the loop treats both as completion.
func (s *Source) Next(m *gocv.Mat) bool {
	return s.cap.Read(m) && !m.Empty()
}

// Close releases the underlying capture.
func (s *Source) Close() error {
	return s.cap.Close()
}

// Writer encodes annotated frames to an output file matching the source
// geometry.
type Writer struct {
	w *gocv.VideoWriter
}

// NewWriter creates an mp4 writer for frames of the given metadata.
func NewWriter(path string, meta Meta) (*Writer, error) {
	w, err := gocv.VideoWriterFile(path, "mp4v", meta.FPS, meta.Width, meta.Height, true)
	if err != nil {
		return nil, fmt.Errorf("creating video writer %s: %w", path, err)
	}
	return &Writer{w: w}, nil
}

// Write encodes one frame.
func (w *Writer) Write(m gocv.Mat) error {
	return w.w.Write(m)
}

// Close finalizes the output container.
func (w *Writer) Close() error {
	return w.w.Close()
}
