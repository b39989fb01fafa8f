package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/receiptpal/receiptpal/internal/imaging"
)

// State is the capture surface state
type State int

const (
	// StateIdle means no camera stream and no captured image
	StateIdle State = iota
	// StateCameraActive means a live stream is held and no image is captured
	StateCameraActive
	// StateImageCaptured means a still image is held and the stream released
	StateImageCaptured
)

func (s State) String() string {
	switch s {
	case StateCameraActive:
		return "camera-active"
	case StateImageCaptured:
		return "image-captured"
	default:
		return "idle"
	}
}

// Frame is one decoded video frame
type Frame interface {
	// Width is the decoded frame width; zero means the frame is not ready
	Width() int
	// PNG encodes the frame as PNG bytes
	PNG() ([]byte, error)
}

// Stream is an open camera stream. Stop must release the underlying device.
type Stream interface {
	Frame() (Frame, error)
	Stop()
}

// Device acquires a camera stream
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Capture manages the capture surface: at most one of {camera active,
// captured image} at a time, and every path that ends camera use releases the
// stream so the device lock is never leaked. Not safe for concurrent use; it
// models a single UI thread.
type Capture struct {
	device Device
	state  State
	stream Stream
	image  string // PNG data URL, empty when none
}

// NewCapture creates a Capture surface over the given device
func NewCapture(device Device) *Capture {
	return &Capture{device: device}
}

// State returns the current capture state
func (c *Capture) State() State {
	return c.state
}

// Image returns the captured image data URL, and whether one is held
func (c *Capture) Image() (string, bool) {
	return c.image, c.image != ""
}

// Start acquires a camera stream, clearing any prior captured image. On
// failure the surface returns to idle.
func (c *Capture) Start(ctx context.Context) error {
	stream, err := c.device.Open(ctx)
	if err != nil {
		c.release()
		c.state = StateIdle
		return fmt.Errorf("starting camera: %w", err)
	}

	// Replacing a stream must stop the old one first
	c.release()
	c.stream = stream
	c.image = ""
	c.state = StateCameraActive
	return nil
}

// Snap copies the current frame into a PNG data URL and releases the stream.
// A frame that is not ready yet (zero width) leaves the camera active.
func (c *Capture) Snap() error {
	if c.state != StateCameraActive || c.stream == nil {
		return fmt.Errorf("camera is not active")
	}

	frame, err := c.stream.Frame()
	if err != nil {
		return fmt.Errorf("reading camera frame: %w", err)
	}
	if frame.Width() == 0 {
		return fmt.Errorf("camera frame is not ready yet, try again")
	}

	pngData, err := frame.PNG()
	if err != nil {
		return fmt.Errorf("encoding camera frame: %w", err)
	}

	c.image = imaging.FormatDataURL("image/png", pngData)
	c.release()
	c.state = StateImageCaptured
	return nil
}

// SelectFile bypasses the camera with a local file. The content type must
// begin with "image/"; when empty it is sniffed from the data.
func (c *Capture) SelectFile(data []byte, contentType string) error {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("unsupported file type %q: please select an image", contentType)
	}

	c.release()
	c.image = imaging.FormatDataURL(contentType, data)
	c.state = StateImageCaptured
	return nil
}

// Stop halts the stream and returns to idle
func (c *Capture) Stop() {
	c.release()
	c.state = StateIdle
}

// Retake discards any captured image and stream, returning to idle
func (c *Capture) Retake() {
	c.release()
	c.image = ""
	c.state = StateIdle
}

// Close releases the stream on teardown
func (c *Capture) Close() {
	c.release()
	c.state = StateIdle
}

func (c *Capture) release() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}
