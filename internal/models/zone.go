package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinZonePoints is the smallest polygon that can be rendered or persisted.
const MinZonePoints = 3

// Point is a 2D coordinate. On the wire it is an absolute pixel position in
// the backend's image space; inside the client it may hold a ratio in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is a named danger-zone polygon.
type Zone struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Valid reports whether the polygon has enough points to be drawn or saved.
func (z Zone) Valid() bool {
	return len(z.Points) >= MinZonePoints
}

// DisplayName falls back to the id when the zone is unnamed.
func (z Zone) DisplayName() string {
	if z.Name != "" {
		return z.Name
	}
	return "Zone " + z.ID
}

// ImageSize is the natural size of the rendered video frame, used to convert
// between ratio and pixel coordinates.
type ImageSize struct {
	Width  int `json:"width"  toml:"width"  yaml:"width"`
	Height int `json:"height" toml:"height" yaml:"height"`
}

// Known reports whether both dimensions are positive.
func (s ImageSize) Known() bool {
	return s.Width > 0 && s.Height > 0
}

func (s ImageSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ToPixels converts a ratio point to backend pixel space.
func (s ImageSize) ToPixels(p Point) Point {
	return Point{X: p.X * float64(s.Width), Y: p.Y * float64(s.Height)}
}

// ToRatio converts a backend pixel point to a ratio point.
func (s ImageSize) ToRatio(p Point) Point {
	if !s.Known() {
		return Point{}
	}
	return Point{X: p.X / float64(s.Width), Y: p.Y / float64(s.Height)}
}

// ParseImageSize parses "WIDTHxHEIGHT", e.g. "1280x720".
func ParseImageSize(s string) (ImageSize, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return ImageSize{}, fmt.Errorf("image size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return ImageSize{}, fmt.Errorf("image width: %w", err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return ImageSize{}, fmt.Errorf("image height: %w", err)
	}
	size := ImageSize{Width: width, Height: height}
	if !size.Known() {
		return ImageSize{}, errors.New("image size must be positive")
	}
	return size, nil
}

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}
