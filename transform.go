package yolocrop

import (
	"fmt"
	"image"
	"math"
)

// PixelBox is an axis-aligned box in pixel coordinates, upper-left origin. The region it selects
// is [X1, X2) x [Y1, Y2).
type PixelBox struct {
	X1, Y1, X2, Y2 int
}

// Rect returns the box as an image.Rectangle.
func (b PixelBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Dx is the box width.
func (b PixelBox) Dx() int { return b.X2 - b.X1 }

// Dy is the box height.
func (b PixelBox) Dy() int { return b.Y2 - b.Y1 }

func (b PixelBox) String() string {
	return fmt.Sprintf("(%d,%d)(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// ToPixelBox converts the normalized center/size box of r into pixel corners for an image of the
// given size and clamps them to [0, size-1].
//
// It reports false for a degenerate box, i.e. one with no width or height after clamping.
func ToPixelBox(r Record, width, height int) (PixelBox, bool) {
	w, h := float64(width), float64(height)
	b := PixelBox{
		X1: int(math.Round((r.CX - r.W/2) * w)),
		Y1: int(math.Round((r.CY - r.H/2) * h)),
		X2: int(math.Round((r.CX + r.W/2) * w)),
		Y2: int(math.Round((r.CY + r.H/2) * h)),
	}

	b.X1 = clampInt(b.X1, 0, width-1)
	b.Y1 = clampInt(b.Y1, 0, height-1)
	b.X2 = clampInt(b.X2, 0, width-1)
	b.Y2 = clampInt(b.Y2, 0, height-1)

	return b, b.X2 > b.X1 && b.Y2 > b.Y1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
