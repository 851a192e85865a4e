package yolocrop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPixelBox(t *testing.T) {
	tests := map[string]struct {
		rec           Record
		width, height int
		want          PixelBox
		ok            bool
	}{
		"centered": {
			rec:   Record{CX: 0.5, CY: 0.5, W: 0.2, H: 0.2},
			width: 100, height: 100,
			want: PixelBox{40, 40, 60, 60}, ok: true,
		},
		"non-square image": {
			rec:   Record{CX: 0.5, CY: 0.5, W: 0.5, H: 0.5},
			width: 200, height: 100,
			want: PixelBox{50, 25, 150, 75}, ok: true,
		},
		"clamped at origin": {
			rec:   Record{CX: 0.1, CY: 0.1, W: 0.5, H: 0.5},
			width: 100, height: 100,
			want: PixelBox{0, 0, 35, 35}, ok: true,
		},
		"clamped at far edge": {
			rec:   Record{CX: 0.9, CY: 0.9, W: 0.4, H: 0.4},
			width: 100, height: 100,
			want: PixelBox{70, 70, 99, 99}, ok: true,
		},
		"full image": {
			rec:   Record{CX: 0.5, CY: 0.5, W: 1, H: 1},
			width: 100, height: 50,
			want: PixelBox{0, 0, 99, 49}, ok: true,
		},
		"rounds to nearest": {
			rec:   Record{CX: 0.5, CY: 0.5, W: 0.25, H: 0.25},
			width: 10, height: 10,
			want: PixelBox{4, 4, 6, 6}, ok: true,
		},
		"outside the far edge": {
			rec:   Record{CX: 0.99, CY: 0.99, W: 0.01, H: 0.01},
			width: 10, height: 10,
			want: PixelBox{9, 9, 9, 9}, ok: false,
		},
		"outside the origin": {
			rec:   Record{CX: -0.5, CY: 0.5, W: 0.2, H: 0.2},
			width: 10, height: 10,
			want: PixelBox{0, 4, 0, 6}, ok: false,
		},
		"zero size": {
			rec:   Record{CX: 0.5, CY: 0.5},
			width: 100, height: 100,
			want: PixelBox{50, 50, 50, 50}, ok: false,
		},
		"negative size": {
			rec:   Record{CX: 0.5, CY: 0.5, W: -0.2, H: 0.2},
			width: 100, height: 100,
			want: PixelBox{60, 40, 40, 60}, ok: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := ToPixelBox(tt.rec, tt.width, tt.height)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestToPixelBox_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		width, height := 1+rng.Intn(2000), 1+rng.Intn(2000)
		rec := Record{
			CX: rng.Float64()*3 - 1,
			CY: rng.Float64()*3 - 1,
			W:  rng.Float64()*3 - 1,
			H:  rng.Float64()*3 - 1,
		}

		b, ok := ToPixelBox(rec, width, height)

		for _, v := range []int{b.X1, b.X2} {
			if v < 0 || v > width-1 {
				t.Fatalf("%+v in %dx%d: x %d out of range in %v", rec, width, height, v, b)
			}
		}
		for _, v := range []int{b.Y1, b.Y2} {
			if v < 0 || v > height-1 {
				t.Fatalf("%+v in %dx%d: y %d out of range in %v", rec, width, height, v, b)
			}
		}
		if ok != (b.Dx() > 0 && b.Dy() > 0) {
			t.Fatalf("%+v in %dx%d: ok=%v for %v", rec, width, height, ok, b)
		}
	}
}

func TestPixelBox(t *testing.T) {
	b := PixelBox{X1: 1, Y1: 2, X2: 11, Y2: 7}
	assert.Equal(t, 10, b.Dx())
	assert.Equal(t, 5, b.Dy())
	assert.Equal(t, "(1,2)(11,7)", b.String())
	assert.Equal(t, 10, b.Rect().Dx())
}
