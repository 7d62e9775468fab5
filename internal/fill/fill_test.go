package fill

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inamate/pixelkit/internal/pixel"
	"github.com/inamate/pixelkit/internal/region"
)

func solid(w, h int, c color.NRGBA) *pixel.Buffer {
	b := pixel.NewBuffer(w, h)
	for i := range b.Pix {
		b.Pix[i] = pixel.Of(c)
	}
	return b
}

var red = color.NRGBA{R: 255, A: 255}

func TestFill_CenterHole(t *testing.T) {
	assert := assert.New(t)

	src := solid(5, 5, red)
	src.Clear(2, 2)
	mask := make([]byte, 25)
	mask[src.Index(2, 2)] = 255

	out, remaining := Fill(src, mask, DefaultOptions())
	assert.Equal(pixel.Of(red), out.At(2, 2))
	assert.Equal(byte(0), remaining[src.Index(2, 2)])
	assert.False(src.At(2, 2).Filled, "source must not be mutated")
}

func TestFill_GrowsInwardAcrossSearchRadius(t *testing.T) {
	assert := assert.New(t)

	src := pixel.NewBuffer(25, 1)
	src.Set(0, 0, pixel.Of(red))
	mask := make([]byte, 25)
	for x := 1; x < 25; x++ {
		mask[x] = 255
	}

	out, remaining := Fill(src, mask, Options{SampleRadius: 1})
	for x := 0; x < 25; x++ {
		assert.Equal(pixel.Of(red), out.At(x, 0), "x=%d", x)
		assert.Equal(byte(0), remaining[x])
	}
}

func TestFill_IsolatedHoleStaysEmpty(t *testing.T) {
	assert := assert.New(t)

	src := pixel.NewBuffer(4, 4)
	mask := make([]byte, 16)
	for i := range mask {
		mask[i] = 255
	}

	out, remaining := Fill(src, mask, DefaultOptions())
	assert.Equal(0, out.FilledCount())
	assert.Equal(mask, remaining)
}

func TestFill_SkipsTransparentNeighbors(t *testing.T) {
	assert := assert.New(t)

	src := solid(3, 1, color.NRGBA{R: 9, A: 0})
	mask := []byte{0, 255, 0}

	out, remaining := Fill(src, mask, Options{SampleRadius: 1})
	assert.Equal(byte(255), remaining[1])
	assert.Equal(src.At(1, 0), out.At(1, 0))
}

func TestFill_AveragesAndRounds(t *testing.T) {
	assert := assert.New(t)

	src := pixel.NewBuffer(3, 1)
	src.Set(0, 0, pixel.Of(color.NRGBA{R: 10, G: 0, B: 100, A: 255}))
	src.Set(2, 0, pixel.Of(color.NRGBA{R: 11, G: 1, B: 200, A: 254}))
	mask := []byte{0, 255, 0}

	out, _ := Fill(src, mask, Options{SampleRadius: 1})
	assert.Equal(pixel.Of(color.NRGBA{R: 11, G: 1, B: 150, A: 255}), out.At(1, 0))
}

func TestFill_ThresholdRequiresEnoughSamples(t *testing.T) {
	src := pixel.NewBuffer(3, 1)
	src.Set(0, 0, pixel.Of(red))
	mask := []byte{0, 255, 0}

	_, remaining := Fill(src, mask, Options{SampleRadius: 1, Threshold: 2})
	assert.Equal(t, byte(255), remaining[1])
}

func TestFill_Deterministic(t *testing.T) {
	src := pixel.NewBuffer(9, 9)
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			src.Set(x, y, pixel.Of(color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 40, A: 255}))
		}
	}
	mask := make([]byte, 81)
	for y := 2; y < 7; y++ {
		for x := 3; x < 8; x++ {
			mask[y*9+x] = 255
		}
	}

	a, ra := Fill(src, mask, DefaultOptions())
	b, rb := Fill(src, mask, DefaultOptions())
	assert.True(t, a.Equal(b))
	assert.Equal(t, ra, rb)
}

func TestCollectHoles_StableOrderWithInfinityLast(t *testing.T) {
	assert := assert.New(t)

	src := pixel.NewBuffer(5, 1)
	mask := []byte{0, 255, 255, 255, 255}

	holes := collectHoles(src, mask, 2)
	var xs []int
	for _, h := range holes {
		xs = append(xs, h.x)
	}
	assert.Equal([]int{1, 2, 3, 4}, xs)
	assert.Equal(1.0, holes[0].dist)
	assert.True(holes[2].dist > 1e300)
	assert.True(holes[3].dist > 1e300)
}

func TestFill_MaskSizeMismatchIsNoop(t *testing.T) {
	src := solid(2, 2, red)
	out, remaining := Fill(src, []byte{255}, DefaultOptions())
	assert.True(t, out.Equal(src))
	assert.Len(t, remaining, 4)
}

func TestSelection_FillsFromSurroundings(t *testing.T) {
	assert := assert.New(t)

	blue := color.NRGBA{B: 255, A: 255}
	layer := solid(6, 6, blue)
	for y := 2; y < 4; y++ {
		for x := 2; x < 4; x++ {
			layer.Clear(x, y)
		}
	}

	n := Selection(layer, region.Rect(image.Rect(2, 2, 4, 4)), DefaultOptions())
	assert.Equal(4, n)
	assert.Equal(36, layer.FilledCount())
	assert.Equal(pixel.Of(blue), layer.At(3, 3))

	assert.Equal(0, Selection(layer, region.Rect(image.Rect(10, 10, 12, 12)), DefaultOptions()))
}
