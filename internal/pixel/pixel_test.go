package pixel

import (
	"encoding/json"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{R: 0xff, A: 0xff}},
		{"#00ff0080", color.NRGBA{G: 0xff, A: 0x80}},
		{"0000ff", color.NRGBA{B: 0xff, A: 0xff}},
		{"#fff", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		assert.NoError(err, tt.in)
		assert.Equal(tt.want, got, tt.in)
	}

	_, err := ParseHex("#12345")
	assert.Error(err)
	_, err = ParseHex("#zzzzzz")
	assert.Error(err)
}

func TestHex_RoundTrip(t *testing.T) {
	c := color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0x78}
	got, err := ParseHex(Hex(c))
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, "#12345678", Hex(c))
}

func TestWithin_ExactBoundary(t *testing.T) {
	assert := assert.New(t)

	a := color.NRGBA{R: 10, G: 10, B: 10, A: 255}
	b := color.NRGBA{R: 13, G: 14, B: 10, A: 255} // distance 5

	assert.Equal(25, DistanceSq(a, b))
	assert.InDelta(5.0, Distance(a, b), 1e-9)
	assert.True(Within(a, b, 5))
	assert.False(Within(a, b, 4))
	assert.True(Within(a, a, 0))
	assert.False(Within(a, a, -1))
}

func TestMix(t *testing.T) {
	assert := assert.New(t)

	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 0}

	assert.Equal(black, Mix(black, white, 0))
	assert.Equal(white, Mix(black, white, 1))

	mid := Mix(black, white, 0.5)
	assert.InDelta(128, int(mid.R), 1)
	assert.InDelta(128, int(mid.A), 1)

	// t is clamped
	assert.Equal(white, Mix(black, white, 3))
}

func TestBuffer_IndexAndBounds(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(4, 3)
	assert.Equal(12, len(b.Pix))
	assert.Equal(2*4+1, b.Index(1, 2))
	assert.True(b.InBounds(3, 2))
	assert.False(b.InBounds(4, 0))
	assert.False(b.InBounds(0, -1))

	red := MustHex("#ff0000")
	b.Set(1, 2, red)
	b.Set(10, 10, red) // ignored
	assert.Equal(red, b.At(1, 2))
	assert.Equal(Empty, b.At(10, 10))
	assert.Equal(1, b.FilledCount())
	assert.True(b.HasFilled())
	assert.False(NewBuffer(2, 2).HasFilled())
	assert.False((*Buffer)(nil).HasFilled())

	c := b.Clone()
	assert.True(b.Equal(c))
	c.Clear(1, 2)
	assert.False(b.Equal(c))

	neg := NewBuffer(-3, 2)
	assert.Equal(0, neg.Width)
	assert.Empty(neg.Pix)
}

func TestBuffer_CopyRect(t *testing.T) {
	assert := assert.New(t)

	src := NewBuffer(4, 4)
	for i := range src.Pix {
		src.Pix[i] = MustHex("#00ff00")
	}
	dst := NewBuffer(4, 4)
	dst.CopyRect(src, image.Rect(1, 1, 3, 10))

	assert.Equal(4, dst.FilledCount()) // clipped to 2x2
	assert.True(dst.At(2, 2).Filled)
	assert.False(dst.At(0, 0).Filled)
}

func TestPixel_JSON(t *testing.T) {
	assert := assert.New(t)

	b := NewBuffer(2, 1)
	b.Set(1, 0, MustHex("#ff000080"))

	data, err := json.Marshal(b)
	assert.NoError(err)
	assert.JSONEq(`{"width":2,"height":1,"pixels":[null,"#ff000080"]}`, string(data))

	var back Buffer
	assert.NoError(json.Unmarshal(data, &back))
	assert.True(b.Equal(&back))
}

func TestKeys(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("3,-4", Key(3, -4))
	p, err := ParseKey("3,-4")
	assert.NoError(err)
	assert.Equal(image.Pt(3, -4), p)

	_, err = ParseKey("34")
	assert.Error(err)
	_, err = ParseKey("a,b")
	assert.Error(err)
}

func TestSample_NearestAndBilinear(t *testing.T) {
	assert := assert.New(t)

	src := NewBuffer(2, 1)
	src.Set(0, 0, Of(color.NRGBA{R: 0, A: 255}))
	src.Set(1, 0, Of(color.NRGBA{R: 200, A: 255}))

	assert.Equal(src.At(0, 0), Sample(src, nil, 0.9, 0.5, Nearest))
	assert.Equal(src.At(1, 0), Sample(src, nil, 1.1, 0.5, Nearest))
	assert.Equal(Empty, Sample(src, nil, -0.1, 0.5, Nearest))

	// Cell centers are exact under the bilinear filter.
	assert.Equal(src.At(1, 0), Sample(src, nil, 1.5, 0.5, BilinearFilter))

	mid := Sample(src, nil, 1.0, 0.5, BilinearFilter)
	assert.True(mid.Filled)
	assert.Equal(uint8(100), mid.R)

	mask := []byte{255, 0}
	assert.Equal(Empty, Sample(src, mask, 1.5, 0.5, Nearest))
	assert.Equal(src.At(0, 0), Sample(src, mask, 1.0, 0.5, BilinearFilter))
}

func TestBilinear_FourNeighbors(t *testing.T) {
	assert := assert.New(t)

	src := NewBuffer(2, 2)
	src.Set(0, 0, Of(color.NRGBA{A: 255}))
	src.Set(1, 0, Of(color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	src.Set(0, 1, Of(color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	src.Set(1, 1, Of(color.NRGBA{A: 255}))

	mid := Bilinear(src, nil, 0.5, 0.5)
	assert.True(mid.Filled)
	assert.InDelta(128, int(mid.R), 1)
	assert.InDelta(128, int(mid.B), 1)
	assert.Equal(uint8(255), mid.A)

	// A quarter toward (1,0): weights 9/16 black, 3/16 white, 3/16 white, 1/16 black.
	q := Bilinear(src, nil, 0.25, 0.25)
	assert.InDelta(96, int(q.G), 1)

	assert.Equal(Empty, Bilinear(NewBuffer(2, 2), nil, 0.5, 0.5))
}
