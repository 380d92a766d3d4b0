package dof

import (
	"bokeh-gl/libio"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/slices"
)

// Point is one detected bokeh. Position is (x, y, linear depth, coc) with x and y in
// window pixels, Color is (r, g, b, 1). Origin is the source pixel index.
type Point struct {
	Position mgl32.Vec4
	Color    mgl32.Vec4
	Origin   int
}

// ComputeCoC writes (linear depth, coc) for every pixel into dst.
func ComputeCoC(dst, position *libio.FloatImage, view mgl32.Mat4, p Params) {
	forEachRow(dst.Height, func(y int) {
		for x := 0; x < dst.Width; x++ {
			depth := LinearDepth(view, position.Vec4(x, y), p.FarEnd)
			i := dst.Index(x, y)
			dst.Pix[i] = depth
			dst.Pix[i+1] = CircleOfConfusion(depth, p)
		}
	})
}

// Detect moves bokeh pixels into points and writes every other pixel unchanged to dst.
// Bokeh pixels are zero in dst.
func Detect(dst, color, blurDepth *libio.FloatImage, p Params, counter *Counter, points []Point) {
	forEachRow(dst.Height, func(y int) {
		for x := 0; x < dst.Width; x++ {
			c := color.Vec4(x, y)
			if color.Channels == 3 {
				c[3] = 1
			}
			coc := blurDepth.Pix[blurDepth.Index(x, y)+1]
			if !IsBokeh(c.Vec3(), coc, p) {
				dst.SetVec4(x, y, c)
				continue
			}

			dst.SetVec4(x, y, mgl32.Vec4{})
			slot, ok := counter.Reserve()
			if !ok {
				continue
			}
			points[slot] = Point{
				Position: mgl32.Vec4{float32(x) + 0.5, float32(y) + 0.5, blurDepth.Pix[blurDepth.Index(x, y)], coc},
				Color:    c.Vec3().Vec4(1),
				Origin:   x + y*dst.Width,
			}
		}
	})
}

// SortPoints orders points by source pixel so the splat order does not depend on scheduling.
func SortPoints(points []Point) {
	slices.SortFunc(points, func(a, b Point) int {
		return a.Origin - b.Origin
	})
}

// SeparableBlur runs a horizontal then a vertical gaussian through tmp into dst.
// The kernel of each pixel is sized by its own circle of confusion.
func SeparableBlur(dst, tmp, src, blurDepth *libio.FloatImage, p Params) {
	blurDirection(tmp, src, blurDepth, p, 1, 0)
	blurDirection(dst, tmp, blurDepth, p, 0, 1)
}

func blurDirection(dst, src, blurDepth *libio.FloatImage, p Params, dx, dy int) {
	w, h := src.Width, src.Height
	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			r := blurDepth.Pix[blurDepth.Index(x, y)+1]
			if r < 0.5 {
				dst.SetVec4(x, y, src.Vec4(x, y))
				continue
			}

			taps := int(math32.Ceil(math32.Min(r, p.MaxCoCRadius)))
			sigma := r / 2
			var sum mgl32.Vec4
			var weights float32
			for i := -taps; i <= taps; i++ {
				weight := math32.Exp(-float32(i*i) / (2 * sigma * sigma))
				sx := clampInt(x+i*dx, 0, w-1)
				sy := clampInt(y+i*dy, 0, h-1)
				sum = sum.Add(src.Vec4(sx, sy).Mul(weight))
				weights += weight
			}
			dst.SetVec4(x, y, sum.Mul(1/weights))
		}
	})
}

// PoissonBlur averages the first NSamples disk samples scaled by the pixel's coc.
// Tap i reads the pixel containing center + sample_i * coc.
func PoissonBlur(dst, src, blurDepth *libio.FloatImage, p Params) {
	samples := SamplePrefix(p.NSamples)
	w, h := src.Width, src.Height
	forEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			r := blurDepth.Pix[blurDepth.Index(x, y)+1]
			var sum mgl32.Vec4
			for _, s := range samples {
				sx := clampInt(int(math32.Floor(float32(x)+0.5+s[0]*r)), 0, w-1)
				sy := clampInt(int(math32.Floor(float32(y)+0.5+s[1]*r)), 0, h-1)
				sum = sum.Add(src.Vec4(sx, sy))
			}
			dst.SetVec4(x, y, sum.Mul(1/float32(len(samples))))
		}
	})
}

// SpriteRadius is the half extent in pixels of the quad drawn for a point.
func SpriteRadius(coc float32, p Params) float32 {
	return math32.Min(coc, p.MaxBokehRadius)
}

// SpriteAttenuation spreads a point's energy over its sprite area.
func SpriteAttenuation(radius float32) float32 {
	return 1 / math32.Max(1, math32.Pi*radius*radius)
}

// RenderBokeh adds one sprite per point onto dst. A sprite is hidden where the scene is
// closer than its depth minus BokehDepthCutoff.
func RenderBokeh(dst, blurDepth *libio.FloatImage, points []Point, shape Shape, p Params) {
	w, h := dst.Width, dst.Height
	forEachRow(h, func(y int) {
		py := float32(y) + 0.5
		for _, pt := range points {
			r := SpriteRadius(pt.Position[3], p)
			if r <= 0 {
				continue
			}
			cx, cy := pt.Position[0], pt.Position[1]
			if py < cy-r || py > cy+r {
				continue
			}
			x0 := clampInt(int(math32.Ceil(cx-r-0.5)), 0, w)
			x1 := clampInt(int(math32.Floor(cx+r-0.5)), -1, w-1)
			weight := pt.Color.Vec3().Mul(SpriteAttenuation(r))
			for x := x0; x <= x1; x++ {
				sceneDepth := blurDepth.Pix[blurDepth.Index(x, y)]
				if sceneDepth+p.BokehDepthCutoff < pt.Position[2] {
					continue
				}
				px := float32(x) + 0.5
				s := shape.Sample((px-cx+r)/(2*r), (py-cy+r)/(2*r))
				i := dst.Index(x, y)
				dst.Pix[i] += s[0] * weight[0]
				dst.Pix[i+1] += s[1] * weight[1]
				dst.Pix[i+2] += s[2] * weight[2]
			}
		}
	})
}
