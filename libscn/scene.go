package libscn

import (
	"runtime"
	"sync"

	"bokeh-gl/libio"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Sphere struct {
	Center   mgl32.Vec3
	Radius   float32
	Albedo   mgl32.Vec3
	Emission mgl32.Vec3
}

type PointLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// Scene is a small analytic scene that is ray cast into a G-buffer. It stands in for a
// rasterized geometry pass wherever a position and HDR color buffer are needed.
type Scene struct {
	Spheres []Sphere
	Lights  []PointLight
	// Ground is the plane y = 0, checkered with the two albedos.
	Ground         bool
	GroundAlbedo   [2]mgl32.Vec3
	GroundTileSize float32
	Ambient        mgl32.Vec3
	Sky            mgl32.Vec3
}

// GBuffer holds world space positions (w == 0 for background) and HDR color,
// both rgba and origin bottom left.
type GBuffer struct {
	Color    *libio.FloatImage
	Position *libio.FloatImage
}

// DefaultScene is a few lit spheres in the focus range with a field of bright emitters
// behind them, which turn into bokeh with the default parameters.
func DefaultScene() *Scene {
	scene := &Scene{
		Ground:         true,
		GroundAlbedo:   [2]mgl32.Vec3{{0.45, 0.45, 0.42}, {0.2, 0.2, 0.22}},
		GroundTileSize: 1,
		Ambient:        mgl32.Vec3{0.03, 0.035, 0.05},
		Sky:            mgl32.Vec3{0.02, 0.025, 0.06},
		Lights: []PointLight{
			{Position: mgl32.Vec3{-2, 4, 3}, Color: mgl32.Vec3{40, 36, 30}},
			{Position: mgl32.Vec3{3, 2, -4}, Color: mgl32.Vec3{10, 14, 24}},
		},
		Spheres: []Sphere{
			{Center: mgl32.Vec3{0, 0.6, -2}, Radius: 0.6, Albedo: mgl32.Vec3{0.8, 0.25, 0.2}},
			{Center: mgl32.Vec3{-1.4, 0.45, -3}, Radius: 0.45, Albedo: mgl32.Vec3{0.2, 0.7, 0.3}},
			{Center: mgl32.Vec3{1.5, 0.5, -4}, Radius: 0.5, Albedo: mgl32.Vec3{0.25, 0.35, 0.85}},
		},
	}

	// a staggered grid of small emitters, between 16 and 30 units away
	colors := []mgl32.Vec3{{30000, 22000, 9000}, {9000, 18000, 30000}, {28000, 9000, 20000}, {26000, 26000, 26000}}
	i := 0
	for row := 0; row < 4; row++ {
		for col := -4; col <= 4; col++ {
			z := -12 - float32(row)*4 - float32(col&1)*1.5
			x := float32(col)*2.2 + float32(row%2)*1.1
			y := 1 + float32(row)*0.9 + float32((col+4)%3)*0.4
			scene.Spheres = append(scene.Spheres, Sphere{
				Center:   mgl32.Vec3{x, y, z},
				Radius:   0.15,
				Emission: colors[i%len(colors)],
			})
			i++
		}
	}
	return scene
}

type hit struct {
	t        float32
	position mgl32.Vec3
	normal   mgl32.Vec3
	albedo   mgl32.Vec3
	emission mgl32.Vec3
}

func (s *Scene) intersect(origin, dir mgl32.Vec3) (h hit, ok bool) {
	h.t = math32.Inf(1)
	for i := range s.Spheres {
		sp := &s.Spheres[i]
		oc := origin.Sub(sp.Center)
		b := oc.Dot(dir)
		c := oc.Dot(oc) - sp.Radius*sp.Radius
		disc := b*b - c
		if disc < 0 {
			continue
		}
		sq := math32.Sqrt(disc)
		t := -b - sq
		if t <= 1e-4 {
			t = -b + sq
		}
		if t <= 1e-4 || t >= h.t {
			continue
		}
		p := origin.Add(dir.Mul(t))
		h = hit{t: t, position: p, normal: p.Sub(sp.Center).Mul(1 / sp.Radius), albedo: sp.Albedo, emission: sp.Emission}
		ok = true
	}

	if s.Ground && dir.Y() < 0 {
		t := -origin.Y() / dir.Y()
		if t > 1e-4 && t < h.t {
			p := origin.Add(dir.Mul(t))
			tile := s.GroundTileSize
			if tile <= 0 {
				tile = 1
			}
			checker := (int(math32.Floor(p.X()/tile)) + int(math32.Floor(p.Z()/tile))) & 1
			h = hit{t: t, position: p, normal: mgl32.Vec3{0, 1, 0}, albedo: s.GroundAlbedo[checker]}
			ok = true
		}
	}
	return h, ok
}

func (s *Scene) shade(h hit) mgl32.Vec3 {
	color := h.emission.Add(mgl32.Vec3{h.albedo[0] * s.Ambient[0], h.albedo[1] * s.Ambient[1], h.albedo[2] * s.Ambient[2]})
	for _, light := range s.Lights {
		l := light.Position.Sub(h.position)
		dist2 := l.Dot(l)
		ndotl := h.normal.Dot(l.Normalize())
		if ndotl <= 0 {
			continue
		}
		e := ndotl / dist2
		color = color.Add(mgl32.Vec3{h.albedo[0] * light.Color[0] * e, h.albedo[1] * light.Color[1] * e, h.albedo[2] * light.Color[2] * e})
	}
	return color
}

// Render ray casts every pixel center. Rows are split across goroutines.
func (s *Scene) Render(cam *Camera, width, height int) GBuffer {
	gb := GBuffer{
		Color:    libio.NewBlankFloatImage(4, width, height),
		Position: libio.NewBlankFloatImage(4, width, height),
	}
	cam.ViewportDimension = mgl32.Vec2{float32(width), float32(height)}
	cam.UpdateViewMatrix()
	cam.UpdateProjectionMatrix()

	ray := cam.Rays()
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	var wg sync.WaitGroup
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				for x := 0; x < width; x++ {
					dir := ray(float32(x)+0.5, float32(y)+0.5)
					h, ok := s.intersect(cam.Position, dir)
					if !ok {
						gb.Color.SetVec4(x, y, s.Sky.Vec4(1))
						continue
					}
					gb.Color.SetVec4(x, y, s.shade(h).Vec4(1))
					gb.Position.SetVec4(x, y, h.position.Vec4(1))
				}
			}
		}()
	}
	wg.Wait()
	return gb
}
