package main

import (
	"flag"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/partview3d/partview/core"
	"github.com/partview3d/partview/viewer"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	title := flag.String("title", "partview demo", "window title")
	flag.Parse()

	log := core.NewDefaultLogger("partview", *debug)

	v, err := viewer.New(viewer.Config{
		Width:  1280,
		Height: 720,
		Title:  *title,
		Logger: log,
		Callbacks: viewer.Callbacks{
			OnReady: func() { log.Infof("viewer ready") },
			OnError: func(msg string) { log.Errorf("device: %s", msg) },
			OnResize: func(w, h int) {
				log.Debugf("resized to %dx%d", w, h)
			},
			OnFrameTime: func(avg float64) {
				log.Debugf("frame %.2f ms", avg)
			},
		},
	})
	if err != nil {
		log.Errorf("start viewer: %v", err)
		os.Exit(1)
	}

	if err := loadDemoPart(v); err != nil {
		log.Errorf("load demo part: %v", err)
		os.Exit(1)
	}
	v.ZoomToFit()

	v.Run()
}

// loadDemoPart builds a small procedural part: a box mesh, a measurement
// polyline along one edge and a text label above it.
func loadDemoPart(v *viewer.Viewer) error {
	mesh := boxMesh(2, 1, 1.5, mgl32.Vec4{0.55, 0.6, 0.85, 1})
	if _, err := v.AddObject(core.MeshObject(mesh)); err != nil {
		return err
	}

	points := []mgl32.Vec3{
		{-1, 0.7, 0.75},
		{1, 0.7, 0.75},
	}
	line := &core.LineSet{
		Points:    points,
		Thickness: []float32{0.02},
		Colors:    []mgl32.Vec4{{0.95, 0.75, 0.2, 1}},
		Fades:     []float32{1},
	}
	if _, err := v.AddObject(core.LineObject(line)); err != nil {
		return err
	}

	label := &core.Billboard{
		Text:     "2.00",
		Position: mgl32.Vec3{0, 0.85, 0.75},
		ScalePx:  0.6,
		Color:    mgl32.Vec4{1, 1, 1, 1},
	}
	if _, err := v.AddObject(core.BillboardObject(label)); err != nil {
		return err
	}
	return nil
}

// boxMesh builds an axis-aligned box centered on the origin with a single
// uniform color.
func boxMesh(sx, sy, sz float32, color mgl32.Vec4) *core.MeshData {
	hx, hy, hz := sx/2, sy/2, sz/2
	corners := [][3]float32{
		{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {-hx, hy, -hz},
		{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz},
	}
	faces := [][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
		{0, 4, 7, 3}, // -X
		{1, 2, 6, 5}, // +X
	}

	var vertices []float32
	var indices []uint16
	for _, f := range faces {
		base := uint16(len(vertices) / 3)
		for _, ci := range f {
			vertices = append(vertices, corners[ci][0], corners[ci][1], corners[ci][2])
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return &core.MeshData{
		Vertices:    vertices,
		Colors:      []float32{color.X(), color.Y(), color.Z(), color.W()},
		Indices:     indices,
		SingleColor: true,
	}
}
