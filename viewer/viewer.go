package viewer

import (
	"fmt"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/partview3d/partview/core"
	"github.com/partview3d/partview/gpu"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

const defaultFontSize = 32

// Callbacks are the host-facing lifecycle hooks. All fields are optional.
type Callbacks struct {
	// OnReady fires once the device and surface are usable.
	OnReady func()
	// OnError receives human-readable device failure messages.
	OnError func(msg string)
	// OnResize fires after the surface has been reconfigured.
	OnResize func(width, height int)
	// OnFrameTime reports the rolling average frame time in milliseconds,
	// at most once per second.
	OnFrameTime func(avgMillis float64)
}

type Config struct {
	Width  int
	Height int
	Title  string

	// Options seeds the live option set; nil means defaults.
	Options *core.Options
	// Logger defaults to a no-op logger when nil.
	Logger core.Logger
	// FontTTF overrides the embedded label font when non-nil.
	FontTTF []byte

	Callbacks Callbacks
}

// Viewer is the host shell: it owns the window, the gpu context, the camera
// and the live options, and drives the render loop. All methods must be
// called from the main thread.
type Viewer struct {
	window    *glfw.Window
	opts      *core.Options
	prev      core.Options
	camera    *core.OrbitCamera
	ctx       *gpu.Context
	renderer  *gpu.Renderer
	log       core.Logger
	callbacks Callbacks
	stats     frameStats

	lastX, lastY float64
	orbiting     bool
	panning      bool
}

// New creates the window, mounts the gpu context and wires input. The
// OnReady callback fires before New returns.
func New(cfg Config) (*Viewer, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.Title == "" {
		cfg.Title = "partview"
	}
	log := cfg.Logger
	if log == nil {
		log = core.NewNopLogger()
	}
	opts := cfg.Options
	if opts == nil {
		opts = core.DefaultOptions()
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	v := &Viewer{
		window:    window,
		opts:      opts,
		prev:      *opts,
		log:       log,
		callbacks: cfg.Callbacks,
	}

	v.ctx = gpu.NewContext(log, cfg.Callbacks.OnError)
	fbWidth, fbHeight := window.GetFramebufferSize()
	if err := v.ctx.Init(wgpuglfw.GetSurfaceDescriptor(window), fbWidth, fbHeight, opts.SampleCount); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("init gpu context: %w", err)
	}

	var atlas *core.GlyphAtlas
	if cfg.FontTTF != nil {
		atlas, err = core.NewGlyphAtlas(cfg.FontTTF, defaultFontSize)
	} else {
		atlas, err = core.NewDefaultGlyphAtlas(defaultFontSize)
	}
	if err != nil {
		v.ctx.Dispose()
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("build glyph atlas: %w", err)
	}

	v.camera = core.NewOrbitCamera(opts)
	v.renderer, err = gpu.NewRenderer(v.ctx, v.camera, opts, atlas, log)
	if err != nil {
		v.ctx.Dispose()
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	v.installCallbacks()

	if v.callbacks.OnReady != nil {
		v.callbacks.OnReady()
	}
	return v, nil
}

func (v *Viewer) installCallbacks() {
	v.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		v.ctx.Resize(width, height)
		if v.callbacks.OnResize != nil {
			v.callbacks.OnResize(width, height)
		}
	})

	v.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		pressed := action == glfw.Press
		switch button {
		case glfw.MouseButtonLeft:
			v.orbiting = pressed
		case glfw.MouseButtonRight, glfw.MouseButtonMiddle:
			v.panning = pressed
		}
		if pressed {
			v.lastX, v.lastY = w.GetCursorPos()
		}
	})

	v.window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		dx := float32(xpos - v.lastX)
		dy := float32(ypos - v.lastY)
		v.lastX, v.lastY = xpos, ypos

		if v.orbiting {
			v.camera.Orbit(dx, dy)
		} else if v.panning {
			fast := w.GetKey(glfw.KeyLeftShift) == glfw.Press ||
				w.GetKey(glfw.KeyRightShift) == glfw.Press
			v.camera.PanWithMouse(dx, dy, fast)
		}
	})

	v.window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		v.camera.Zoom(float32(-yoff))
	})

	v.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		fast := mods&glfw.ModShift != 0
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyW, glfw.KeyUp:
			v.camera.PanWithKeyboard(0, 0, 1, fast)
		case glfw.KeyS, glfw.KeyDown:
			v.camera.PanWithKeyboard(0, 0, -1, fast)
		case glfw.KeyA, glfw.KeyLeft:
			v.camera.PanWithKeyboard(0, -1, 0, fast)
		case glfw.KeyD, glfw.KeyRight:
			v.camera.PanWithKeyboard(0, 1, 0, fast)
		case glfw.KeyF:
			v.ZoomToFit()
		case glfw.Key1:
			v.camera.SetCardinalView(core.ViewPosX)
		case glfw.Key2:
			v.camera.SetCardinalView(core.ViewNegX)
		case glfw.Key3:
			v.camera.SetCardinalView(core.ViewPosY)
		case glfw.Key4:
			v.camera.SetCardinalView(core.ViewNegY)
		case glfw.Key5:
			v.camera.SetCardinalView(core.ViewPosZ)
		case glfw.Key6:
			v.camera.SetCardinalView(core.ViewNegZ)
		case glfw.KeyU:
			v.SwapUpAxis()
		}
	})
}

// Options returns the live option set. Mutate it, then the next frame picks
// up the change through the per-frame diff.
func (v *Viewer) Options() *core.Options { return v.opts }

// Camera exposes the orbit camera for host-driven navigation.
func (v *Viewer) Camera() *core.OrbitCamera { return v.camera }

// AddObject registers any scene-object variant, dispatching on its kind,
// and returns the object's id.
func (v *Viewer) AddObject(obj core.Object) (string, error) {
	switch obj.Kind {
	case core.KindMesh:
		return v.AddMesh(obj.Mesh)
	case core.KindLineSet:
		return v.AddLines(obj.Lines)
	case core.KindBillboard:
		return v.AddTextBillboard(obj.Billboard)
	}
	return "", fmt.Errorf("unknown object kind %d", obj.Kind)
}

// RemoveObject removes a previously added scene object, dispatching on its
// kind to the matching collection.
func (v *Viewer) RemoveObject(obj core.Object) error {
	switch obj.Kind {
	case core.KindMesh:
		return v.RemoveMesh(obj.ID())
	case core.KindLineSet:
		return v.RemoveLines(obj.ID())
	case core.KindBillboard:
		return v.RemoveTextBillboard(obj.ID())
	}
	return fmt.Errorf("unknown object kind %d", obj.Kind)
}

// AddMesh registers mesh data and returns its id. A uniform-colored mesh
// with no color entry picks up the configured base color.
func (v *Viewer) AddMesh(data *core.MeshData) (string, error) {
	if data.SingleColor && len(data.Colors) == 0 {
		c := v.opts.BaseColor
		data.Colors = []float32{c.X(), c.Y(), c.Z(), c.W()}
	}
	return v.renderer.Registry.AddMesh(data)
}

// RemoveMesh removes a mesh by id.
func (v *Viewer) RemoveMesh(id string) error {
	return v.renderer.Registry.RemoveMesh(id)
}

// ChangeMeshColor recolors a registered mesh in place.
func (v *Viewer) ChangeMeshColor(id string, color mgl32.Vec4) error {
	return v.renderer.Registry.ChangeMeshColor(id, color)
}

// ClearMeshes removes every mesh.
func (v *Viewer) ClearMeshes() { v.renderer.Registry.ClearMeshes() }

// AddLines registers a polyline and returns its id.
func (v *Viewer) AddLines(lines *core.LineSet) (string, error) {
	return v.renderer.Registry.AddLines(lines)
}

// RemoveLines removes a line set by id.
func (v *Viewer) RemoveLines(id string) error {
	return v.renderer.Registry.RemoveLines(id)
}

// ClearLines removes every line set.
func (v *Viewer) ClearLines() { v.renderer.Registry.ClearLines() }

// AddTextBillboard registers a screen-aligned text label and returns its id.
func (v *Viewer) AddTextBillboard(b *core.Billboard) (string, error) {
	return v.renderer.Registry.AddTextBillboard(b)
}

// RemoveTextBillboard removes a billboard by id.
func (v *Viewer) RemoveTextBillboard(id string) error {
	return v.renderer.Registry.RemoveTextBillboard(id)
}

// ClearTextBillboards removes every billboard.
func (v *Viewer) ClearTextBillboards() { v.renderer.Registry.ClearTextBillboards() }

// ZoomToFit recenters the camera on the merged scene bounds. A scene with no
// meshes resets to the origin; Reset floors the degenerate radius.
func (v *Viewer) ZoomToFit() {
	center, radius, ok := v.renderer.Registry.SceneBounds()
	if !ok {
		center, radius = mgl32.Vec3{}, 0
	}
	v.camera.Reset(center, radius)
}

// SwapUpAxis toggles between Y-up and Z-up. The camera keeps its visual
// position; the grid plane regenerates through the option diff.
func (v *Viewer) SwapUpAxis() {
	v.camera.SwapCameraUp()
	v.opts.ZIsUp = !v.opts.ZIsUp
}

// Frame applies pending option changes and renders once.
func (v *Viewer) Frame() {
	if v.camera.ZIsUp() != v.opts.ZIsUp {
		v.camera.SwapCameraUp()
	}
	v.renderer.ApplyOptions(&v.prev)
	v.prev = *v.opts
	v.renderer.RenderFrame()
}

// Run drives the event/render loop until the window closes, then disposes
// the device and window.
func (v *Viewer) Run() {
	defer v.Close()
	for !v.window.ShouldClose() {
		start := time.Now()
		glfw.PollEvents()
		v.Frame()

		millis := float64(time.Since(start)) / float64(time.Millisecond)
		if avg, due := v.stats.tick(millis, time.Now()); due && v.callbacks.OnFrameTime != nil {
			v.callbacks.OnFrameTime(avg)
		}
	}
}

// Close releases the device and destroys the window. Safe to call twice.
func (v *Viewer) Close() {
	if v.ctx != nil {
		v.ctx.Dispose()
		v.ctx = nil
	}
	if v.window != nil {
		v.window.Destroy()
		v.window = nil
		glfw.Terminate()
	}
}
