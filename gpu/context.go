package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/partview3d/partview/core"
)

// DepthFormat is the depth attachment format shared by every pipeline.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// Context owns the device, queue, surface and the render targets (depth and
// optional MSAA color). It has an explicit Init/Dispose lifecycle bound to
// the hosting viewer's mount; all gpu components receive it as a parameter,
// never as ambient package state.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	DepthView *wgpu.TextureView
	MSAAView  *wgpu.TextureView
	depthTex  *wgpu.Texture
	msaaTex   *wgpu.Texture

	SampleCount uint32

	log     core.Logger
	onError func(msg string)
}

// NewContext creates an unmounted context. onError receives human-readable
// device failure messages; it may be nil.
func NewContext(log core.Logger, onError func(msg string)) *Context {
	if log == nil {
		log = core.NewNopLogger()
	}
	return &Context{log: log, onError: onError, SampleCount: 1}
}

// ReportError logs a device failure and forwards it to the host callback.
func (c *Context) ReportError(op string, err error) {
	msg := fmt.Sprintf("%s: %v", op, err)
	c.log.Errorf("%s", msg)
	if c.onError != nil {
		c.onError(msg)
	}
}

// Init acquires adapter/device/queue and configures the surface. sampleCount
// selects MSAA; anything below 1 falls back to 1.
func (c *Context) Init(desc *wgpu.SurfaceDescriptor, width, height, sampleCount int) error {
	if sampleCount < 1 {
		sampleCount = 1
	}
	c.SampleCount = uint32(sampleCount)

	c.Instance = wgpu.CreateInstance(nil)
	c.Surface = c.Instance.CreateSurface(desc)

	adapter, err := c.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		c.ReportError("request adapter failed", err)
		return err
	}
	c.Adapter = adapter

	c.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		c.ReportError("request device failed", err)
		return err
	}
	c.Queue = c.Device.GetQueue()

	caps := c.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		err = errors.New("surface reports no supported formats")
		c.ReportError("surface configuration failed", err)
		return err
	}
	c.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	if width > 0 && height > 0 {
		c.Surface.Configure(c.Adapter, c.Device, c.Config)
	}

	c.createTargets(width, height)
	c.log.Infof("device ready, surface %dx%d format %v samples %d", width, height, c.Config.Format, c.SampleCount)
	return nil
}

// Format returns the surface color format.
func (c *Context) Format() wgpu.TextureFormat {
	return c.Config.Format
}

// Resize reconfigures the surface and recreates the render targets. A zero
// dimension tears the targets down; frames are skipped until the next
// nonzero resize.
func (c *Context) Resize(width, height int) {
	if c.Config == nil {
		return
	}
	c.Config.Width = uint32(width)
	c.Config.Height = uint32(height)
	if width > 0 && height > 0 {
		c.Surface.Configure(c.Adapter, c.Device, c.Config)
	}
	c.createTargets(width, height)
}

// SetSampleCount recreates the render targets for a new MSAA level. The
// caller is responsible for rebuilding pipelines to match.
func (c *Context) SetSampleCount(sampleCount int) {
	if sampleCount < 1 {
		sampleCount = 1
	}
	if uint32(sampleCount) == c.SampleCount {
		return
	}
	c.SampleCount = uint32(sampleCount)
	if c.Config != nil {
		c.createTargets(int(c.Config.Width), int(c.Config.Height))
	}
}

func (c *Context) releaseTargets() {
	if c.depthTex != nil {
		c.depthTex.Release()
		c.depthTex = nil
		c.DepthView = nil
	}
	if c.msaaTex != nil {
		c.msaaTex.Release()
		c.msaaTex = nil
		c.MSAAView = nil
	}
}

func (c *Context) createTargets(width, height int) {
	c.releaseTargets()
	if width <= 0 || height <= 0 {
		return
	}

	depthTex, err := c.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "ViewerDepth",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   c.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		c.ReportError("create depth texture failed", err)
		return
	}
	c.depthTex = depthTex
	c.DepthView, err = depthTex.CreateView(nil)
	if err != nil {
		c.ReportError("create depth view failed", err)
		return
	}

	if c.SampleCount > 1 {
		msaaTex, err := c.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "ViewerMSAA",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   c.SampleCount,
			Dimension:     wgpu.TextureDimension2D,
			Format:        c.Config.Format,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			c.ReportError("create msaa texture failed", err)
			return
		}
		c.msaaTex = msaaTex
		c.MSAAView, err = msaaTex.CreateView(nil)
		if err != nil {
			c.ReportError("create msaa view failed", err)
		}
	}
}

// TargetsReady reports whether a frame can be rendered at all.
func (c *Context) TargetsReady() bool {
	return c.Device != nil && c.Config != nil &&
		c.Config.Width > 0 && c.Config.Height > 0 &&
		c.DepthView != nil &&
		(c.SampleCount == 1 || c.MSAAView != nil)
}

// Dispose releases the render targets and the device. Safe to call twice.
func (c *Context) Dispose() {
	c.releaseTargets()
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
		c.Queue = nil
	}
	c.Surface = nil
	c.Adapter = nil
	c.Instance = nil
	c.Config = nil
}
