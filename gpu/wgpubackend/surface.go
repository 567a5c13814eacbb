package wgpubackend

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/voxcube/gpu"
)

var (
	ErrUnsupportedSurfaceFormat = errors.New("surface format is not supported")
	ErrFrameInFlight            = errors.New("previous frame has not been presented")
)

// Surface owns the WebGPU instance, the window surface and the render
// targets the main pass draws into. It implements gpu.FrameSource.
type Surface struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *Device
	Format   gpu.TextureFormat

	surface *wgpu.Surface
	config  *wgpu.SurfaceConfiguration
	samples uint32

	msaaTexture *wgpu.Texture
	msaaView    *wgpu.TextureView
	depthTex    *wgpu.Texture
	depthView   *wgpu.TextureView

	current *Frame
}

// NewSurface opens a device for window and configures its surface for
// samples-per-pixel rendering.
func NewSurface(window *glfw.Window, samples uint32) (*Surface, error) {
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}

	caps := surface.GetCapabilities(adapter)
	format, ok := colorFormat(caps.Formats[0])
	if !ok {
		return nil, fmt.Errorf("%v: %w", caps.Formats[0], ErrUnsupportedSurfaceFormat)
	}

	width, height := window.GetFramebufferSize()
	s := &Surface{
		Instance: instance,
		Adapter:  adapter,
		Device:   NewDevice(device),
		Format:   format,
		surface:  surface,
		samples:  samples,
		config: &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      caps.Formats[0],
			Width:       uint32(width),
			Height:      uint32(height),
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
		},
	}
	if err := s.configure(); err != nil {
		return nil, err
	}
	return s, nil
}

// Resize reconfigures the surface. Zero sizes, as sent for minimized
// windows, are ignored.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	s.config.Width = uint32(width)
	s.config.Height = uint32(height)
	return s.configure()
}

func (s *Surface) configure() error {
	s.surface.Configure(s.Adapter, s.Device.Device, s.config)
	s.releaseTargets()

	var err error
	if s.samples > 1 {
		s.msaaTexture, s.msaaView, err = s.createTarget("msaa color target", s.config.Format)
		if err != nil {
			return err
		}
	}
	s.depthTex, s.depthView, err = s.createTarget("depth target", wgpu.TextureFormatDepth32Float)
	return err
}

func (s *Surface) createTarget(label string, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := s.Device.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: s.config.Width, Height: s.config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   s.samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("failed to create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (s *Surface) releaseTargets() {
	if s.msaaView != nil {
		s.msaaView.Release()
		s.msaaTexture.Release()
		s.msaaView, s.msaaTexture = nil, nil
	}
	if s.depthView != nil {
		s.depthView.Release()
		s.depthTex.Release()
		s.depthView, s.depthTex = nil, nil
	}
}

func (s *Surface) Release() {
	s.releaseTargets()
	s.surface.Release()
}

func (s *Surface) Acquire() (gpu.Frame, error) {
	if s.current != nil {
		return nil, ErrFrameInFlight
	}
	texture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("failed to create surface view: %w", err)
	}
	encoder, err := s.Device.Device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("failed to create command encoder: %w", err)
	}
	s.current = &Frame{surface: s, texture: texture, view: view, encoder: encoder}
	return s.current, nil
}

// Frame records every pass of one surface image into a single encoder.
type Frame struct {
	surface *Surface
	texture *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
}

func (f *Frame) BeginPass(desc *gpu.PassDescriptor) (gpu.RenderPass, error) {
	loadOp := wgpu.LoadOpLoad
	if desc.Clear {
		loadOp = wgpu.LoadOpClear
	}
	color := wgpu.RenderPassColorAttachment{
		View:    f.view,
		LoadOp:  loadOp,
		StoreOp: wgpu.StoreOpStore,
		ClearValue: wgpu.Color{
			R: desc.ClearColor.R,
			G: desc.ClearColor.G,
			B: desc.ClearColor.B,
			A: desc.ClearColor.A,
		},
	}
	if f.surface.msaaView != nil {
		color.View = f.surface.msaaView
		color.ResolveTarget = f.view
	}
	pass := f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            f.surface.depthView,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	return &RenderPass{pass: pass}, nil
}

func (f *Frame) Present() error {
	defer f.release()
	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer cmd.Release()
	f.surface.Device.Queue.Submit(cmd)
	f.surface.surface.Present()
	return nil
}

func (f *Frame) release() {
	f.encoder.Release()
	f.view.Release()
	f.texture.Release()
	f.surface.current = nil
}

// RenderPass forwards to a WebGPU render pass encoder.
type RenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *RenderPass) SetPipeline(pipeline gpu.RenderPipeline) {
	p.pass.SetPipeline(pipeline.(*RenderPipeline).pipeline)
}

func (p *RenderPass) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets []uint32) {
	p.pass.SetBindGroup(index, group.(*BindGroup).group, dynamicOffsets)
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buffer gpu.Buffer, offset, size uint64) {
	if size == gpu.WholeSize {
		size = wgpu.WholeSize
	}
	p.pass.SetVertexBuffer(slot, buffer.(*Buffer).buf, offset, size)
}

func (p *RenderPass) SetIndexBuffer(buffer gpu.Buffer, format gpu.IndexFormat, offset, size uint64) {
	if size == gpu.WholeSize {
		size = wgpu.WholeSize
	}
	p.pass.SetIndexBuffer(buffer.(*Buffer).buf, indexFormat(format), offset, size)
}

func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *RenderPass) End() error {
	defer p.pass.Release()
	return p.pass.End()
}
