package wgpubackend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// Sizes of the constant blocks bound at group 0. They match the renderer's PerFrameConstants
// and PerDrawConstants.
const (
	frameBlockSize = 512
	drawBlockSize  = 256
)

// constantsKey identifies the buffers behind the frame and draw constant bindings.
type constantsKey struct {
	frame, draw device.BufferID
}

// shadowKey identifies the texture and sampler behind a shadow map binding.
type shadowKey struct {
	texture device.TextureID
	sampler device.SamplerID
}

// bindGroups owns the two bind group layouts every pipeline shares and caches the bind groups
// created from them.
//
// Group 0 holds the frame and draw constants with dynamic offsets, so one bind group serves
// every allocation in a constant buffer. Group 1 holds the shadow depth texture and its
// comparison sampler.
type bindGroups struct {
	constantsLayout *wgpu.BindGroupLayout
	shadowLayout    *wgpu.BindGroupLayout

	constants map[constantsKey]*wgpu.BindGroup
	shadow    map[shadowKey]*wgpu.BindGroup
}

func newBindGroups(d *wgpu.Device) (*bindGroups, error) {
	constantsLayout, err := d.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "constants",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   frameBlockSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   drawBlockSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating constants bind group layout: %w", err)
	}

	shadowLayout, err := d.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "shadow_map",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeComparison,
				},
			},
		},
	})
	if err != nil {
		constantsLayout.Release()
		return nil, fmt.Errorf("creating shadow bind group layout: %w", err)
	}

	return &bindGroups{
		constantsLayout: constantsLayout,
		shadowLayout:    shadowLayout,
		constants:       make(map[constantsKey]*wgpu.BindGroup),
		shadow:          make(map[shadowKey]*wgpu.BindGroup),
	}, nil
}

// layouts returns the bind group layouts of a pipeline in group order.
func (g *bindGroups) layouts(samplesShadowMap bool) []*wgpu.BindGroupLayout {
	if samplesShadowMap {
		return []*wgpu.BindGroupLayout{g.constantsLayout, g.shadowLayout}
	}
	return []*wgpu.BindGroupLayout{g.constantsLayout}
}

func (g *bindGroups) constantsGroup(d *wgpu.Device, key constantsKey, frame, draw *wgpu.Buffer) (*wgpu.BindGroup, error) {
	if bg, ok := g.constants[key]; ok {
		return bg, nil
	}
	bg, err := d.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "constants",
		Layout: g.constantsLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: frame, Offset: 0, Size: frameBlockSize},
			{Binding: 1, Buffer: draw, Offset: 0, Size: drawBlockSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating constants bind group: %w", err)
	}
	g.constants[key] = bg
	return bg, nil
}

func (g *bindGroups) shadowGroup(d *wgpu.Device, key shadowKey, view *wgpu.TextureView, sampler *wgpu.Sampler) (*wgpu.BindGroup, error) {
	if bg, ok := g.shadow[key]; ok {
		return bg, nil
	}
	bg, err := d.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "shadow_map",
		Layout: g.shadowLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating shadow bind group: %w", err)
	}
	g.shadow[key] = bg
	return bg, nil
}

// forgetBuffer drops every cached group that references a destroyed buffer.
func (g *bindGroups) forgetBuffer(id device.BufferID) {
	for key, bg := range g.constants {
		if key.frame == id || key.draw == id {
			bg.Release()
			delete(g.constants, key)
		}
	}
}

// forgetTexture drops every cached group that references a destroyed texture.
func (g *bindGroups) forgetTexture(id device.TextureID) {
	for key, bg := range g.shadow {
		if key.texture == id {
			bg.Release()
			delete(g.shadow, key)
		}
	}
}

// forgetSampler drops every cached group that references a destroyed sampler.
func (g *bindGroups) forgetSampler(id device.SamplerID) {
	for key, bg := range g.shadow {
		if key.sampler == id {
			bg.Release()
			delete(g.shadow, key)
		}
	}
}

func (g *bindGroups) release() {
	for key, bg := range g.constants {
		bg.Release()
		delete(g.constants, key)
	}
	for key, bg := range g.shadow {
		bg.Release()
		delete(g.shadow, key)
	}
	g.constantsLayout.Release()
	g.shadowLayout.Release()
}
