package light

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/gogpu/gputypes"
)

// ErrInvalidResolution is returned when a shadow map is created or resized to zero texels.
var ErrInvalidResolution = errors.New("light: invalid shadow map resolution")

// ShadowMap owns the depth texture the shadow pass renders into, the comparison sampler
// the forward pass samples it with, and the persistent descriptor slot the texture occupies.
//
// The depth texture moves between two states each frame: DepthWrite while the shadow pass
// renders into it and ShaderResource while the forward pass samples it.
type ShadowMap interface {
	// Texture returns the shadow depth texture.
	//
	// Returns:
	//   - device.TextureID: the depth texture
	Texture() device.TextureID

	// Sampler returns the comparison sampler used to sample the depth texture.
	//
	// Returns:
	//   - device.SamplerID: the comparison sampler
	Sampler() device.SamplerID

	// Descriptor returns the persistent descriptor slot of the depth texture.
	//
	// Returns:
	//   - device.DescriptorHandle: the descriptor slot
	Descriptor() device.DescriptorHandle

	// Resolution returns the width and height of the depth texture in texels.
	//
	// Returns:
	//   - uint32: the resolution
	Resolution() uint32

	// State returns the tracked resource state of the depth texture.
	//
	// Returns:
	//   - device.ResourceState: the current state
	State() device.ResourceState

	// BeginDepthWrite records a transition of the depth texture into DepthWrite.
	// Must be called while a frame is recording and outside a render pass.
	BeginDepthWrite()

	// BeginSampling records a transition of the depth texture into ShaderResource.
	// Must be called while a frame is recording and outside a render pass.
	BeginSampling()

	// Resize destroys and recreates the depth texture and its descriptor slot.
	// The caller must ensure the GPU no longer uses the old texture.
	//
	// Parameters:
	//   - resolution: the new width and height in texels
	//
	// Returns:
	//   - error: ErrInvalidResolution for zero, or a backend error
	Resize(resolution uint32) error

	// Release destroys the texture, the sampler and the descriptor slot.
	Release()
}

type shadowMapImpl struct {
	mu *sync.Mutex

	backend    device.GraphicsBackend
	heap       device.DescriptorHeap
	resolution uint32

	texture    device.TextureID
	sampler    device.SamplerID
	descriptor device.DescriptorHandle
	state      device.ResourceState
}

var _ ShadowMap = &shadowMapImpl{}

// NewShadowMap creates a shadow map on the given backend. The depth texture uses the
// Depth32Float format and the sampler compares with LessEqual, clamping to a border depth
// of 1.0 where the backend supports it.
//
// Parameters:
//   - backend: the graphics backend that owns the resources
//   - heap: the descriptor heap the depth texture's slot is allocated from
//   - options: variadic list of ShadowMapBuilderOption functions
//
// Returns:
//   - ShadowMap: the new shadow map
//   - error: ErrInvalidResolution, or an error if a resource could not be created
func NewShadowMap(backend device.GraphicsBackend, heap device.DescriptorHeap, options ...ShadowMapBuilderOption) (ShadowMap, error) {
	s := &shadowMapImpl{
		mu:         &sync.Mutex{},
		backend:    backend,
		heap:       heap,
		resolution: ShadowMapResolution,
	}
	for _, option := range options {
		option(s)
	}
	if s.resolution == 0 {
		return nil, ErrInvalidResolution
	}

	sampler, err := backend.CreateSampler(device.SamplerDescriptor{
		Label:      "shadow_sampler",
		Comparison: true,
		Compare:    gputypes.CompareFunctionLessEqual,
		Border:     backend.Capabilities().ComparisonBorder,
	})
	if err != nil {
		return nil, fmt.Errorf("creating shadow sampler: %w", err)
	}
	s.sampler = sampler

	if err := s.createTarget(); err != nil {
		backend.DestroySampler(sampler)
		return nil, err
	}
	return s, nil
}

func (s *shadowMapImpl) createTarget() error {
	tex, err := s.backend.CreateTexture(device.TextureDescriptor{
		Label:  "shadow_map",
		Width:  s.resolution,
		Height: s.resolution,
		Format: gputypes.TextureFormatDepth32Float,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("creating %dx%d shadow map: %w", s.resolution, s.resolution, err)
	}
	handle, err := s.heap.AllocatePersistent(1)
	if err != nil {
		s.backend.DestroyTexture(tex)
		return fmt.Errorf("allocating shadow map descriptor: %w", err)
	}
	s.texture = tex
	s.descriptor = handle
	s.state = device.ResourceStateCommon
	return nil
}

func (s *shadowMapImpl) destroyTarget() {
	if s.texture != 0 {
		s.backend.DestroyTexture(s.texture)
		s.heap.FreePersistent(s.descriptor)
		s.texture = 0
		s.descriptor = device.DescriptorHandle{}
	}
}

func (s *shadowMapImpl) Texture() device.TextureID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texture
}

func (s *shadowMapImpl) Sampler() device.SamplerID {
	return s.sampler
}

func (s *shadowMapImpl) Descriptor() device.DescriptorHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descriptor
}

func (s *shadowMapImpl) Resolution() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

func (s *shadowMapImpl) State() device.ResourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *shadowMapImpl) BeginDepthWrite() {
	s.transition(device.ResourceStateDepthWrite)
}

func (s *shadowMapImpl) BeginSampling() {
	s.transition(device.ResourceStateShaderResource)
}

func (s *shadowMapImpl) transition(after device.ResourceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == after {
		return
	}
	s.backend.TransitionTexture(s.texture, s.state, after)
	s.state = after
}

func (s *shadowMapImpl) Resize(resolution uint32) error {
	if resolution == 0 {
		return ErrInvalidResolution
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if resolution == s.resolution && s.texture != 0 {
		return nil
	}

	s.destroyTarget()
	s.resolution = resolution
	if err := s.createTarget(); err != nil {
		return err
	}
	common.Logger().Info().Uint32("resolution", resolution).Msg("shadow map resized")
	return nil
}

func (s *shadowMapImpl) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyTarget()
	if s.sampler != 0 {
		s.backend.DestroySampler(s.sampler)
		s.sampler = 0
	}
}
