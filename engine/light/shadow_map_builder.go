package light

// ShadowMapBuilderOption is a function that configures a ShadowMap during construction.
type ShadowMapBuilderOption func(*shadowMapImpl)

// WithResolution is an option builder that sets the width and height of the shadow depth texture.
// A resolution of zero makes NewShadowMap fail with ErrInvalidResolution.
//
// Parameters:
//   - resolution: the resolution in texels
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the resolution option to a shadowMapImpl
func WithResolution(resolution uint32) ShadowMapBuilderOption {
	return func(s *shadowMapImpl) {
		s.resolution = resolution
	}
}
