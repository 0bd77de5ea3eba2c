package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-forward/engine/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// The first enabled directional light in the world drives the shadow map.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position
	// and attenuates with distance up to its range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis.
	LightTypeSpot
)

// String returns the light type name.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// Light is an ECS component describing a light source. Attach it to an entity with
// ecs.Add(world, e, light.NewLight(...)).
//
// Type-specific properties (cone angles for spot lights, position for point and spot
// lights) are carried for every light type and ignored where they do not apply.
type Light struct {
	lightType    LightType
	position     mgl32.Vec3
	direction    mgl32.Vec3
	color        mgl32.Vec3
	intensity    float32
	lightRange   float32
	innerCone    float32 // stored as cos(angle in radians)
	outerCone    float32 // stored as cos(angle in radians)
	enabled      bool
	castsShadows bool
}

// NewLight creates a new Light of the specified type with defaults and any provided
// options applied.
//
// Defaults: position (0, 5, 0), direction (0, -1, 0), white color, intensity 1, range 10,
// enabled, casting shadows.
//
// Parameters:
//   - lightType: the kind of light to create (directional, point, or spot)
//   - options: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the configured light component
func NewLight(lightType LightType, options ...LightBuilderOption) Light {
	l := Light{
		lightType:    lightType,
		position:     mgl32.Vec3{0, 5, 0},
		direction:    mgl32.Vec3{0, -1, 0},
		color:        mgl32.Vec3{1, 1, 1},
		intensity:    1.0,
		lightRange:   10.0,
		innerCone:    0.9063, // cos(25°)
		outerCone:    0.8192, // cos(35°)
		enabled:      true,
		castsShadows: true,
	}
	for _, option := range options {
		option(&l)
	}
	return l
}

func (l *Light) Type() LightType       { return l.lightType }
func (l *Light) Position() mgl32.Vec3  { return l.position }
func (l *Light) Direction() mgl32.Vec3 { return l.direction }
func (l *Light) Color() mgl32.Vec3     { return l.color }
func (l *Light) Intensity() float32    { return l.intensity }
func (l *Light) Range() float32        { return l.lightRange }
func (l *Light) InnerCone() float32    { return l.innerCone }
func (l *Light) OuterCone() float32    { return l.outerCone }
func (l *Light) Enabled() bool         { return l.enabled }
func (l *Light) CastsShadows() bool    { return l.castsShadows }

func (l *Light) SetPosition(p mgl32.Vec3) {
	l.position = p
}

// SetDirection sets the light direction. Zero-length directions are ignored.
func (l *Light) SetDirection(d mgl32.Vec3) {
	if n, ok := normalize(d); ok {
		l.direction = n
	}
}

func (l *Light) SetColor(c mgl32.Vec3) {
	l.color = c
}

func (l *Light) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *Light) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

// SetSpotCone sets the inner and outer cone half-angles for spot lights.
// Angles are specified in degrees and stored internally as cosines.
//
// Parameters:
//   - innerDeg: inner cone half-angle in degrees
//   - outerDeg: outer cone half-angle in degrees
func (l *Light) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *Light) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *Light) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

// FindShadowCaster returns the first enabled, shadow-casting directional light in entity
// creation order.
//
// Parameters:
//   - world: the world to search
//
// Returns:
//   - ecs.Entity: the light's entity, or ecs.NoEntity
//   - *Light: the light component, or nil
//   - bool: true if a light was found
func FindShadowCaster(world *ecs.World) (ecs.Entity, *Light, bool) {
	found := ecs.NoEntity
	var caster *Light
	ecs.Each(world, func(e ecs.Entity, l *Light) {
		if caster != nil || l.lightType != LightTypeDirectional || !l.enabled || !l.castsShadows {
			return
		}
		found, caster = e, l
	})
	return found, caster, caster != nil
}

func normalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	length := v.Len()
	if length == 0 {
		return mgl32.Vec3{}, false
	}
	return v.Mul(1 / length), true
}

// cosDeg converts an angle in degrees to the cosine of that angle in radians.
func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}
