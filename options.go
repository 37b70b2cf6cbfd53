package life

import (
	"image/color"
	"math/rand/v2"
)

// Option configures a Simulation during creation.
//
// Example:
//
//	sim, err := life.New(adapter, surface, size,
//		life.WithRandomSeed(42),
//		life.WithDensity(0.3),
//		life.WithSkipPolicy(life.SkipFrame),
//	)
type Option func(*options)

// options holds optional configuration for Simulation creation.
type options struct {
	shaderSource  string
	seed          SeedFunc
	randomSeed    uint64
	hasRandomSeed bool
	density       float64
	alive         color.Color
	dead          color.Color
	skip          SkipPolicy
	workgroupSize uint32
	label         string
}

// defaultOptions returns the default simulation options.
func defaultOptions() options {
	return options{
		shaderSource:  ShaderSource,
		density:       DefaultDensity,
		alive:         DefaultAliveColor,
		dead:          DefaultDeadColor,
		skip:          SkipRender,
		workgroupSize: DefaultWorkgroupSize,
		label:         "life",
	}
}

// initialSeed returns the seed for buffer 0: the explicit seed if one was
// given, otherwise a random seed at the configured density.
func (o *options) initialSeed() SeedFunc {
	if o.seed != nil {
		return o.seed
	}
	var src rand.Source
	if o.hasRandomSeed {
		src = rand.NewPCG(o.randomSeed, o.randomSeed^0x9e3779b97f4a7c15)
	}
	return RandomSeed(o.density, src)
}

// WithShaderSource replaces the embedded WGSL. The source must provide the
// computeMain, vertexMain and fragmentMain entry points with the bindings
// of ShaderSource. On the software backend the entry points still run
// their registered Go kernels.
func WithShaderSource(wgsl string) Option {
	return func(o *options) {
		o.shaderSource = wgsl
	}
}

// WithSeed sets the initial population. It overrides WithRandomSeed and
// WithDensity.
func WithSeed(seed SeedFunc) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithRandomSeed makes the default random population reproducible.
func WithRandomSeed(seed uint64) Option {
	return func(o *options) {
		o.randomSeed = seed
		o.hasRandomSeed = true
	}
}

// WithDensity sets the probability that a cell of the default random
// population is alive. Values are clamped to [0, 1].
func WithDensity(p float64) Option {
	return func(o *options) {
		o.density = min(max(p, 0), 1)
	}
}

// WithColors sets the colors of live and dead cells. Nil keeps the default.
func WithColors(alive, dead color.Color) Option {
	return func(o *options) {
		if alive != nil {
			o.alive = alive
		}
		if dead != nil {
			o.dead = dead
		}
	}
}

// WithSkipPolicy selects what Advance does when the surface has no image.
func WithSkipPolicy(p SkipPolicy) Option {
	return func(o *options) {
		o.skip = p
	}
}

// WithWorkgroupSize sets the edge of the square compute workgroup used to
// size dispatches. New fails with ErrWorkgroupMismatch unless the compute
// entry point runs with @workgroup_size(n, n, 1).
func WithWorkgroupSize(n uint32) Option {
	return func(o *options) {
		o.workgroupSize = n
	}
}

// WithLabel sets the prefix of every GPU resource label.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
