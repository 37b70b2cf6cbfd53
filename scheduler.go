package life

// SkipPolicy selects what Advance does when no surface image is available.
type SkipPolicy int

const (
	// SkipRender submits the compute pass alone and advances the step
	// counter. The simulation keeps its pace while the window is hidden.
	SkipRender SkipPolicy = iota

	// SkipFrame submits nothing and leaves the step counter unchanged.
	SkipFrame
)

// String returns "render" or "frame".
func (p SkipPolicy) String() string {
	if p == SkipFrame {
		return "frame"
	}
	return "render"
}

// scheduler is the step counter. Everything else about a step follows
// from its parity.
type scheduler struct {
	step uint64
}

func (s *scheduler) parity() Parity { return Parity(s.step & 1) }

// roles returns the buffer indices for the current step: compute reads
// buffer p and writes 1-p, render shows the buffer compute just wrote.
func (s *scheduler) roles() Roles {
	p := int(s.step & 1)
	return Roles{ComputeSource: p, ComputeTarget: 1 - p, RenderSource: 1 - p}
}

// current returns the buffer holding the newest generation.
func (s *scheduler) current() int { return int(s.step & 1) }

func (s *scheduler) advance() { s.step++ }

func (s *scheduler) reset() { s.step = 0 }
