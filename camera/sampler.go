package camera

// Sampler gates the expensive classification path to every Nth frame. The
// render loop ticks it once per frame and runs classification only when Tick
// reports true.
type Sampler struct {
	interval int
	count    uint64
}

// NewSampler returns a sampler firing every interval frames. An interval
// below 1 fires every frame.
func NewSampler(interval int) *Sampler {
	if interval < 1 {
		interval = 1
	}
	return &Sampler{interval: interval}
}

// Tick counts one frame and reports whether this frame should be classified.
// The first frame always fires so a fresh session classifies immediately.
func (s *Sampler) Tick() bool {
	fire := s.count%uint64(s.interval) == 0
	s.count++
	return fire
}
