package detection

// Config controls candidate filtering. All knobs are passed at construction;
// there are no package-level tunables.
type Config struct {
	// MinAreaPct and MaxAreaPct bound a candidate's bounding-box area as a
	// fraction of frame area. Boxes outside the band are rejected: below it
	// they are noise, above it they are frame-filling false positives.
	MinAreaPct float64
	MaxAreaPct float64
	// MaxResults caps how many candidates a frame may yield, highest
	// confidence first.
	MaxResults int
	// MinConfidence drops candidates below this score before area filtering.
	MinConfidence float64
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinAreaPct:    0.01,
		MaxAreaPct:    0.80,
		MaxResults:    3,
		MinConfidence: 0.35,
	}
}
