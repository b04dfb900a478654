package fleece

// Options configures an Encoder. Fields are copied once, when the
// Encoder is constructed, and kept across Reset; mutating an Options
// value after that has no effect on an already-configured Encoder (spec.md §6.2: settable only in the
// Idle state).
type Options struct {
	// UniqueStrings enables string interning: strings of length
	// [2, 15] are deduplicated against previously-written strings.
	UniqueStrings bool

	// SortKeys sorts dictionary keys lexicographically by their byte
	// content before each dict commits. Required for canonical output.
	SortKeys bool
}

// DefaultOptions returns the spec's defaults: both UniqueStrings and
// SortKeys on.
func DefaultOptions() Options {
	return Options{
		UniqueStrings: true,
		SortKeys:      true,
	}
}
