package types

// Segment is a scored time interval within a source video, produced by
// the analyzer as a highlight candidate. Offsets are seconds from the
// start of the source; End is exclusive and must exceed Start.
type Segment struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Overlaps reports whether two segments share any interior time span.
// Touching endpoints do not count as overlap.
func (s Segment) Overlaps(o Segment) bool {
	return s.Start < o.End && o.Start < s.End
}
