package estimate

// Tier is a precision/cost strategy bucketed by the target byte size.
// Larger targets get larger samples but skip refinement, trading accuracy
// for a bounded estimation cost.
type Tier int

const (
	// TierSmall targets under 10MB: full-candidate refinement, 2% tolerance.
	TierSmall Tier = iota
	// TierMedium targets 10-100MB: 10%-subsample refinement, 5% tolerance.
	TierMedium
	// TierLarge targets 100MB-1GB: single large-sample estimate, no refinement.
	TierLarge
	// TierHuge targets over 1GB: single estimate with a +5% row compensation.
	TierHuge
)

const (
	tierSmallMax  = 10 << 20
	tierMediumMax = 100 << 20
	tierLargeMax  = 1 << 30
)

// TierFor selects the precision tier for a byte target. The upper bounds
// are inclusive: refinement runs up to and including 100MB, and the huge
// compensation applies only strictly above 1GB.
func TierFor(targetBytes int64) Tier {
	switch {
	case targetBytes < tierSmallMax:
		return TierSmall
	case targetBytes <= tierMediumMax:
		return TierMedium
	case targetBytes <= tierLargeMax:
		return TierLarge
	default:
		return TierHuge
	}
}

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	default:
		return "huge"
	}
}

// SampleRows returns the number of rows to materialize for the initial
// sample. Small targets scale the sample down with the target so tiny runs
// stay cheap.
func (t Tier) SampleRows(targetBytes int64) int64 {
	switch t {
	case TierSmall:
		n := targetBytes / 1000
		if n < 1000 {
			n = 1000
		}
		if n > 5000 {
			n = 5000
		}
		return n
	case TierMedium:
		return 5000
	case TierLarge:
		return 10000
	default:
		return 20000
	}
}

// Tolerance is the relative deviation at which refinement converges.
// Zero means the tier does not refine at all.
func (t Tier) Tolerance() float64 {
	switch t {
	case TierSmall:
		return 0.02
	case TierMedium:
		return 0.05
	default:
		return 0
	}
}

// Refines reports whether the tier runs the iterative refinement loop.
func (t Tier) Refines() bool {
	return t == TierSmall || t == TierMedium
}
