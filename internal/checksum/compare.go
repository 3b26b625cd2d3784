package checksum

// Verdict is the comparison of a layer's checksum with the previous layer.
type Verdict string

// Comparison verdicts.
const (
	VerdictBaseline    Verdict = "Baseline"
	VerdictMatch       Verdict = "Match"
	VerdictMismatch    Verdict = "Mismatch"
	VerdictUnavailable Verdict = "Unavailable"
)

// Compare judges current against previous. The first layer of a walk is the
// baseline; a missing checksum on either side makes the result unavailable.
func Compare(previous, current *string, first bool) Verdict {
	switch {
	case current == nil:
		return VerdictUnavailable
	case first:
		return VerdictBaseline
	case previous == nil:
		return VerdictUnavailable
	case *previous == *current:
		return VerdictMatch
	default:
		return VerdictMismatch
	}
}
