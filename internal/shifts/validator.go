package shifts

// ValidateBlock checks that the candidate starts before it ends and that it doesn't overlap any of
// the existing blocks of its veterinarian and weekday. A block matching the candidate identity is
// ignored, so a block can be validated against a list that contains itself.
func ValidateBlock(candidate Block, existing []Block) error {
	if candidate.Start >= candidate.End {
		return &InvalidIntervalError{Start: candidate.Start, End: candidate.End}
	}
	for _, other := range existing {
		if other.VeterinarianID != candidate.VeterinarianID || other.Weekday != candidate.Weekday {
			continue
		}
		if candidate.sameIdentity(other) {
			continue
		}
		if candidate.Overlaps(other) {
			return &OverlapError{Start: other.Start, End: other.End}
		}
	}
	return nil
}
