package slot

// AvailabilityProbability is the chance that a slot offset days from
// today starting at hour is generated as available. Near days are denser.
func AvailabilityProbability(offset, hour int) float64 {
	switch {
	case offset <= 0:
		if hour < 12 {
			return 0.8
		}
		return 0.6
	case offset == 1:
		if hour >= 12 {
			return 0.9
		}
		return 0.7
	case offset <= 3:
		return 0.8
	case offset <= 7:
		return 0.7
	case offset <= 14:
		return 0.6
	default:
		return 0.4
	}
}
