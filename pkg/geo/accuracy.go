package geo

// AccuracyClass buckets the reported accuracy radius.
type AccuracyClass int

const (
	AccuracyHigh        AccuracyClass = iota // under 10 m
	AccuracyGood                             // under 50 m
	AccuracyApproximate                      // 50 m or more
)

// Thresholds in meters.
const (
	HighAccuracyMeters = 10.0
	GoodAccuracyMeters = 50.0
)

// Classify maps an accuracy radius in meters to a class.
func Classify(meters float64) AccuracyClass {
	switch {
	case meters < HighAccuracyMeters:
		return AccuracyHigh
	case meters < GoodAccuracyMeters:
		return AccuracyGood
	default:
		return AccuracyApproximate
	}
}

func (c AccuracyClass) String() string {
	switch c {
	case AccuracyHigh:
		return "High"
	case AccuracyGood:
		return "Good"
	default:
		return "Approximate"
	}
}

// UpdateAnnouncement is the sentence spoken after a tracked fix.
func (c AccuracyClass) UpdateAnnouncement() string {
	switch c {
	case AccuracyHigh:
		return "Location updated with high precision."
	case AccuracyGood:
		return "Location updated with good precision."
	default:
		return "Location updated with approximate precision."
	}
}

// MarshalText encodes the class by name.
func (c AccuracyClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
