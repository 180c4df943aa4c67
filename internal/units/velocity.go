package units

// Conversion factors from km/h, the unit the speed estimator produces and
// the database stores.
const (
	kmhToMps = 1.0 / 3.6
	kmhToMph = 0.621371192237334
)

// ConvertSpeed converts a speed from km/h to the target units.
// Unknown units return the value unchanged.
func ConvertSpeed(speedKmh float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKmh * kmhToMps
	case MPH:
		return speedKmh * kmhToMph
	case KMPH, KPH:
		return speedKmh
	default:
		return speedKmh
	}
}
