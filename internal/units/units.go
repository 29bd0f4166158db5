package units

// Decimal mega, not binary.
const mega = 1000.0 * 1000.0

// MegaBytes converts bytes to megabytes.
func MegaBytes(bytes float32) float32 {
	return float32(float64(bytes) / mega)
}

// MegaBits converts bytes to megabits.
func MegaBits(bytes float32) float32 {
	return float32(float64(bytes) * 8 / mega)
}
