package buoy

const knotsPerMeterSecond = 1.94384

// Knots converts m/s to knots.
func Knots(values []float64) []float64 {
	return Scale(values, knotsPerMeterSecond)
}

// Fahrenheit converts degrees Celsius to Fahrenheit.
func Fahrenheit(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, c := range values {
		out[i] = c*9/5 + 32
	}
	return out
}
