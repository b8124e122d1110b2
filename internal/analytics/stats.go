package analytics

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDevPop is the population standard deviation.
func stdDevPop(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// splitHalves cuts a chronological series into its first and second half.
// Odd-length series put the middle element into the second half so the
// trend weighs recent data at least as much as old data.
func splitHalves(values []float64) (first, second []float64) {
	mid := len(values) / 2
	return values[:mid], values[mid:]
}
