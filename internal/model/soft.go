package model

import "math"

// SoftMin is a smooth approximation of min(a, b). It is continuous,
// differentiable and monotone in both operands and tends to min(a, b) as
// smoothing goes to zero.
func SoftMin(a, b, smoothing float64) float64 {
	d := a - b
	return (a + b - math.Sqrt(d*d+smoothing*smoothing)) / 2
}

// SoftMax is the smooth counterpart of max(a, b).
func SoftMax(a, b, smoothing float64) float64 {
	d := a - b
	return (a + b + math.Sqrt(d*d+smoothing*smoothing)) / 2
}

// SoftSwitch goes smoothly from 0 (x << 0) to 1 (x >> 0). scale is the
// width over which the switch happens.
func SoftSwitch(x, scale float64) float64 {
	a := 25 / scale
	return math.Atan(a*x)/math.Pi + 0.5
}

// SoftPositive approximates max(x, 0) and stays strictly positive.
func SoftPositive(x, scale float64) float64 {
	a := 25 / scale
	return SoftSwitch(x, scale)*x + 1/(a*math.Pi)
}
