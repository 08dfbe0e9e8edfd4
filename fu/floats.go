package fu

import "gonum.org/v1/gonum/floats"

func Mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Sum(a) / float64(len(a))
}

/*
Indmaxd returns index of the first maximal value
*/
func Indmaxd(a []float64) int {
	if len(a) == 0 {
		return -1
	}
	return floats.MaxIdx(a)
}
