package samplers

import "fmt"

/*
Geometry is the layout of a sampled window around its center position.
The window [pos-SurroundingRadius-StartRadius, pos+SurroundingRadius+EndRadius)
has SequenceLength bases, the center bin [pos-StartRadius, pos+EndRadius) has CenterBin bases.
*/
type Geometry struct {
	SequenceLength    int
	CenterBin         int
	SurroundingRadius int
	BinRadius         int
	StartRadius       int
	EndRadius         int
}

func NewGeometry(sequenceLength, centerBin int) (Geometry, error) {
	pair := fmt.Sprintf("%d/%d", sequenceLength, centerBin)
	if sequenceLength <= 0 || centerBin <= 0 {
		return Geometry{}, &ConfigError{"sequence length/center bin", pair, "both must be positive"}
	}
	if (sequenceLength+centerBin)%2 != 0 {
		return Geometry{}, &ConfigError{"sequence length/center bin", pair, "both must be odd or both must be even"}
	}
	if sequenceLength < centerBin {
		return Geometry{}, &ConfigError{"sequence length/center bin", pair, "sequence length is less than the center bin length"}
	}
	g := Geometry{
		SequenceLength:    sequenceLength,
		CenterBin:         centerBin,
		SurroundingRadius: (sequenceLength - centerBin) / 2,
		BinRadius:         centerBin / 2,
	}
	g.StartRadius = g.BinRadius
	g.EndRadius = g.BinRadius
	if centerBin%2 != 0 {
		g.EndRadius++
	}
	return g, nil
}

func (g Geometry) Window(pos int) (start, end int) {
	return pos - g.SurroundingRadius - g.StartRadius, pos + g.SurroundingRadius + g.EndRadius
}

func (g Geometry) Bin(pos int) (start, end int) {
	return pos - g.StartRadius, pos + g.EndRadius
}

/*
Positions returns the half-open range of center positions whose windows fit into [0,length)
*/
func (g Geometry) Positions(length int) (lo, hi int) {
	return g.SurroundingRadius + g.StartRadius, length - g.SurroundingRadius - g.EndRadius + 1
}
