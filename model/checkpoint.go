package model

import (
	"encoding/gob"
	"github.com/ulikunitz/xz"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros"
	"os"
)

type checkpoint struct {
	SequenceLength int
	NClasses       int
	Weights        []float64
}

/*
SaveWeights writes xz compressed model weights
*/
func SaveWeights(output iokit.Output, m Model) (err error) {
	wh, err := output.Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	xw, err := xz.NewWriter(wh)
	if err != nil {
		return zorros.Trace(err)
	}
	c := checkpoint{m.SequenceLength(), m.NClasses(), m.Weights()}
	if err = gob.NewEncoder(xw).Encode(c); err != nil {
		return zorros.Wrapf(err, "failed to encode model weights: %v", err.Error())
	}
	if err = xw.Close(); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}

/*
LoadWeights reads weights written by SaveWeights into the model, model shape must match
*/
func LoadWeights(path string, m Model) error {
	f, err := os.Open(path)
	if err != nil {
		return zorros.Trace(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		return zorros.Wrapf(err, "bad model weights file %v: %v", path, err.Error())
	}
	c := checkpoint{}
	if err = gob.NewDecoder(xr).Decode(&c); err != nil {
		return zorros.Wrapf(err, "failed to decode model weights %v: %v", path, err.Error())
	}
	w := m.Weights()
	if c.SequenceLength != m.SequenceLength() || c.NClasses != m.NClasses() || len(c.Weights) != len(w) {
		return zorros.Errorf("model weights %v are for %d×%d model with %d weights but model is %d×%d with %d weights",
			path, c.SequenceLength, c.NClasses, len(c.Weights), m.SequenceLength(), m.NClasses(), len(w))
	}
	copy(w, c.Weights)
	return nil
}
