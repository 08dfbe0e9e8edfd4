package fu

import (
	"gotest.tools/v3/assert"
	"testing"
)

func Test_Helpers(t *testing.T) {
	assert.Equal(t, Fnzi(0, 0, 3, 4), 3)
	assert.Equal(t, Fnzi(), 0)
	assert.Equal(t, Mini(5, 2, 7), 2)
	assert.Equal(t, Maxi(5, 2, 7), 7)
	assert.Equal(t, Indmaxd([]float64{1, 3, 3, 2}), 1)
	assert.Equal(t, Indmaxd(nil), -1)
	assert.Equal(t, Mean([]float64{1, 2, 3}), 2.0)
	assert.Equal(t, Mean(nil), 0.0)
	assert.Equal(t, OutputDir("out"), "out")
}
