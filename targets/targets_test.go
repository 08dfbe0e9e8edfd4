package targets

import (
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
	"testing"
)

const bed = "# comment\n" +
	"chr1\t100\t200\tCTCF\n" +
	"chr1\t150\t260\tDNase\n" +
	"chr1\t190\t210\tDNase\n" +
	"chr1\t500\t600\tH3K4me3\n" +
	"chr2\t0\t50\tCTCF\n" +
	"chr2\t0\t50\tUnlisted\n"

func index(t *testing.T, dir *fs.Dir, thresholds []float64, db string) *GenomicFeatures {
	features, err := LoadFeatures(dir.Join("features.txt"))
	assert.NilError(t, err)
	if thresholds == nil {
		thresholds, err = Thresholds(features, 0.5, nil)
		assert.NilError(t, err)
	}
	gf, err := NewGenomicFeatures(dir.Join("data.bed"), features, thresholds, db)
	assert.NilError(t, err)
	return gf
}

func fixture(t *testing.T) *fs.Dir {
	return fs.NewDir(t, "targets",
		fs.WithFile("features.txt", "CTCF\nDNase\n\nH3K4me3\n"),
		fs.WithFile("data.bed", bed))
}

func Test_Targets(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	gf := index(t, dir, nil, "")
	defer gf.Close()
	assert.DeepEqual(t, gf.Features(), []string{"CTCF", "DNase", "H3K4me3"})

	// CTCF covers [100,200) fully, DNase covers [150,200) half
	v, err := gf.Targets("chr1", 100, 200)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{1, 1, 0})

	// CTCF covers 10 of 100, DNase covers 70 of 100
	v, err = gf.Targets("chr1", 190, 290)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{0, 1, 0})

	v, err = gf.Targets("chr2", 0, 100)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{1, 0, 0})

	v, err = gf.Targets("chrX", 0, 100)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{0, 0, 0})

	_, err = gf.Targets("chr1", 10, 10)
	assert.ErrorContains(t, err, "malformed")
}

func Test_OverlappingIntervalsCountOnce(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	gf := index(t, dir, []float64{0.5, 0.9, 0.5}, "")
	defer gf.Close()
	// DNase intervals overlap on [190,210), union covers [150,260)
	v, err := gf.Targets("chr1", 160, 260)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{0, 1, 0})
	v, err = gf.Targets("chr1", 100, 200)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{1, 0, 0})
}

func Test_PersistentIndex(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	gf := index(t, dir, nil, dir.Join("index.db"))
	assert.NilError(t, gf.Close())
	gf = index(t, dir, nil, dir.Join("index.db"))
	defer gf.Close()
	v, err := gf.Targets("chr1", 500, 600)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{0, 0, 1})
}

func Test_IndexRebuiltForOtherFeatures(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	db := dir.Join("index.db")
	gf := index(t, dir, nil, db)
	assert.NilError(t, gf.Close())

	gf, err := NewGenomicFeatures(dir.Join("data.bed"), []string{"H3K4me3", "CTCF"}, []float64{.5, .5}, db)
	assert.NilError(t, err)
	v, err := gf.Targets("chr1", 500, 600)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{1, 0})
	v, err = gf.Targets("chr1", 100, 200)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{0, 1})
	assert.NilError(t, gf.Close())

	gf, err = NewGenomicFeatures(dir.Join("data.bed"), []string{"DNase"}, []float64{.5}, db)
	assert.NilError(t, err)
	defer gf.Close()
	v, err = gf.Targets("chr1", 150, 250)
	assert.NilError(t, err)
	assert.DeepEqual(t, v, []float64{1})
}

func Test_Thresholds(t *testing.T) {
	th, err := Thresholds([]string{"a", "b"}, 0.5, map[string]float64{"b": 0.25})
	assert.NilError(t, err)
	assert.DeepEqual(t, th, []float64{0.5, 0.25})
	_, err = Thresholds([]string{"a"}, 0.5, map[string]float64{"c": 0.25})
	assert.ErrorContains(t, err, "unknown feature c")
	_, err = Thresholds([]string{"a"}, 0, nil)
	assert.ErrorContains(t, err, "must be in (0,1]")
}

func Test_MalformedBed(t *testing.T) {
	dir := fs.NewDir(t, "targets",
		fs.WithFile("features.txt", "CTCF\n"),
		fs.WithFile("data.bed", "chr1\t200\t100\tCTCF\n"))
	defer dir.Remove()
	_, err := NewGenomicFeatures(dir.Join("data.bed"), []string{"CTCF"}, []float64{0.5}, "")
	assert.ErrorContains(t, err, "malformed interval")
	_, err = LoadFeatures(dir.Join("nothing.txt"))
	assert.Assert(t, err != nil)
}
