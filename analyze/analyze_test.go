package analyze

import (
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/model"
	"go-ml.dev/pkg/selene/model/builtin"
	"go-ml.dev/pkg/selene/sequences"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
	"io/ioutil"
	"strings"
	"testing"
)

/*
composition predicts fractions of A and G bases
*/
type composition struct{}

func (composition) Predict(x [][]float64) ([][]float64, error) {
	p := make([][]float64, len(x))
	for i, e := range x {
		a, g := 0., 0.
		for j := 0; j < len(e); j += sequences.Width {
			a += e[j]
			g += e[j+2]
			if e[j] == sequences.Unknown {
				a -= sequences.Unknown
				g -= sequences.Unknown
			}
		}
		n := float64(len(e) / sequences.Width)
		p[i] = []float64{a / n, g / n}
	}
	return p, nil
}

func (composition) Weights() []float64  { return nil }
func (composition) SequenceLength() int { return 10 }
func (composition) NClasses() int       { return 2 }

const genome = ">chr1\n" +
	"AAAAAAAAAA" + "CCCCCCCCCC" + "\n" +
	"GGGGGGGGGG" + "TTTTTTTTTT" + "\n"

const vcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\n" +
	"chr1\t20\trs1\tC\tA,G\t.\n" +
	"1\t21\trs2\tG\tGAA\t.\n" +
	"chr1\t2\tedge\tA\tC\t.\n" +
	"chr1\t25\tsv\tG\t<DEL>\t.\n" +
	"chr2\t5\tx\tA\tC\t.\n"

func fixture(t *testing.T) *fs.Dir {
	return fs.NewDir(t, "analyze",
		fs.WithFile("genome.fa", genome),
		fs.WithFile("features.txt", "A\nG\n"),
		fs.WithFile("variants.vcf", vcf),
		fs.WithFile("input.fa", ">s1\nAAAA\n>s2\nGGGGGGGGGGGGGG\n"))
}

func analyzer(t *testing.T, dir *fs.Dir, m model.Model) *AnalyzeSequences {
	x, err := NewAnalyzeSequences(config.Args{
		"model":              m,
		"sequence_length":    10,
		"features":           dir.Join("features.txt"),
		"reference_sequence": dir.Join("genome.fa"),
		"batch_size":         2,
		"output_dir":         dir.Join("out"),
	})
	assert.NilError(t, err)
	return x.(*AnalyzeSequences)
}

func read(t *testing.T, path string) string {
	bs, err := ioutil.ReadFile(path)
	assert.NilError(t, err)
	return string(bs)
}

func Test_ReadVCF(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	vs, err := ReadVCF(dir.Join("variants.vcf"))
	assert.NilError(t, err)
	assert.Equal(t, len(vs), 6)
	assert.DeepEqual(t, vs[1], Variant{"chr1", 20, "rs1", "C", "G"})
	assert.DeepEqual(t, vs[2], Variant{"1", 21, "rs2", "G", "GAA"})

	bad := fs.NewDir(t, "bad", fs.WithFile("bad.vcf", "chr1\tx\trs1\tC\tA\n"))
	defer bad.Remove()
	_, err = ReadVCF(bad.Join("bad.vcf"))
	assert.ErrorContains(t, err, "bad variant position")
}

func Test_VariantEffectPrediction(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	a := analyzer(t, dir, composition{})
	err := a.VariantEffectPrediction(dir.Join("variants.vcf"), config.Args{
		"save_data": config.List{Predictions, Diffs, AbsDiffs},
	})
	assert.NilError(t, err)
	header := "chrom\tpos\tname\tref\talt\tA\tG\n"
	assert.Equal(t, read(t, dir.Join("out", "variants_predictions.tsv")), header+
		"chr1\t20\trs1\tC\tA\t0.1\t0.5\n"+
		"chr1\t20\trs1\tC\tG\t0\t0.6\n"+
		"1\t21\trs2\tG\tGAA\t0.2\t0.5\n")
	assert.Equal(t, read(t, dir.Join("out", "variants_diffs.tsv")), header+
		"chr1\t20\trs1\tC\tA\t0.1\t0\n"+
		"chr1\t20\trs1\tC\tG\t0\t0.1\n"+
		"1\t21\trs2\tG\tGAA\t0.2\t-0.1\n")
	assert.Equal(t, read(t, dir.Join("out", "variants_abs_diffs.tsv")), header+
		"chr1\t20\trs1\tC\tA\t0.1\t0\n"+
		"chr1\t20\trs1\tC\tG\t0\t0.1\n"+
		"1\t21\trs2\tG\tGAA\t0.2\t0.1\n")

	err = a.VariantEffectPrediction(dir.Join("variants.vcf"), config.Args{"save_data": config.List{"scores"}})
	assert.ErrorContains(t, err, "save_data `scores`")
	err = a.VariantEffectPrediction(dir.Join("variants.vcf"), config.Args{"strand_index": 2})
	assert.ErrorContains(t, err, "unknown variant effect prediction option")
}

func Test_PredictFasta(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	a := analyzer(t, dir, composition{})
	assert.NilError(t, a.PredictFasta(dir.Join("input.fa"), config.Args{"output_dir": dir.Join("fasta")}))
	assert.Equal(t, read(t, dir.Join("fasta", "input_predictions.tsv")),
		"name\tA\tG\n"+
			"s1\t0.4\t0\n"+
			"s2\t0\t1\n")
}

func Test_AnalyzeArgs(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	args := config.Args{
		"model":              composition{},
		"features":           config.List{"A"},
		"reference_sequence": dir.Join("genome.fa"),
	}
	_, err := NewAnalyzeSequences(args)
	assert.ErrorContains(t, err, "2 classes but 1 features")
	args["features"] = config.List{"A", "G"}
	args["sequence_length"] = 12
	_, err = NewAnalyzeSequences(args)
	assert.ErrorContains(t, err, "does not match model sequence length")

	m, err := builtin.NewLogistic(10, 2, 1)
	assert.NilError(t, err)
	assert.NilError(t, model.SaveWeights(iokit.File(dir.Join("w.xz")), m))
	fresh, err := builtin.NewLogistic(10, 2, 2)
	assert.NilError(t, err)
	x, err := NewAnalyzeSequences(config.Args{
		"model":              fresh,
		"features":           config.List{"A", "G"},
		"reference_sequence": dir.Join("genome.fa"),
		"trained_model_path": dir.Join("w.xz"),
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, x.(*AnalyzeSequences).Model.Weights(), m.Weights())
	assert.Assert(t, strings.HasSuffix(x.(*AnalyzeSequences).OutputDir, "Selene"))
}
