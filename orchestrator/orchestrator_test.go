package orchestrator

import (
	"fmt"
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/model"
	"golang.org/x/xerrors"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
	"io/ioutil"
	"os"
	"strings"
	"testing"
)

func parse(t *testing.T, doc string) *config.Tree {
	tree, err := config.Parse([]byte(doc), Constructibles())
	assert.NilError(t, err)
	return tree
}

func Test_Constructibles(t *testing.T) {
	r := Constructibles()
	for _, n := range []string{"OnlineSampler", "RandomPositionsSampler", "IntervalsSampler", "TrainModel", "AnalyzeSequences"} {
		_, ok := r.Lookup(n)
		assert.Assert(t, ok, n)
	}
	_, err := config.Parse([]byte("sampler:\n  _type_: Nope\n"), r)
	assert.Assert(t, xerrors.Is(err, config.ErrUnknownConstructible))
}

func Test_ReadOps(t *testing.T) {
	tree := parse(t, "ops: [train, analyze]\nlr: 0.1\n")
	ops, err := ReadOps(tree)
	assert.NilError(t, err)
	assert.DeepEqual(t, ops, []string{Train, Analyze})
	assert.Assert(t, !tree.Has("ops"))

	ops, err = ReadOps(parse(t, "ops: analyze\n"))
	assert.NilError(t, err)
	assert.DeepEqual(t, ops, []string{Analyze})

	_, err = ReadOps(parse(t, "lr: 0.1\n"))
	assert.ErrorContains(t, err, "`ops`")
	_, err = ReadOps(parse(t, "ops: [train, predict]\n"))
	assert.ErrorContains(t, err, "unknown operation `predict`")
	_, err = ReadOps(parse(t, "ops: [train, evaluate]\n"))
	assert.Assert(t, xerrors.Is(err, ErrEvaluateUnimplemented))
}

/*
warnings collects warnings until the returned restore function is called
*/
func warnings() (*[]string, func()) {
	var w []string
	orig := warningf
	warningf = func(format string, a ...interface{}) { w = append(w, fmt.Sprintf(format, a...)) }
	return &w, func() { warningf = orig }
}

func Test_ApplyLR(t *testing.T) {
	w, restore := warnings()
	defer restore()
	cli := 0.5
	lr, err := ApplyLR(parse(t, "lr: 0.1\n"), []string{Train}, &cli)
	assert.NilError(t, err)
	assert.Equal(t, *lr, 0.5)
	assert.Equal(t, len(*w), 1)
	assert.Assert(t, strings.Contains((*w)[0], "--lr=0.5"), (*w)[0])

	lr, err = ApplyLR(parse(t, "lr: 0.1\n"), []string{Train}, nil)
	assert.NilError(t, err)
	assert.Equal(t, *lr, 0.1)

	lr, err = ApplyLR(parse(t, "lr: 0.1\n"), []string{Analyze}, &cli)
	assert.NilError(t, err)
	assert.Assert(t, lr == nil)

	lr, err = ApplyLR(parse(t, "ops: [train]\n"), []string{Train}, &cli)
	assert.NilError(t, err)
	assert.Equal(t, *lr, 0.5)

	lr, err = ApplyLR(parse(t, "ops: [train]\n"), []string{Train}, nil)
	assert.NilError(t, err)
	assert.Assert(t, lr == nil)
	assert.Equal(t, len(*w), 1)

	_, err = ApplyLR(parse(t, "lr: fast\n"), []string{Train}, nil)
	assert.ErrorContains(t, err, "lr")
}

const document = `
ops: [%v]
random_seed: 7
lr: 1
evaluate_on_test: true
save_datasets: true
model:
  file: builtin
  class: Logistic
  sequence_length: 20
  n_classes_to_predict: 1
sampler:
  _type_: OnlineSampler
  _args_:
    genome: %[2]v/genome.fa
    query_feature_data: %[2]v/odd.bed
    distinct_features: [odd]
    sequence_length: 20
    center_bin_to_predict: 10
train_model:
  _type_: TrainModel
  _args_:
    batch_size: 16
    max_steps: 60
    report_stats_every_n_steps: 60
    n_validation_samples: 32
    n_test_samples: 32
    output_dir: %[2]v/training
analyze_sequences:
  _type_: AnalyzeSequences
  _args_:
    sequence_length: 20
    features: [odd]
    reference_sequence: %[2]v/genome.fa
    batch_size: 4
    output_dir: %[2]v/analysis
    %[3]v
variant_effect_prediction:
  vcf_files: [%[2]v/variants.vcf]
  save_data: [predictions, abs_diffs]
`

func fixture(t *testing.T) *fs.Dir {
	genome := strings.Builder{}
	bed := strings.Builder{}
	for i := 1; i <= 10; i++ {
		base := "C"
		if i%2 == 1 {
			base = "A"
			fmt.Fprintf(&bed, "%d\t0\t%d\todd\n", i, 200+i*10)
		}
		fmt.Fprintf(&genome, ">%d\n%v\n", i, strings.Repeat(base, 200+i*10))
	}
	return fs.NewDir(t, "selene",
		fs.WithFile("genome.fa", genome.String()),
		fs.WithFile("odd.bed", bed.String()),
		fs.WithFile("variants.vcf", "#CHROM\tPOS\tID\tREF\tALT\n1\t50\tv1\tA\tC\n2\t60\tv2\tC\tA\n"))
}

func exists(t *testing.T, path string) {
	_, err := os.Stat(path)
	assert.NilError(t, err)
}

func lines(t *testing.T, path string) []string {
	bs, err := ioutil.ReadFile(path)
	assert.NilError(t, err)
	return strings.Split(strings.TrimSpace(string(bs)), "\n")
}

func Test_TrainAndAnalyze(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	doc := dir.Join("train.yaml")
	assert.NilError(t, ioutil.WriteFile(doc, []byte(fmt.Sprintf(document, "train, analyze", dir.Path(), "")), 0644))

	var log []string
	lr := 1.
	err := Execute(doc, Options{LR: &lr, Verbose: func(s string) { log = append(log, s) }})
	assert.NilError(t, err)
	assert.Assert(t, len(log) > 0)

	exists(t, dir.Join("training", model.BestModelFile))
	exists(t, dir.Join("training", model.CheckpointFile))
	perf := lines(t, dir.Join("training", model.PerformanceFile))
	assert.Equal(t, perf[0], "feature\troc_auc")
	assert.Assert(t, strings.HasPrefix(perf[1], "odd\t"))
	assert.Equal(t, len(lines(t, dir.Join("training", "test_data.bed"))), 32)

	pred := lines(t, dir.Join("analysis", "variants_predictions.tsv"))
	assert.DeepEqual(t, pred[0], "chrom\tpos\tname\tref\talt\todd")
	assert.Equal(t, len(pred), 3)
	assert.Assert(t, strings.HasPrefix(pred[1], "1\t50\tv1\tA\tC\t"))
	exists(t, dir.Join("analysis", "variants_abs_diffs.tsv"))
	_, err = os.Stat(dir.Join("analysis", "variants_diffs.tsv"))
	assert.Assert(t, os.IsNotExist(err))

	// analyze only, weights come from the trained checkpoint
	doc = dir.Join("analyze.yaml")
	trained := "trained_model_path: " + dir.Join("training", model.BestModelFile)
	assert.NilError(t, ioutil.WriteFile(doc, []byte(fmt.Sprintf(document, "analyze", dir.Path(), trained)), 0644))
	assert.NilError(t, os.Rename(dir.Join("analysis"), dir.Join("first")))
	assert.NilError(t, Execute(doc, Options{}))
	assert.DeepEqual(t,
		lines(t, dir.Join("analysis", "variants_predictions.tsv")),
		lines(t, dir.Join("first", "variants_predictions.tsv")))
}

func Test_EvaluateStopsBeforeTraining(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	tree := parse(t, fmt.Sprintf(document, "train", dir.Path(), ""))
	_, err := ReadOps(tree)
	assert.NilError(t, err)
	err = Run(tree, []string{Train, Evaluate}, Options{})
	assert.Assert(t, xerrors.Is(err, ErrEvaluateUnimplemented))
	_, err = os.Stat(dir.Join("training"))
	assert.Assert(t, os.IsNotExist(err))
}

func Test_FailedOperation(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	tree := parse(t, strings.Replace(fmt.Sprintf(document, "train", dir.Path(), ""), "class: Logistic", "class: Transformer", 1))
	ops, err := ReadOps(tree)
	assert.NilError(t, err)
	err = Run(tree, ops, Options{})
	assert.ErrorContains(t, err, "operation train failed")
	assert.ErrorContains(t, err, "Transformer")
}

func Test_TrainedModelPathWins(t *testing.T) {
	dir := fixture(t)
	defer dir.Remove()
	w, restore := warnings()
	defer restore()
	trained := "trained_model_path: " + dir.Join("training", model.BestModelFile)
	tree := parse(t, fmt.Sprintf(document, "train, analyze", dir.Path(), trained))
	ops, err := ReadOps(tree)
	assert.NilError(t, err)
	assert.NilError(t, Run(tree, ops, Options{}))
	assert.Equal(t, len(*w), 1)
	assert.Assert(t, strings.Contains((*w)[0], "trained_model_path"), (*w)[0])
	exists(t, dir.Join("analysis", "variants_predictions.tsv"))
}
