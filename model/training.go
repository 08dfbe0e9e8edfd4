package model

import (
	"bufio"
	"fmt"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/selene/samplers"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"math"
	"os"
	"path/filepath"
	"reflect"
)

const (
	DefaultScoreHistory = 3
	DefaultBatchSize    = 64
	DefaultMaxSteps     = 1000
	DefaultReportEvery  = 100
	BestModelFile       = "best_model.xz"
	CheckpointFile      = "checkpoint.xz"
	PerformanceFile     = "test_performance.txt"
)

/*
Training trains a differentiable model on batches drawn from a sampler
*/
type Training struct {
	Model        Differentiable
	Sampler      samplers.Sampler
	Criterion    Criterion
	Optimizer    Optimizer
	BatchSize    int         // examples in one training step
	MaxSteps     int         // maximum training steps
	ReportEvery  int         // steps between validations
	NValidation  int         // size of the fixed validation set
	NTest        int         // size of the test set
	OutputDir    string      // directory to store checkpoints and performance reports
	Workers      int         // background samplers, 0 means sampling in foreground
	ScoreHistory int         // possible count of forehead validations with lower score
	Verbose      interface{} // print function func(string)
	validation   *Dataset
	report       *Report
}

/*
Metrics is the state of training at one validation
*/
type Metrics struct {
	Step           int
	TrainLoss      float64
	ValidationLoss float64
	AUC            float64
}

/*
Report is a training report
*/
type Report struct {
	History []Metrics // all validations history
	TheBest int       // index of the best validation
	Score   float64   // the best score, negative validation loss
	Steps   int       // executed training steps
}

/*
NewTrainModel is the configuration constructor of Training.
Objects model, data_sampler, loss_criterion, optimizer_class and optimizer_args are bound at run time.
*/
func NewTrainModel(args config.Args) (interface{}, error) {
	t := &Training{}
	m, ok := args.Value("model").(Differentiable)
	if !ok {
		return nil, zorros.Errorf("argument `model` must be a differentiable model, got %T", args.Value("model"))
	}
	t.Model = m
	if t.Sampler, ok = args.Value("data_sampler").(samplers.Sampler); !ok {
		return nil, zorros.Errorf("argument `data_sampler` must be a sampler, got %T", args.Value("data_sampler"))
	}
	if t.Criterion, ok = args.Value("loss_criterion").(Criterion); !ok {
		return nil, zorros.Errorf("argument `loss_criterion` must be a loss criterion, got %T", args.Value("loss_criterion"))
	}
	class, ok := args.Value("optimizer_class").(OptimizerClass)
	if !ok {
		return nil, zorros.Errorf("argument `optimizer_class` must be an optimizer class, got %T", args.Value("optimizer_class"))
	}
	params, _ := args.Value("optimizer_args").(Params)
	var err error
	if t.Optimizer, err = class(params); err != nil {
		return nil, zorros.Wrapf(err, "failed to create optimizer: %v", err.Error())
	}
	if t.BatchSize, err = args.IntOr("batch_size", DefaultBatchSize); err != nil {
		return nil, err
	}
	if t.MaxSteps, err = args.IntOr("max_steps", DefaultMaxSteps); err != nil {
		return nil, err
	}
	if t.ReportEvery, err = args.IntOr("report_stats_every_n_steps", DefaultReportEvery); err != nil {
		return nil, err
	}
	if t.NValidation, err = args.IntOr("n_validation_samples", t.BatchSize*8); err != nil {
		return nil, err
	}
	if t.NTest, err = args.IntOr("n_test_samples", t.NValidation); err != nil {
		return nil, err
	}
	if t.Workers, err = args.IntOr("n_workers", 0); err != nil {
		return nil, err
	}
	if t.ScoreHistory, err = args.IntOr("score_history", DefaultScoreHistory); err != nil {
		return nil, err
	}
	out, err := args.StringOr("output_dir", "")
	if err != nil {
		return nil, err
	}
	t.OutputDir = fu.OutputDir(out)
	switch v := args.Value("verbose").(type) {
	case bool:
		if v {
			t.Verbose = func(s string) { fmt.Println(s) }
		}
	case nil:
	default:
		if reflect.TypeOf(v).Kind() != reflect.Func {
			return nil, zorros.Errorf("argument `verbose` must be a boolean or a print function, got %T", v)
		}
		t.Verbose = v
	}
	if t.BatchSize <= 0 || t.MaxSteps <= 0 || t.ReportEvery <= 0 || t.NValidation <= 0 || t.NTest <= 0 {
		return nil, zorros.Errorf("batch_size, max_steps, report_stats_every_n_steps, n_validation_samples and n_test_samples must be positive")
	}
	return t, nil
}

/*
Print passes message to the verbose function if it's specified
*/
func (t *Training) Print(s string) {
	if t.Verbose != nil {
		vf := reflect.ValueOf(t.Verbose)
		vf.Call([]reflect.Value{reflect.ValueOf(s)})
	}
}

func (t *Training) Report() *Report {
	return t.report
}

type batches interface {
	Next() (*samplers.Batch, error)
	Stop()
}

type foreground struct {
	s         samplers.Sampler
	batchSize int
}

func (f foreground) Next() (*samplers.Batch, error) {
	return f.s.Sample(f.batchSize)
}

func (foreground) Stop() {}

func (t *Training) source() batches {
	if t.Workers > 0 {
		if f, ok := t.Sampler.(samplers.Forker); ok {
			return samplers.NewPrefetch(f, t.Workers, t.BatchSize, 2)
		}
		zlog.Warningf("sampler %T can't be forked, sampling in foreground", t.Sampler)
	}
	return foreground{t.Sampler, t.BatchSize}
}

/*
TrainAndValidate trains the model and validates it every ReportEvery steps on the fixed validation set.
The best model is stored into OutputDir. Training stops early when ScoreHistory validations in a row
are not better than the one before them.
*/
func (t *Training) TrainAndValidate() (*Report, error) {
	if t.report != nil {
		zlog.Warning("model is already trained, training again")
	}
	if err := os.MkdirAll(t.OutputDir, 0755); err != nil {
		return nil, zorros.Trace(err)
	}
	if t.validation == nil {
		vs, err := t.Sampler.ValidationSet(t.BatchSize, t.NValidation)
		if err != nil {
			return nil, zorros.Wrapf(err, "failed to draw validation set: %v", err.Error())
		}
		t.validation = &Dataset{vs}
	}
	if err := t.Sampler.SetMode(samplers.Train); err != nil {
		return nil, err
	}
	src := t.source()
	defer src.Stop()
	histlen := fu.Fnzi(t.ScoreHistory, DefaultScoreHistory)
	report := &Report{}
	var scorlog, losses []float64
	best := math.Inf(-1)
	for step := 0; step < t.MaxSteps; step++ {
		b, err := src.Next()
		if err != nil {
			return nil, zorros.Wrapf(err, "failed to sample training batch: %v", err.Error())
		}
		loss, err := t.step(b)
		if err != nil {
			return nil, err
		}
		losses = append(losses, loss)
		report.Steps = step + 1
		if (step+1)%t.ReportEvery != 0 && step != t.MaxSteps-1 {
			continue
		}
		perf, err := t.validation.Evaluate(t.Model, t.Criterion)
		if err != nil {
			return nil, zorros.Wrapf(err, "failed to validate model: %v", err.Error())
		}
		score := -perf.Loss
		scorlog = append(scorlog, score)
		report.History = append(report.History, Metrics{step + 1, fu.Mean(losses), perf.Loss, perf.MeanAUC()})
		losses = losses[:0]
		if err = SaveWeights(iokit.File(filepath.Join(t.OutputDir, CheckpointFile)), t.Model); err != nil {
			return nil, err
		}
		if score > best {
			best = score
			report.TheBest = len(scorlog) - 1
			report.Score = score
			if err = SaveWeights(iokit.File(filepath.Join(t.OutputDir, BestModelFile)), t.Model); err != nil {
				return nil, err
			}
		}
		t.Print(fmt.Sprintf("[%5d] loss: %.5f/%.5f, auc: %.5f, score: %.5f",
			step+1, report.History[len(report.History)-1].TrainLoss, perf.Loss, perf.MeanAUC(), score))
		if len(scorlog) > histlen && fu.Indmaxd(scorlog[len(scorlog)-histlen:]) == 0 {
			t.Print(fmt.Sprintf("no improvement in the last %d validations, stop", histlen-1))
			break
		}
	}
	t.report = report
	return report, nil
}

func (t *Training) step(b *samplers.Batch) (float64, error) {
	pred, err := t.Model.Predict(b.Sequences)
	if err != nil {
		return 0, err
	}
	loss, dPred := t.Criterion.Loss(pred, b.Targets)
	grads, err := t.Model.Backward(b.Sequences, dPred)
	if err != nil {
		return 0, err
	}
	t.Optimizer.Step(t.Model.Weights(), grads)
	return loss, nil
}

/*
Evaluate draws the test set and writes per-feature ROC AUC into OutputDir/test_performance.txt
*/
func (t *Training) Evaluate() (*Performance, error) {
	ts, err := t.Sampler.TestSet(t.BatchSize, t.NTest)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to draw test set: %v", err.Error())
	}
	perf, err := (&Dataset{ts}).Evaluate(t.Model, t.Criterion)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(t.OutputDir, 0755); err != nil {
		return nil, zorros.Trace(err)
	}
	if err = t.writePerformance(filepath.Join(t.OutputDir, PerformanceFile), perf); err != nil {
		return nil, err
	}
	t.Print(fmt.Sprintf("test loss: %.5f, auc: %.5f", perf.Loss, perf.MeanAUC()))
	return perf, nil
}

func (t *Training) writePerformance(path string, perf *Performance) (err error) {
	wh, err := iokit.File(path).Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	w := bufio.NewWriter(wh)
	fmt.Fprintf(w, "feature\troc_auc\n")
	for i, a := range perf.AUC {
		name, err := t.Sampler.FeatureName(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\t%.6g\n", name, a)
	}
	if err = w.Flush(); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}

/*
WriteDatasetsToFile exports samples recorded by the sampler into OutputDir
*/
func (t *Training) WriteDatasetsToFile() error {
	return t.Sampler.SaveDatasets(t.OutputDir)
}
