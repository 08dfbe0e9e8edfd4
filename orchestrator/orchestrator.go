/*
Package orchestrator wires configured components together and runs train, evaluate and analyze operations
*/
package orchestrator

import (
	"go-ml.dev/pkg/selene/analyze"
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/model"
	_ "go-ml.dev/pkg/selene/model/builtin"
	"go-ml.dev/pkg/selene/samplers"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/xerrors"
)

const (
	Train    = "train"
	Evaluate = "evaluate"
	Analyze  = "analyze"
)

const DefaultRandomSeed = 1337

var warningf = func(format string, a ...interface{}) { zlog.Warningf(format, a...) }

/*
ErrEvaluateUnimplemented is returned by the evaluate operation, standalone evaluation is not implemented,
use evaluate_on_test with the train operation
*/
var ErrEvaluateUnimplemented = xerrors.New("evaluate operation is not implemented")

/*
Constructibles returns registry of components available for `_type_` in configuration
*/
func Constructibles() *config.Registry {
	r := config.NewRegistry()
	r.Register("OnlineSampler", samplers.RandomPositionsSampler)
	r.Register("RandomPositionsSampler", samplers.RandomPositionsSampler)
	r.Register("IntervalsSampler", samplers.IntervalsSampler)
	r.Register("TrainModel", model.NewTrainModel)
	r.Register("AnalyzeSequences", analyze.NewAnalyzeSequences)
	return r
}

/*
Options are run parameters coming from outside of configuration document
*/
type Options struct {
	LR      *float64     // learning rate overriding document lr for training
	Seed    *int64       // random seed overriding document random_seed
	Verbose func(string) // training progress printer
}

/*
Trainer is a component built from train_model
*/
type Trainer interface {
	TrainAndValidate() (*model.Report, error)
	Evaluate() (*model.Performance, error)
	WriteDatasetsToFile() error
}

/*
Load reads configuration document with all known constructibles
*/
func Load(path string) (*config.Tree, error) {
	return config.Load(path, Constructibles())
}

/*
ReadOps pops the operations list from configuration
*/
func ReadOps(tree *config.Tree) ([]string, error) {
	v, ok := tree.Pop("ops")
	if !ok {
		return nil, zorros.Errorf("configuration does not have required key `ops`")
	}
	ops, err := config.Args{"ops": v}.Strings("ops")
	if err != nil {
		return nil, err
	}
	if err = check(ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func check(ops []string) error {
	for _, op := range ops {
		switch op {
		case Train, Analyze:
		case Evaluate:
			return ErrEvaluateUnimplemented
		default:
			return zorros.Errorf("unknown operation `%v`, must be one of %v, %v, %v", op, Train, Evaluate, Analyze)
		}
	}
	return nil
}

func has(ops []string, op string) bool {
	for _, x := range ops {
		if x == op {
			return true
		}
	}
	return false
}

/*
ApplyLR returns the learning rate for training. The command line value wins over the document one,
lr does not matter if training is not requested.
*/
func ApplyLR(tree *config.Tree, ops []string, cli *float64) (*float64, error) {
	if !has(ops, Train) {
		return nil, nil
	}
	if cli != nil {
		if tree.Has("lr") {
			warningf("learning rate is specified both in configuration (lr=%v) and on the command line (--lr=%v), using the command line value for training", tree.Get("lr"), *cli)
		}
		lr := *cli
		return &lr, nil
	}
	if !tree.Has("lr") || tree.Get("lr") == nil {
		return nil, nil
	}
	lr, err := tree.Args().Float("lr")
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

type run struct {
	tree    *config.Tree
	opts    Options
	lr      *float64
	seed    int64
	spec    model.ModelSpec
	trained model.Model
}

/*
Run executes operations in order, the first failed operation stops the run.
Operations are checked before any of them runs.
*/
func Run(tree *config.Tree, ops []string, opts Options) error {
	r := &run{tree: tree, opts: opts, seed: DefaultRandomSeed}
	err := check(ops)
	if err != nil {
		return err
	}
	if r.lr, err = ApplyLR(tree, ops, opts.LR); err != nil {
		return err
	}
	seed, err := tree.Args().IntOr("random_seed", DefaultRandomSeed)
	if err != nil {
		return err
	}
	r.seed = int64(seed)
	if opts.Seed != nil {
		r.seed = *opts.Seed
	}
	if has(ops, Train) || has(ops, Analyze) {
		mt, ok := tree.Tree("model")
		if !ok {
			return zorros.Errorf("configuration does not have required mapping `model`")
		}
		if r.spec, err = model.ParseModelSpec(mt); err != nil {
			return zorros.Wrapf(err, "bad model configuration: %v", err.Error())
		}
	}
	for _, op := range ops {
		switch op {
		case Train:
			err = r.train()
		case Analyze:
			err = r.analyze()
		}
		if err != nil {
			return xerrors.Errorf("operation %v failed: %w", op, err)
		}
	}
	return nil
}

/*
Execute loads configuration document and runs its operations
*/
func Execute(path string, opts Options) error {
	tree, err := Load(path)
	if err != nil {
		return err
	}
	ops, err := ReadOps(tree)
	if err != nil {
		return err
	}
	return Run(tree, ops, opts)
}

func (r *run) train() error {
	loaded, err := model.Load(r.spec, true, r.lr, r.seed)
	if err != nil {
		return err
	}
	ss, err := r.tree.Spec("sampler")
	if err != nil {
		return err
	}
	sampler, err := ss.Build()
	if err != nil {
		return err
	}
	ts, err := r.tree.Spec("train_model")
	if err != nil {
		return err
	}
	bind := map[string]interface{}{
		"model":           loaded.Model,
		"data_sampler":    sampler,
		"loss_criterion":  loaded.Criterion,
		"optimizer_class": loaded.OptimizerClass,
		"optimizer_args":  loaded.OptimizerArgs,
	}
	if r.opts.Verbose != nil {
		bind["verbose"] = r.opts.Verbose
	}
	if err = ts.Bind(bind); err != nil {
		return err
	}
	x, err := ts.Build()
	if err != nil {
		return err
	}
	trainer, ok := x.(Trainer)
	if !ok {
		return zorros.Errorf("train_model `%v` is not a trainer", ts.Name)
	}
	if _, err = trainer.TrainAndValidate(); err != nil {
		return err
	}
	r.trained = loaded.Model
	a := r.tree.Args()
	if ok, err = a.BoolOr("evaluate_on_test", false); err != nil {
		return err
	} else if ok {
		if _, err = trainer.Evaluate(); err != nil {
			return err
		}
	}
	if ok, err = a.BoolOr("save_datasets", false); err != nil {
		return err
	} else if ok {
		if err = trainer.WriteDatasetsToFile(); err != nil {
			return err
		}
	}
	return nil
}

/*
Analyzer is a component built from analyze_sequences
*/
type Analyzer interface {
	VariantEffectPrediction(vcfPath string, opts config.Args) error
	PredictFasta(fastaPath string, opts config.Args) error
}

func (r *run) analyze() error {
	m := r.trained
	if m == nil {
		loaded, err := model.Load(r.spec, false, nil, r.seed)
		if err != nil {
			return err
		}
		m = loaded.Model
	}
	as, err := r.tree.Spec("analyze_sequences")
	if err != nil {
		return err
	}
	// trained_model_path wins over weights trained in this run
	if r.trained != nil && as.Args().Has("trained_model_path") {
		warningf("weights from trained_model_path %v replace the weights trained in this run", as.Args().Get("trained_model_path"))
	}
	if err = as.Bind(map[string]interface{}{"model": m}); err != nil {
		return err
	}
	x, err := as.Build()
	if err != nil {
		return err
	}
	analyzer, ok := x.(Analyzer)
	if !ok {
		return zorros.Errorf("analyze_sequences `%v` is not an analyzer", as.Name)
	}
	if vt, ok := r.tree.Tree("variant_effect_prediction"); ok {
		opts := vt.Args()
		files, err := opts.Strings("vcf_files")
		if err != nil {
			return zorros.Wrapf(err, "bad variant_effect_prediction: %v", err.Error())
		}
		for _, f := range files {
			if err = analyzer.VariantEffectPrediction(f, opts.Without("vcf_files")); err != nil {
				return zorros.Wrapf(err, "failed to predict variant effects of %v: %v", f, err.Error())
			}
		}
	}
	if pt, ok := r.tree.Tree("prediction"); ok {
		opts := pt.Args()
		input, err := opts.String("input_path")
		if err != nil {
			return zorros.Wrapf(err, "bad prediction: %v", err.Error())
		}
		if err = analyzer.PredictFasta(input, opts.Without("input_path")); err != nil {
			return err
		}
	}
	return nil
}
