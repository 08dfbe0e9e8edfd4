package samplers

import (
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/sequences"
	"go-ml.dev/pkg/selene/targets"
	"go-ml.dev/pkg/zorros"
)

var (
	defaultValidationHoldout = config.List{"6", "7"}
	defaultTestHoldout       = config.List{"8", "9"}
	defaultSaveDatasets      = []string{string(Test)}
)

/*
RandomPositionsSampler is the configuration constructor of the genome wide sampler
*/
func RandomPositionsSampler(args config.Args) (interface{}, error) {
	genome, features, opts, err := fromArgs(args)
	if err != nil {
		return nil, err
	}
	return NewRandomPositionsSampler(genome, features, opts)
}

/*
IntervalsSampler is the configuration constructor of the sampler drawing positions from intervals_path
*/
func IntervalsSampler(args config.Args) (interface{}, error) {
	path, err := args.String("intervals_path")
	if err != nil {
		return nil, err
	}
	intervals, err := LoadIntervals(path)
	if err != nil {
		return nil, err
	}
	genome, features, opts, err := fromArgs(args.Without("intervals_path"))
	if err != nil {
		return nil, err
	}
	return NewIntervalsSampler(genome, features, opts, intervals)
}

func fromArgs(args config.Args) (genome SequenceStore, features FeatureStore, opts Options, err error) {
	if genome, err = genomeArg(args); err != nil {
		return
	}
	if features, err = featuresArg(args); err != nil {
		return
	}
	seed, err := args.IntOr("random_seed", DefaultRandomSeed)
	if err != nil {
		return
	}
	opts.RandomSeed = int64(seed)
	validation := args.Value("validation_holdout")
	if _, ok := args["validation_holdout"]; !ok {
		validation = defaultValidationHoldout
	}
	test := args.Value("test_holdout")
	if _, ok := args["test_holdout"]; !ok {
		test = defaultTestHoldout
	}
	if opts.Holdout, err = ParseHoldout(validation, test); err != nil {
		return
	}
	if opts.SequenceLength, err = args.IntOr("sequence_length", DefaultSequenceLength); err != nil {
		return
	}
	if opts.CenterBin, err = args.IntOr("center_bin_to_predict", DefaultCenterBin); err != nil {
		return
	}
	if opts.MaxAttempts, err = args.IntOr("max_draw_attempts", DefaultMaxAttempts); err != nil {
		return
	}
	mode, err := args.StringOr("mode", string(Train))
	if err != nil {
		return
	}
	if opts.Mode, err = ParseMode(mode); err != nil {
		return
	}
	save := defaultSaveDatasets
	if !hasMode(opts.Holdout.Modes(), Test) {
		save = nil
	}
	if _, ok := args["save_datasets"]; ok {
		if save, err = args.StringsOr("save_datasets", nil); err != nil {
			return
		}
	}
	for _, s := range save {
		m, e := ParseMode(s)
		if e != nil {
			err = e
			return
		}
		opts.SaveDatasets = append(opts.SaveDatasets, m)
	}
	return
}

func genomeArg(args config.Args) (SequenceStore, error) {
	if s, ok := args.Value("genome").(SequenceStore); ok {
		return s, nil
	}
	path, err := args.String("genome")
	if err != nil {
		return nil, err
	}
	return sequences.LoadGenome(path)
}

func featuresArg(args config.Args) (FeatureStore, error) {
	if s, ok := args.Value("query_feature_data").(FeatureStore); ok {
		return s, nil
	}
	bed, err := args.String("query_feature_data")
	if err != nil {
		return nil, err
	}
	var names []string
	if l, ok := args.Value("distinct_features").(string); ok {
		if names, err = targets.LoadFeatures(l); err != nil {
			return nil, err
		}
	} else if names, err = args.Strings("distinct_features"); err != nil {
		return nil, err
	}
	thresholds, err := thresholdsArg(args, names)
	if err != nil {
		return nil, err
	}
	db, err := args.StringOr("feature_index_db", "")
	if err != nil {
		return nil, err
	}
	return targets.NewGenomicFeatures(bed, names, thresholds, db)
}

func thresholdsArg(args config.Args, names []string) ([]float64, error) {
	t, ok := args.Value("feature_thresholds").(*config.Tree)
	if !ok {
		dflt, err := args.FloatOr("feature_thresholds", 0.5)
		if err != nil {
			return nil, err
		}
		return targets.Thresholds(names, dflt, nil)
	}
	ta := t.Args()
	dflt, err := ta.FloatOr("default", 0.5)
	if err != nil {
		return nil, zorros.Wrapf(err, "bad feature_thresholds: %v", err.Error())
	}
	overrides := map[string]float64{}
	for k := range ta.Without("default") {
		if overrides[k], err = ta.Float(k); err != nil {
			return nil, zorros.Wrapf(err, "bad feature_thresholds: %v", err.Error())
		}
	}
	return targets.Thresholds(names, dflt, overrides)
}
