package samplers

import (
	"fmt"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultRandomSeed     = 436
	DefaultSequenceLength = 1000
	DefaultCenterBin      = 200
	DefaultMaxAttempts    = 10000
)

/*
Region is a half-open range of admissible center positions on a chromosome
*/
type Region struct {
	Chrom      string
	Start, End int
}

/*
Options are the construction parameters of OnlineSampler
*/
type Options struct {
	RandomSeed     int64
	Holdout        Holdout
	SequenceLength int
	CenterBin      int
	Mode           Mode
	SaveDatasets   []Mode
	// MaxAttempts bounds redraws of proportional holdout assignment
	MaxAttempts int
}

/*
OnlineSampler draws random windows at a time of request, it never materializes a dataset.
A sampler instance is not safe for concurrent use, use Fork to get a sampler for another worker.
*/
type OnlineSampler struct {
	Geometry
	holdout  Holdout
	mode     Mode
	modes    []Mode
	seed     int64
	rng      *rand.Rand
	src      rand.Source
	genome   SequenceStore
	features FeatureStore
	regions  map[Mode][]Region
	pools    map[Mode]distuv.Categorical
	assigner distuv.Categorical
	datasets *Datasets
	attempts int
}

/*
NewRandomPositionsSampler draws center positions uniformly from the whole genome
*/
func NewRandomPositionsSampler(genome SequenceStore, features FeatureStore, opts Options) (*OnlineSampler, error) {
	var regions []Region
	for _, c := range genome.Chromosomes() {
		regions = append(regions, Region{Chrom: c, Start: 0, End: genome.Length(c)})
	}
	return newOnlineSampler(genome, features, opts, regions)
}

/*
NewIntervalsSampler draws center positions uniformly from the given intervals
*/
func NewIntervalsSampler(genome SequenceStore, features FeatureStore, opts Options, intervals []Region) (*OnlineSampler, error) {
	return newOnlineSampler(genome, features, opts, intervals)
}

func newOnlineSampler(genome SequenceStore, features FeatureStore, opts Options, intervals []Region) (*OnlineSampler, error) {
	g, err := NewGeometry(opts.SequenceLength, opts.CenterBin)
	if err != nil {
		return nil, err
	}
	if opts.Holdout == nil {
		return nil, &ConfigError{"holdout", nil, "must be specified"}
	}
	s := &OnlineSampler{
		Geometry: g,
		holdout:  opts.Holdout,
		modes:    opts.Holdout.Modes(),
		seed:     opts.RandomSeed,
		genome:   genome,
		features: features,
		attempts: opts.MaxAttempts,
	}
	if s.attempts <= 0 {
		s.attempts = DefaultMaxAttempts
	}
	for _, m := range opts.SaveDatasets {
		if !hasMode(s.modes, m) {
			return nil, &ConfigError{"save datasets", m, fmt.Sprintf("mode must be one of %v", s.modes)}
		}
	}
	s.datasets = NewDatasets(opts.SaveDatasets)
	if s.regions, err = s.partition(intervals); err != nil {
		return nil, err
	}
	s.seedWith(uint64(opts.RandomSeed))
	mode := opts.Mode
	if mode == "" {
		mode = Train
	}
	if err = s.SetMode(mode); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *OnlineSampler) partition(intervals []Region) (map[Mode][]Region, error) {
	stored := map[string]bool{}
	for _, c := range s.genome.Chromosomes() {
		stored[c] = true
	}
	known := map[string]bool{}
	regions := map[Mode][]Region{}
	for _, r := range intervals {
		if !stored[r.Chrom] {
			return nil, zorros.Errorf("sequence store does not have chromosome %v", r.Chrom)
		}
		known[r.Chrom] = true
		// empty and short chromosomes have no valid positions
		lo, hi := s.Positions(s.genome.Length(r.Chrom))
		if r.Start > lo {
			lo = r.Start
		}
		if r.End < hi {
			hi = r.End
		}
		if lo >= hi {
			continue
		}
		q := Region{Chrom: r.Chrom, Start: lo, End: hi}
		switch h := s.holdout.(type) {
		case ByChromosome:
			m := h.Mode(r.Chrom)
			regions[m] = append(regions[m], q)
		default:
			for _, m := range s.modes {
				regions[m] = append(regions[m], q)
			}
		}
	}
	if h, ok := s.holdout.(ByChromosome); ok {
		for _, c := range append(append([]string(nil), h.Validation...), h.Test...) {
			if !known[c] {
				zlog.Warningf("holdout chromosome %v is not present in the sampled chromosomes", c)
			}
		}
	}
	return regions, nil
}

func (s *OnlineSampler) seedWith(seed uint64) {
	s.src = rand.NewSource(seed)
	s.rng = rand.New(s.src)
	s.pools = map[Mode]distuv.Categorical{}
	for m, regions := range s.regions {
		w := make([]float64, len(regions))
		for i, r := range regions {
			w[i] = float64(r.End - r.Start)
		}
		s.pools[m] = distuv.NewCategorical(w, s.src)
	}
	if h, ok := s.holdout.(ByProportion); ok {
		s.assigner = h.Assigner(s.src)
	}
}

/*
Fork returns sampler sharing stores and recorded datasets with an independent random stream
*/
func (s *OnlineSampler) Fork(worker int) Sampler {
	f := *s
	f.seedWith(uint64(s.seed) + uint64(worker) + 1)
	return &f
}

func (s *OnlineSampler) Mode() Mode {
	return s.mode
}

func (s *OnlineSampler) Modes() []Mode {
	return append([]Mode(nil), s.modes...)
}

func (s *OnlineSampler) Datasets() *Datasets {
	return s.datasets
}

func (s *OnlineSampler) SetMode(mode Mode) error {
	if !hasMode(s.modes, mode) {
		return &ConfigError{"mode", mode, fmt.Sprintf("must be one of %v", s.modes)}
	}
	if len(s.regions[mode]) == 0 {
		return &ConfigError{"mode", mode, "there are no chromosomes long enough to sample a window from this partition"}
	}
	s.mode = mode
	return nil
}

func (s *OnlineSampler) position() (chrom string, pos int, err error) {
	regions := s.regions[s.mode]
	pool := s.pools[s.mode]
	for i := 0; i < s.attempts; i++ {
		r := regions[int(pool.Rand())]
		pos = r.Start + s.rng.Intn(r.End-r.Start)
		if h, ok := s.holdout.(ByProportion); ok && h.Assign(s.assigner) != s.mode {
			continue
		}
		return r.Chrom, pos, nil
	}
	return "", 0, zorros.Errorf("failed to draw a %v position in %d attempts", s.mode, s.attempts)
}

/*
Draw samples one example from the current mode
*/
func (s *OnlineSampler) Draw() (*Example, error) {
	chrom, pos, err := s.position()
	if err != nil {
		return nil, err
	}
	strand := strands[s.rng.Intn(2)]
	start, end := s.Window(pos)
	bs, be := s.Bin(pos)
	targets, err := s.features.Targets(chrom, bs, be)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to query features at %v:%d-%d: %v", chrom, bs, be, err.Error())
	}
	seq, err := s.genome.Encoding(chrom, start, end, strand)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to get sequence at %v:%d-%d(%v): %v", chrom, start, end, strand, err.Error())
	}
	e := &Example{
		Sequence: seq,
		Targets:  targets,
		Record:   SampleRecord{Chrom: chrom, Start: start, End: end, Strand: strand, Features: targets},
	}
	s.datasets.Append(s.mode, e.Record)
	return e, nil
}

func (s *OnlineSampler) Sample(batchSize int) (*Batch, error) {
	if batchSize <= 0 {
		return nil, zorros.Errorf("batch size must be positive, got %d", batchSize)
	}
	b := &Batch{}
	for i := 0; i < batchSize; i++ {
		e, err := s.Draw()
		if err != nil {
			return nil, err
		}
		b.add(e)
	}
	return b, nil
}

/*
DataAndTargets draws nSamples examples of the mode, the last batch may be smaller.
The sampler returns to its current mode afterwards.
*/
func (s *OnlineSampler) DataAndTargets(mode Mode, batchSize, nSamples int) ([]*Batch, error) {
	if batchSize <= 0 || nSamples <= 0 {
		return nil, zorros.Errorf("batch size and samples count must be positive, got %d and %d", batchSize, nSamples)
	}
	current := s.mode
	if err := s.SetMode(mode); err != nil {
		return nil, err
	}
	defer func() { s.mode = current }()
	var batches []*Batch
	for n := 0; n < nSamples; n += batchSize {
		b, err := s.Sample(fu.Mini(batchSize, nSamples-n))
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func (s *OnlineSampler) ValidationSet(batchSize, nSamples int) ([]*Batch, error) {
	return s.DataAndTargets(Validate, batchSize, nSamples)
}

func (s *OnlineSampler) TestSet(batchSize, nSamples int) ([]*Batch, error) {
	if !hasMode(s.modes, Test) {
		return nil, &ConfigError{"mode", Test, "test holdout is not configured"}
	}
	return s.DataAndTargets(Test, batchSize, nSamples)
}

func (s *OnlineSampler) NFeatures() int {
	return len(s.features.Features())
}

func (s *OnlineSampler) FeatureName(index int) (string, error) {
	f := s.features.Features()
	if index < 0 || index >= len(f) {
		return "", zorros.Errorf("feature index %d is out of range [0,%d)", index, len(f))
	}
	return f[index], nil
}

func (s *OnlineSampler) SequenceFromEncoding(encoding []float64) (string, error) {
	return s.genome.SequenceFromEncoding(encoding)
}

/*
SaveDatasets writes recorded samples of every saved mode into <mode>_data.bed files
*/
func (s *OnlineSampler) SaveDatasets(outputDir string) error {
	return s.datasets.Export(outputDir)
}
