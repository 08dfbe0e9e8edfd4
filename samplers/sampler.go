/*
Package samplers draws training, validation and test examples from a reference genome
and a genomic feature track
*/
package samplers

/*
SequenceStore is a read-only reference sequence source, it must be safe for concurrent reads
*/
type SequenceStore interface {
	Chromosomes() []string
	Length(chrom string) int
	// Encoding of [start,end) reverse complemented for the '-' strand
	Encoding(chrom string, start, end int, strand string) ([]float64, error)
	SequenceFromEncoding(encoding []float64) (string, error)
}

/*
FeatureStore answers which features overlap a genomic interval, it must be safe for concurrent reads
*/
type FeatureStore interface {
	Features() []string
	Targets(chrom string, start, end int) ([]float64, error)
}

/*
Example is one drawn window and its targets
*/
type Example struct {
	Sequence []float64
	Targets  []float64
	Record   SampleRecord
}

/*
Batch is a set of examples laid out by columns
*/
type Batch struct {
	Sequences [][]float64
	Targets   [][]float64
	Records   []SampleRecord
}

func (b *Batch) Len() int {
	return len(b.Sequences)
}

func (b *Batch) add(e *Example) {
	b.Sequences = append(b.Sequences, e.Sequence)
	b.Targets = append(b.Targets, e.Targets)
	b.Records = append(b.Records, e.Record)
}

/*
Sampler is the common contract of sampling strategies
*/
type Sampler interface {
	Mode() Mode
	SetMode(Mode) error
	Modes() []Mode
	// Sample draws batchSize examples from the current mode
	Sample(batchSize int) (*Batch, error)
	// DataAndTargets draws nSamples examples of the mode split into batches
	DataAndTargets(mode Mode, batchSize, nSamples int) ([]*Batch, error)
	ValidationSet(batchSize, nSamples int) ([]*Batch, error)
	TestSet(batchSize, nSamples int) ([]*Batch, error)
	NFeatures() int
	FeatureName(index int) (string, error)
	SequenceFromEncoding(encoding []float64) (string, error)
	SaveDatasets(outputDir string) error
}

/*
Forker is a sampler able to make independent copies for background workers
*/
type Forker interface {
	Sampler
	Fork(worker int) Sampler
}
