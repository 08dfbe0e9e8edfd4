/*
Package analyze runs trained models on sequences and variants
*/
package analyze

import (
	"bufio"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/selene/config"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/selene/model"
	"go-ml.dev/pkg/selene/sequences"
	"go-ml.dev/pkg/selene/targets"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	Predictions = "predictions"
	Diffs       = "diffs"
	AbsDiffs    = "abs_diffs"
)

const DefaultBatchSize = 64

/*
Reference is the sequence source variants are applied to
*/
type Reference interface {
	Length(chrom string) int
	Sequence(chrom string, start, end int, strand string) (string, error)
}

/*
AnalyzeSequences predicts features of sequences and effects of variants with a trained model
*/
type AnalyzeSequences struct {
	Model          model.Model
	SequenceLength int
	Features       []string
	Reference      Reference
	BatchSize      int
	OutputDir      string
}

/*
NewAnalyzeSequences is the configuration constructor of AnalyzeSequences, model is bound at run time
*/
func NewAnalyzeSequences(args config.Args) (interface{}, error) {
	m, ok := args.Value("model").(model.Model)
	if !ok {
		return nil, zorros.Errorf("argument `model` must be a model, got %T", args.Value("model"))
	}
	a := &AnalyzeSequences{Model: m}
	var err error
	if a.SequenceLength, err = args.IntOr("sequence_length", m.SequenceLength()); err != nil {
		return nil, err
	}
	if a.SequenceLength != m.SequenceLength() {
		return nil, zorros.Errorf("sequence_length %d does not match model sequence length %d", a.SequenceLength, m.SequenceLength())
	}
	if p, ok := args.Value("features").(string); ok {
		if a.Features, err = targets.LoadFeatures(p); err != nil {
			return nil, err
		}
	} else if a.Features, err = args.Strings("features"); err != nil {
		return nil, err
	}
	if len(a.Features) != m.NClasses() {
		return nil, zorros.Errorf("model predicts %d classes but %d features are given", m.NClasses(), len(a.Features))
	}
	if r, ok := args.Value("reference_sequence").(Reference); ok {
		a.Reference = r
	} else {
		p, err := args.String("reference_sequence")
		if err != nil {
			return nil, err
		}
		if a.Reference, err = sequences.LoadGenome(p); err != nil {
			return nil, err
		}
	}
	if a.BatchSize, err = args.IntOr("batch_size", DefaultBatchSize); err != nil {
		return nil, err
	}
	if a.BatchSize <= 0 {
		return nil, zorros.Errorf("batch_size must be positive, got %d", a.BatchSize)
	}
	out, err := args.StringOr("output_dir", "")
	if err != nil {
		return nil, err
	}
	a.OutputDir = fu.OutputDir(out)
	if args.Has("trained_model_path") {
		p, err := args.String("trained_model_path")
		if err != nil {
			return nil, err
		}
		if err = model.LoadWeights(p, m); err != nil {
			return nil, err
		}
	}
	return a, nil
}

/*
Predict runs the model on sequences, sequences are centered and padded with N or trimmed to the model length
*/
func (a *AnalyzeSequences) Predict(seqs []string) ([][]float64, error) {
	var r [][]float64
	for i := 0; i < len(seqs); i += a.BatchSize {
		x := make([][]float64, 0, a.BatchSize)
		for _, s := range seqs[i:fu.Mini(i+a.BatchSize, len(seqs))] {
			x = append(x, sequences.SequenceToEncoding(fit(s, a.SequenceLength)))
		}
		p, err := a.Model.Predict(x)
		if err != nil {
			return nil, err
		}
		r = append(r, p...)
	}
	return r, nil
}

func fit(s string, n int) string {
	if len(s) > n {
		k := (len(s) - n) / 2
		return s[k : k+n]
	}
	k := (n - len(s)) / 2
	return strings.Repeat("N", k) + s + strings.Repeat("N", n-len(s)-k)
}

/*
window returns the sequence of length n with allele placed at the center
replacing ref at 1-based pos
*/
func (a *AnalyzeSequences) window(chrom string, pos int, ref, allele string) (string, error) {
	n := a.SequenceLength
	if len(allele) >= n {
		return fit(allele, n), nil
	}
	left := (n - len(allele)) / 2
	right := n - len(allele) - left
	p := pos - 1
	l, err := a.flank(chrom, p-left, p)
	if err != nil {
		return "", err
	}
	r, err := a.flank(chrom, p+len(ref), p+len(ref)+right)
	if err != nil {
		return "", err
	}
	return l + allele + r, nil
}

func (a *AnalyzeSequences) flank(chrom string, start, end int) (string, error) {
	if start == end && start >= 0 && end <= a.Reference.Length(chrom) {
		return "", nil
	}
	return a.Reference.Sequence(chrom, start, end, sequences.Forward)
}

func (a *AnalyzeSequences) chrom(c string) (string, bool) {
	if a.Reference.Length(c) > 0 {
		return c, true
	}
	if strings.HasPrefix(c, "chr") {
		c = c[3:]
	} else {
		c = "chr" + c
	}
	return c, a.Reference.Length(c) > 0
}

type vepOptions struct {
	saveData  []string
	outputDir string
}

func parseVepOptions(a *AnalyzeSequences, opts config.Args) (o vepOptions, err error) {
	for k := range opts.Without("save_data", "output_dir") {
		return o, zorros.Errorf("unknown variant effect prediction option `%v`", k)
	}
	if o.saveData, err = opts.StringsOr("save_data", []string{AbsDiffs}); err != nil {
		return
	}
	if len(o.saveData) == 0 {
		return o, zorros.Errorf("save_data must not be empty")
	}
	for _, s := range o.saveData {
		if s != Predictions && s != Diffs && s != AbsDiffs {
			return o, zorros.Errorf("save_data `%v` must be one of %v, %v, %v", s, Predictions, Diffs, AbsDiffs)
		}
	}
	if o.outputDir, err = opts.StringOr("output_dir", a.OutputDir); err != nil {
		return
	}
	return
}

type tsvWriter struct {
	kind   string
	w      *bufio.Writer
	commit func() error
}

/*
VariantEffectPrediction predicts reference and alternative windows of every variant in the VCF file
and writes requested save_data kinds into <output_dir>/<vcf base>_<kind>.tsv
*/
func (a *AnalyzeSequences) VariantEffectPrediction(vcfPath string, opts config.Args) error {
	o, err := parseVepOptions(a, opts)
	if err != nil {
		return err
	}
	vs, err := ReadVCF(vcfPath)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(o.outputDir, 0755); err != nil {
		return zorros.Trace(err)
	}
	base := filepath.Base(vcfPath)
	for _, ext := range []string{".xz", ".vcf"} {
		base = strings.TrimSuffix(base, ext)
	}
	header := strings.Join(append([]string{"chrom", "pos", "name", "ref", "alt"}, a.Features...), "\t") + "\n"
	writers := make([]*tsvWriter, len(o.saveData))
	for i, kind := range o.saveData {
		wh, err := iokit.File(filepath.Join(o.outputDir, base+"_"+kind+".tsv")).Create()
		if err != nil {
			return zorros.Trace(err)
		}
		defer wh.End()
		writers[i] = &tsvWriter{kind, bufio.NewWriter(wh), wh.Commit}
		if _, err = writers[i].w.WriteString(header); err != nil {
			return zorros.Trace(err)
		}
	}
	for i := 0; i < len(vs); i += a.BatchSize {
		if err = a.predictVariants(vs[i:fu.Mini(i+a.BatchSize, len(vs))], writers); err != nil {
			return err
		}
	}
	for _, w := range writers {
		if err = w.w.Flush(); err != nil {
			return zorros.Trace(err)
		}
		if err = w.commit(); err != nil {
			return zorros.Trace(err)
		}
	}
	return nil
}

func (a *AnalyzeSequences) predictVariants(vs []Variant, writers []*tsvWriter) error {
	var refs, alts []string
	var ok []Variant
	for _, v := range vs {
		if !isBases(v.Ref) || !isBases(v.Alt) {
			zlog.Warningf("variant %v:%d %v>%v is not a sequence change, skipped", v.Chrom, v.Pos, v.Ref, v.Alt)
			continue
		}
		chrom, found := a.chrom(v.Chrom)
		if !found {
			zlog.Warningf("variant %v:%d is on unknown chromosome, skipped", v.Chrom, v.Pos)
			continue
		}
		ref, err := a.window(chrom, v.Pos, v.Ref, v.Ref)
		if err != nil {
			zlog.Warningf("variant %v:%d is too close to the chromosome end, skipped", v.Chrom, v.Pos)
			continue
		}
		if g, err := a.Reference.Sequence(chrom, v.Pos-1, v.Pos-1+len(v.Ref), sequences.Forward); err == nil && g != v.Ref {
			zlog.Warningf("variant %v:%d reference allele %v does not match the reference sequence %v", v.Chrom, v.Pos, v.Ref, g)
		}
		alt, err := a.window(chrom, v.Pos, v.Ref, v.Alt)
		if err != nil {
			zlog.Warningf("variant %v:%d is too close to the chromosome end, skipped", v.Chrom, v.Pos)
			continue
		}
		refs = append(refs, ref)
		alts = append(alts, alt)
		ok = append(ok, v)
	}
	if len(ok) == 0 {
		return nil
	}
	rp, err := a.Predict(refs)
	if err != nil {
		return err
	}
	ap, err := a.Predict(alts)
	if err != nil {
		return err
	}
	for i, v := range ok {
		prefix := []string{v.Chrom, strconv.Itoa(v.Pos), v.Name, v.Ref, v.Alt}
		for _, w := range writers {
			cols := append([]string(nil), prefix...)
			for j := range ap[i] {
				x := ap[i][j]
				switch w.kind {
				case Diffs:
					x = ap[i][j] - rp[i][j]
				case AbsDiffs:
					x = math.Abs(ap[i][j] - rp[i][j])
				}
				cols = append(cols, strconv.FormatFloat(x, 'g', 6, 64))
			}
			if _, err = w.w.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
				return zorros.Trace(err)
			}
		}
	}
	return nil
}

/*
PredictFasta predicts features of every FASTA record and writes <output_dir>/<fasta base>_predictions.tsv
*/
func (a *AnalyzeSequences) PredictFasta(fastaPath string, opts config.Args) error {
	for k := range opts.Without("output_dir") {
		return zorros.Errorf("unknown prediction option `%v`", k)
	}
	outputDir, err := opts.StringOr("output_dir", a.OutputDir)
	if err != nil {
		return err
	}
	g, err := sequences.LoadGenome(fastaPath)
	if err != nil {
		return err
	}
	names := g.Chromosomes()
	seqs := make([]string, len(names))
	for i, n := range names {
		if seqs[i], err = g.Sequence(n, 0, g.Length(n), sequences.Forward); err != nil {
			return err
		}
	}
	p, err := a.Predict(seqs)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(outputDir, 0755); err != nil {
		return zorros.Trace(err)
	}
	base := filepath.Base(fastaPath)
	base = strings.TrimSuffix(base, ".xz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	wh, err := iokit.File(filepath.Join(outputDir, base+"_"+Predictions+".tsv")).Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	w := bufio.NewWriter(wh)
	w.WriteString(strings.Join(append([]string{"name"}, a.Features...), "\t") + "\n")
	for i, n := range names {
		cols := []string{n}
		for _, x := range p[i] {
			cols = append(cols, strconv.FormatFloat(x, 'g', 6, 64))
		}
		w.WriteString(strings.Join(cols, "\t") + "\n")
	}
	if err = w.Flush(); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}
