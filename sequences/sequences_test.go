package sequences

import (
	"github.com/ulikunitz/xz"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
	"os"
	"strings"
	"testing"
)

const fasta = `>chr1 test chromosome
ACGTACGTAC
GTNNacgt
>chr2
TTTTGGGGCC
`

func Test_EncodingRoundTrip(t *testing.T) {
	for _, s := range []string{"", "A", "ACGT", "NNNN", "GATTACAN", strings.Repeat("ACGTN", 40)} {
		enc := SequenceToEncoding(s)
		assert.Equal(t, len(enc), len(s)*Width)
		q, err := EncodingToSequence(enc)
		assert.NilError(t, err)
		assert.Equal(t, q, s)
	}
}

func Test_Encoding(t *testing.T) {
	enc := SequenceToEncoding("AcN")
	assert.DeepEqual(t, enc, []float64{1, 0, 0, 0, 0, 1, 0, 0, .25, .25, .25, .25})
	_, err := EncodingToSequence([]float64{1, 1, 0, 0})
	assert.ErrorContains(t, err, "not a valid base")
	_, err = EncodingToSequence([]float64{0, 0, 0, 0})
	assert.ErrorContains(t, err, "not a valid base")
	_, err = EncodingToSequence([]float64{1, 0, 0})
	assert.ErrorContains(t, err, "multiple")
}

func Test_ReverseComplement(t *testing.T) {
	assert.Equal(t, ReverseComplement("AACGTN"), "NACGTT")
	assert.Equal(t, ReverseComplement("acg"), "cgt")
	s := "GATTACAN"
	rc, err := EncodingToSequence(ReverseComplementEncoding(SequenceToEncoding(s)))
	assert.NilError(t, err)
	assert.Equal(t, rc, ReverseComplement(s))
}

func Test_Genome(t *testing.T) {
	dir := fs.NewDir(t, "genome", fs.WithFile("g.fa", fasta))
	defer dir.Remove()
	g, err := LoadGenome(dir.Join("g.fa"))
	assert.NilError(t, err)
	assert.DeepEqual(t, g.Chromosomes(), []string{"chr1", "chr2"})
	assert.Equal(t, g.Length("chr1"), 18)
	assert.Equal(t, g.Length("chrX"), 0)
	s, err := g.Sequence("chr1", 8, 14, "+")
	assert.NilError(t, err)
	assert.Equal(t, s, "ACGTNN")
	s, err = g.Sequence("chr1", 8, 14, "-")
	assert.NilError(t, err)
	assert.Equal(t, s, "NNACGT")
	s, err = g.Sequence("chr1", 14, 18, "+")
	assert.NilError(t, err)
	assert.Equal(t, s, "ACGT")
	_, err = g.Sequence("chr1", 10, 19, "+")
	assert.ErrorContains(t, err, "out of chromosome bounds")
	_, err = g.Sequence("chr3", 0, 1, "+")
	assert.ErrorContains(t, err, "chr3")
	_, err = g.Sequence("chr2", 0, 1, "*")
	assert.ErrorContains(t, err, "strand")
	enc, err := g.Encoding("chr2", 0, 4, "-")
	assert.NilError(t, err)
	q, err := g.SequenceFromEncoding(enc)
	assert.NilError(t, err)
	assert.Equal(t, q, "AAAA")
}

func Test_GenomeXz(t *testing.T) {
	dir := fs.NewDir(t, "genome")
	defer dir.Remove()
	f, err := os.Create(dir.Join("g.fa.xz"))
	assert.NilError(t, err)
	w, err := xz.NewWriter(f)
	assert.NilError(t, err)
	_, err = w.Write([]byte(fasta))
	assert.NilError(t, err)
	assert.NilError(t, w.Close())
	assert.NilError(t, f.Close())
	g, err := LoadGenome(dir.Join("g.fa.xz"))
	assert.NilError(t, err)
	assert.Equal(t, g.Length("chr2"), 10)
}

func Test_BadFasta(t *testing.T) {
	_, err := ReadFasta(strings.NewReader("ACGT\n"))
	assert.ErrorContains(t, err, "before the first fasta header")
	_, err = ReadFasta(strings.NewReader(">a\nA\n>a\nC\n"))
	assert.ErrorContains(t, err, "duplicate")
}
