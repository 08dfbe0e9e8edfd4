package sequences

import (
	"bufio"
	"bytes"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"io"
	"strings"
)

const (
	Forward = "+"
	Reverse = "-"
)

/*
Genome is an in-memory reference sequence store loaded from FASTA
*/
type Genome struct {
	names []string
	seqs  map[string][]byte
}

/*
LoadGenome reads FASTA file, possibly xz compressed
*/
func LoadGenome(path string) (*Genome, error) {
	rd, err := fu.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	g, err := ReadFasta(rd)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to read genome %v: %v", path, err.Error())
	}
	return g, nil
}

func ReadFasta(rd io.Reader) (*Genome, error) {
	g := &Genome{seqs: map[string][]byte{}}
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var name string
	var buf bytes.Buffer
	flush := func() {
		if name != "" {
			g.seqs[name] = bytes.ToUpper(append([]byte(nil), buf.Bytes()...))
		}
		buf.Reset()
	}
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			fields := strings.Fields(string(line[1:]))
			if len(fields) == 0 {
				return nil, zorros.Errorf("fasta record without name")
			}
			name = fields[0]
			if _, ok := g.seqs[name]; ok {
				return nil, zorros.Errorf("duplicate fasta record %v", name)
			}
			g.names = append(g.names, name)
			continue
		}
		if name == "" {
			return nil, zorros.Errorf("sequence data before the first fasta header")
		}
		buf.Write(line)
	}
	if err := sc.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	flush()
	return g, nil
}

/*
Chromosomes returns names in the file order
*/
func (g *Genome) Chromosomes() []string {
	return append([]string(nil), g.names...)
}

func (g *Genome) Length(chrom string) int {
	return len(g.seqs[chrom])
}

/*
Sequence returns bases of the half-open interval [start,end), reverse complemented for the '-' strand
*/
func (g *Genome) Sequence(chrom string, start, end int, strand string) (string, error) {
	s, ok := g.seqs[chrom]
	if !ok {
		return "", zorros.Errorf("genome does not have chromosome %v", chrom)
	}
	if start < 0 || end > len(s) || start >= end {
		return "", zorros.Errorf("interval %v:%d-%d is out of chromosome bounds [0,%d)", chrom, start, end, len(s))
	}
	q := string(s[start:end])
	switch strand {
	case Forward:
		return q, nil
	case Reverse:
		return ReverseComplement(q), nil
	}
	return "", zorros.Errorf("unknown strand `%v`", strand)
}

func (g *Genome) Encoding(chrom string, start, end int, strand string) ([]float64, error) {
	s, err := g.Sequence(chrom, start, end, strand)
	if err != nil {
		return nil, err
	}
	return SequenceToEncoding(s), nil
}

func (g *Genome) SequenceFromEncoding(enc []float64) (string, error) {
	return EncodingToSequence(enc)
}
