package analyze

import (
	"bufio"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"strconv"
	"strings"
)

/*
Variant is one alternative allele of a VCF record, Pos is 1-based
*/
type Variant struct {
	Chrom string
	Pos   int
	Name  string
	Ref   string
	Alt   string
}

/*
ReadVCF reads variants from VCF file, possibly xz compressed.
Multiallelic records produce one variant per alternative allele.
*/
func ReadVCF(path string) ([]Variant, error) {
	rd, err := fu.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	var vs []Variant
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for ln := 1; sc.Scan(); ln++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 5 {
			return nil, zorros.Errorf("%v:%d: VCF record must have at least 5 columns", path, ln)
		}
		pos, err := strconv.Atoi(cols[1])
		if err != nil || pos <= 0 {
			return nil, zorros.Errorf("%v:%d: bad variant position `%v`", path, ln, cols[1])
		}
		for _, alt := range strings.Split(cols[4], ",") {
			vs = append(vs, Variant{
				Chrom: cols[0],
				Pos:   pos,
				Name:  cols[2],
				Ref:   strings.ToUpper(cols[3]),
				Alt:   strings.ToUpper(alt),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	return vs, nil
}

func isBases(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return true
}
