/*
Package sequences implements the one-hot DNA encoding and the reference genome sequence store
*/
package sequences

import (
	"go-ml.dev/pkg/zorros"
)

/*
Alphabet is the order of bases in one-hot rows
*/
const Alphabet = "ACGT"

// Unknown is the value of every column in the row of an unknown base
const Unknown = 0.25

const Width = len(Alphabet)

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}

/*
SequenceToEncoding returns row-major len(s)x4 one-hot encoding
*/
func SequenceToEncoding(s string) []float64 {
	enc := make([]float64, len(s)*Width)
	for i := 0; i < len(s); i++ {
		row := enc[i*Width : (i+1)*Width]
		if j := baseIndex(s[i]); j >= 0 {
			row[j] = 1
		} else {
			for k := range row {
				row[k] = Unknown
			}
		}
	}
	return enc
}

/*
EncodingToSequence is the inverse of SequenceToEncoding
*/
func EncodingToSequence(enc []float64) (string, error) {
	if len(enc)%Width != 0 {
		return "", zorros.Errorf("encoding length %d is not a multiple of %d", len(enc), Width)
	}
	bs := make([]byte, len(enc)/Width)
	for i := range bs {
		row := enc[i*Width : (i+1)*Width]
		hot, unknown := -1, 0
		for j, x := range row {
			switch x {
			case 1:
				if hot >= 0 {
					hot = -2
				} else if hot == -1 {
					hot = j
				}
			case Unknown:
				unknown++
			case 0:
			default:
				hot = -2
			}
		}
		switch {
		case unknown == Width:
			bs[i] = 'N'
		case hot >= 0 && unknown == 0:
			bs[i] = Alphabet[hot]
		default:
			return "", zorros.Errorf("row %d of encoding %v is not a valid base", i, row)
		}
	}
	return string(bs), nil
}

func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'c':
		return 'g'
	case 'g':
		return 'c'
	}
	return b
}

func ReverseComplement(s string) string {
	bs := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		bs[len(s)-1-i] = complement(s[i])
	}
	return string(bs)
}

/*
ReverseComplementEncoding reverses rows and columns, the column order ACGT reversed is the complement order
*/
func ReverseComplementEncoding(enc []float64) []float64 {
	n := len(enc) / Width
	r := make([]float64, len(enc))
	for i := 0; i < n; i++ {
		for j := 0; j < Width; j++ {
			r[(n-1-i)*Width+(Width-1-j)] = enc[i*Width+j]
		}
	}
	return r
}
