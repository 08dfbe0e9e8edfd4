package samplers

import (
	"bufio"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"strconv"
	"strings"
)

/*
LoadIntervals reads chrom, start, end columns of a BED file, possibly xz compressed
*/
func LoadIntervals(path string) ([]Region, error) {
	rd, err := fu.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	var regions []Region
	sc := bufio.NewScanner(rd)
	for ln := 1; sc.Scan(); ln++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 3 {
			return nil, zorros.Errorf("%v:%d: interval must have at least 3 columns", path, ln)
		}
		start, err1 := strconv.Atoi(cols[1])
		end, err2 := strconv.Atoi(cols[2])
		if err1 != nil || err2 != nil || start < 0 || end <= start {
			return nil, zorros.Errorf("%v:%d: malformed interval %v:%v-%v", path, ln, cols[0], cols[1], cols[2])
		}
		regions = append(regions, Region{Chrom: cols[0], Start: start, End: end})
	}
	if err := sc.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	if len(regions) == 0 {
		return nil, zorros.Errorf("no intervals in %v", path)
	}
	return regions, nil
}
