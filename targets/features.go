/*
Package targets implements the genomic feature store answering which annotated features overlap a genomic interval
*/
package targets

import (
	"bufio"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"strings"
)

/*
LoadFeatures reads the list of distinct features, one name per line
*/
func LoadFeatures(path string) ([]string, error) {
	rd, err := fu.Open(path)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	var features []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		if seen[s] {
			return nil, zorros.Errorf("duplicate feature %v in %v", s, path)
		}
		seen[s] = true
		features = append(features, s)
	}
	if err := sc.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	if len(features) == 0 {
		return nil, zorros.Errorf("no features in %v", path)
	}
	return features, nil
}

/*
Thresholds builds per-feature thresholds from a default value and optional overrides by feature name
*/
func Thresholds(features []string, dflt float64, overrides map[string]float64) ([]float64, error) {
	t := make([]float64, len(features))
	index := map[string]int{}
	for i, f := range features {
		t[i] = dflt
		index[f] = i
	}
	for k, v := range overrides {
		i, ok := index[k]
		if !ok {
			return nil, zorros.Errorf("threshold is given for unknown feature %v", k)
		}
		t[i] = v
	}
	for i, v := range t {
		if v <= 0 || v > 1 {
			return nil, zorros.Errorf("threshold %v of feature %v must be in (0,1]", v, features[i])
		}
	}
	return t, nil
}
