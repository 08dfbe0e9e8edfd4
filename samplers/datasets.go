package samplers

import (
	"bufio"
	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

/*
SampleRecord is the coordinates and targets of one drawn example
*/
type SampleRecord struct {
	Chrom    string
	Start    int
	End      int
	Strand   string
	Features []float64
}

/*
Columns returns chrom, start, end, strand followed by feature columns
*/
func (r SampleRecord) Columns() []string {
	cols := make([]string, 0, 4+len(r.Features))
	cols = append(cols, r.Chrom, strconv.Itoa(r.Start), strconv.Itoa(r.End), r.Strand)
	for _, f := range r.Features {
		cols = append(cols, strconv.FormatFloat(f, 'g', -1, 64))
	}
	return cols
}

/*
Datasets collects drawn records per mode for the modes requested at creation.
It is safe for concurrent use. Records are kept in memory until the sampler is dropped,
so recording train mode is practical only for short runs.
*/
type Datasets struct {
	mu      sync.Mutex
	modes   []Mode
	saved   map[Mode]bool
	records map[Mode][]SampleRecord
}

func NewDatasets(modes []Mode) *Datasets {
	d := &Datasets{saved: map[Mode]bool{}, records: map[Mode][]SampleRecord{}}
	for _, m := range modes {
		if !d.saved[m] {
			d.modes = append(d.modes, m)
			d.saved[m] = true
		}
	}
	return d
}

func (d *Datasets) Modes() []Mode {
	return append([]Mode(nil), d.modes...)
}

func (d *Datasets) Saves(m Mode) bool {
	return d.saved[m]
}

/*
Append records the sample if the mode is saved
*/
func (d *Datasets) Append(m Mode, r SampleRecord) bool {
	if !d.Saves(m) {
		return false
	}
	d.mu.Lock()
	d.records[m] = append(d.records[m], r)
	d.mu.Unlock()
	return true
}

func (d *Datasets) Records(m Mode) []SampleRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SampleRecord(nil), d.records[m]...)
}

/*
Export writes <mode>_data.bed into the directory for every mode having records
*/
func (d *Datasets) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zorros.Trace(err)
	}
	for _, m := range d.modes {
		records := d.Records(m)
		if len(records) == 0 {
			continue
		}
		if err := writeBed(filepath.Join(dir, string(m)+"_data.bed"), records); err != nil {
			return zorros.Wrapf(err, "failed to export %v dataset: %v", m, err.Error())
		}
	}
	return nil
}

func writeBed(path string, records []SampleRecord) (err error) {
	wh, err := iokit.File(path).Create()
	if err != nil {
		return zorros.Trace(err)
	}
	defer wh.End()
	w := bufio.NewWriter(wh)
	for _, r := range records {
		if _, err = w.WriteString(strings.Join(r.Columns(), "\t") + "\n"); err != nil {
			return zorros.Trace(err)
		}
	}
	if err = w.Flush(); err != nil {
		return zorros.Trace(err)
	}
	if err = wh.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}
