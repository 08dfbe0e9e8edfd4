package targets

import (
	"bufio"
	"database/sql"
	_ "github.com/mattn/go-sqlite3"
	"go-ml.dev/pkg/selene/fu"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"reflect"
	"strconv"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS intervals (
	chrom   TEXT    NOT NULL,
	lo      INTEGER NOT NULL,
	hi      INTEGER NOT NULL,
	feature INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS intervals_loc ON intervals (chrom, lo);
CREATE TABLE IF NOT EXISTS features (
	position INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL
);
`

const overlapQuery = `SELECT lo, hi, feature FROM intervals WHERE chrom = ? AND lo < ? AND hi > ?`

/*
GenomicFeatures is an interval index over a BED file of annotated features
*/
type GenomicFeatures struct {
	db         *sql.DB
	query      *sql.Stmt
	features   []string
	index      map[string]int
	thresholds []float64
}

/*
NewGenomicFeatures indexes BED file (chrom, start, end, feature) into SQLite database.
Empty dbPath means in-memory index. An existing database is reused when it was built
for the same ordered feature list, otherwise it is rebuilt from the BED file.
*/
func NewGenomicFeatures(bedPath string, features []string, thresholds []float64, dbPath string) (*GenomicFeatures, error) {
	if len(thresholds) != len(features) {
		return nil, zorros.Errorf("thresholds count %d does not match features count %d", len(thresholds), len(features))
	}
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	// in-memory databases are private to a connection
	db.SetMaxOpenConns(1)
	gf := &GenomicFeatures{
		db:         db,
		features:   features,
		index:      map[string]int{},
		thresholds: thresholds,
	}
	for i, f := range features {
		gf.index[f] = i
	}
	if err = gf.init(bedPath); err != nil {
		db.Close()
		return nil, err
	}
	return gf, nil
}

func (gf *GenomicFeatures) init(bedPath string) (err error) {
	if _, err = gf.db.Exec(schema); err != nil {
		return zorros.Wrapf(err, "failed to create interval index: %v", err.Error())
	}
	indexed, err := gf.indexed()
	if err != nil {
		return
	}
	if !reflect.DeepEqual(indexed, gf.features) {
		if len(indexed) > 0 {
			zlog.Warningf("interval index was built for features %v, rebuilding it for %v", indexed, gf.features)
		}
		if err = gf.load(bedPath); err != nil {
			return
		}
	}
	if gf.query, err = gf.db.Prepare(overlapQuery); err != nil {
		return zorros.Trace(err)
	}
	return
}

func (gf *GenomicFeatures) indexed() ([]string, error) {
	rows, err := gf.db.Query(`SELECT name FROM features ORDER BY position`)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, zorros.Trace(err)
		}
		names = append(names, n)
	}
	if err = rows.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	return names, nil
}

func (gf *GenomicFeatures) load(bedPath string) error {
	rd, err := fu.Open(bedPath)
	if err != nil {
		return err
	}
	defer rd.Close()
	tx, err := gf.db.Begin()
	if err != nil {
		return zorros.Trace(err)
	}
	defer tx.Rollback()
	for _, q := range []string{`DELETE FROM intervals`, `DELETE FROM features`} {
		if _, err = tx.Exec(q); err != nil {
			return zorros.Trace(err)
		}
	}
	for i, f := range gf.features {
		if _, err = tx.Exec(`INSERT INTO features (position, name) VALUES (?, ?)`, i, f); err != nil {
			return zorros.Trace(err)
		}
	}
	ins, err := tx.Prepare(`INSERT INTO intervals (chrom, lo, hi, feature) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return zorros.Trace(err)
	}
	defer ins.Close()
	sc := bufio.NewScanner(rd)
	for ln := 1; sc.Scan(); ln++ {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			return zorros.Errorf("%v:%d: expected at least 4 tab separated columns", bedPath, ln)
		}
		fi, ok := gf.index[cols[3]]
		if !ok {
			continue
		}
		lo, err1 := strconv.Atoi(cols[1])
		hi, err2 := strconv.Atoi(cols[2])
		if err1 != nil || err2 != nil || lo < 0 || hi <= lo {
			return zorros.Errorf("%v:%d: malformed interval %v-%v", bedPath, ln, cols[1], cols[2])
		}
		if _, err = ins.Exec(cols[0], lo, hi, fi); err != nil {
			return zorros.Trace(err)
		}
	}
	if err = sc.Err(); err != nil {
		return zorros.Trace(err)
	}
	if err = tx.Commit(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}

func (gf *GenomicFeatures) Features() []string {
	return gf.features
}

/*
Targets returns 0/1 vector with 1 for every feature covering at least its threshold fraction of [start,end)
*/
func (gf *GenomicFeatures) Targets(chrom string, start, end int) ([]float64, error) {
	if end <= start {
		return nil, zorros.Errorf("malformed query interval %v:%d-%d", chrom, start, end)
	}
	rows, err := gf.query.Query(chrom, end, start)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	defer rows.Close()
	n := end - start
	coverage := map[int][]bool{}
	for rows.Next() {
		var lo, hi, fi int
		if err = rows.Scan(&lo, &hi, &fi); err != nil {
			return nil, zorros.Trace(err)
		}
		if fi < 0 || fi >= len(gf.features) {
			return nil, zorros.Errorf("interval index refers to feature %d, only %d features are known", fi, len(gf.features))
		}
		c, ok := coverage[fi]
		if !ok {
			c = make([]bool, n)
			coverage[fi] = c
		}
		for i := fu.Maxi(lo, start); i < fu.Mini(hi, end); i++ {
			c[i-start] = true
		}
	}
	if err = rows.Err(); err != nil {
		return nil, zorros.Trace(err)
	}
	t := make([]float64, len(gf.features))
	for fi, c := range coverage {
		k := 0
		for _, x := range c {
			if x {
				k++
			}
		}
		if float64(k)/float64(n) >= gf.thresholds[fi] {
			t[fi] = 1
		}
	}
	return t, nil
}

func (gf *GenomicFeatures) Close() error {
	if gf.query != nil {
		gf.query.Close()
	}
	if err := gf.db.Close(); err != nil {
		return zorros.Trace(err)
	}
	return nil
}
