package fu

import (
	"github.com/ulikunitz/xz"
	"go-ml.dev/pkg/zorros"
	"io"
	"os"
	"strings"
)

type readCloser struct {
	io.Reader
	io.Closer
}

/*
Open opens file for reading, files with .xz suffix are decompressed on the fly
*/
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	if !strings.HasSuffix(path, ".xz") {
		return f, nil
	}
	r, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, zorros.Wrapf(err, "failed to open xz stream %v: %v", path, err.Error())
	}
	return readCloser{r, f}, nil
}
