package fu

import (
	"go-ml.dev/pkg/iokit"
	"path/filepath"
)

/*
OutputDir returns s if it is not empty and the selene directory inside the user cache otherwise
*/
func OutputDir(s string) string {
	if s != "" {
		return s
	}
	return iokit.CacheFile(filepath.Join("go-ml", "Selene"))
}
