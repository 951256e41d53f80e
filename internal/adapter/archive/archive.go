// Package archive selects the scan files recorded on a given day.
package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// Archive is a flat directory of scan files whose names carry a YYYYMMDD stamp.
type Archive struct {
	Dir string
}

// New returns an Archive rooted at dir.
func New(dir string) *Archive {
	return &Archive{Dir: dir}
}

// Files returns the files matching <Dir>/*<YYYYMMDD>* in lexical order.
// A day with no files yields an empty slice and no error.
func (a *Archive) Files(ctx context.Context, date time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pattern := filepath.Join(a.Dir, "*"+date.UTC().Format("20060102")+"*")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}
