//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqlite

import (
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"
	driverType = "cgo"
)

func classify(err error) (string, bool, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return "", false, false
	}
	return strconv.Itoa(int(se.ExtendedCode)), se.Code == sqlite3.ErrConstraint, true
}
