//go:build !cgo_sqlite

package sqlite

import (
	"errors"
	"strconv"

	msqlite "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "purego"
)

func classify(err error) (string, bool, bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return "", false, false
	}
	code := se.Code()
	return strconv.Itoa(code), code&0xff == constraintCode, true
}
