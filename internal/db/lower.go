package db

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// unicodeLower is registered on every SQLite connection. The built-in LOWER
// only folds ASCII, so "CLÍNICA" would not match "clínica".
const unicodeLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(unicodeLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return strings.ToLower(fmt.Sprint(v)), nil
		}
	})
}

// Lower wraps expr in the driver's Unicode-aware lowercase function.
func (db *DB) Lower(expr string) string {
	if db.driver == DriverSQLite {
		return unicodeLower + "(" + expr + ")"
	}
	return "LOWER(" + expr + ")"
}
