// Package sqlguard rejects statements that could mutate or administer the
// dataset. The check is a plain substring denylist over the uppercased
// statement: it is allow-by-default, produces false positives on identifiers
// or string literals that happen to contain a keyword, and makes no claim of
// being injection-proof or of bounding query cost. Callers that need a real
// guarantee must open the dataset read-only as well.
package sqlguard

import "strings"

var denylist = []string{
	"DROP",
	"DELETE",
	"TRUNCATE",
	"ALTER",
	"INSERT",
	"UPDATE",
	"REPLACE",
	"ATTACH",
	"DETACH",
	"VACUUM",
	"PRAGMA",
}

// IsSafe reports whether the statement contains none of the denylisted
// keywords, matched case-insensitively anywhere in the string.
func IsSafe(statement string) bool {
	upper := strings.ToUpper(statement)
	for _, keyword := range denylist {
		if strings.Contains(upper, keyword) {
			return false
		}
	}
	return true
}
