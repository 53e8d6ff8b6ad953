// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Escapes LIKE patterns so user filters match literally.

package store

import "strings"

// escapeSQLLike escapes %, _ and the backslash escape character itself.
// Queries using it must declare ESCAPE '\'.
func escapeSQLLike(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, "%", `\%`)
	return strings.ReplaceAll(pattern, "_", `\_`)
}

// likePrefix returns a LIKE pattern matching values that start with prefix
func likePrefix(prefix string) string {
	return escapeSQLLike(prefix) + "%"
}
