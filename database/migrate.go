package database

import "strings"

const (
	migrateUp   = "-- +migrate Up"
	migrateDown = "-- +migrate Down"
)

// UpSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
// A file without markers is returned whole.
func UpSection(content string) string {
	upIdx := strings.Index(content, migrateUp)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(migrateUp):]
	if downIdx := strings.Index(body, migrateDown); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}
