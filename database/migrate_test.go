package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", UpSection(content))
	assert.Equal(t, "SELECT 1;", UpSection("SELECT 1;"))
	assert.Equal(t, "\nSELECT 1;", UpSection("-- +migrate Up\nSELECT 1;"))
}
