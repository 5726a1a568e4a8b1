package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTableSQL(t *testing.T) {
	stmt := createTableSQL("journal")
	assert.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS `journal`")
	assert.Contains(t, stmt, "elapsed_seconds Decimal(18, 3)")
	assert.Contains(t, stmt, "ORDER BY (run_id, recorded_at)")
}

func TestQuoteIdentifier(t *testing.T) {
	cases := map[string]string{
		"import_operations": "`import_operations`",
		"ops; DROP TABLE x": "`ops; DROP TABLE x`",
		"we`ird":            "`we\\`ird`",
		`back\slash`:        "`back\\\\slash`",
	}
	for in, want := range cases {
		assert.Equal(t, want, quoteIdentifier(in), in)
	}
	assert.Contains(t, createTableSQL("ops; DROP TABLE x"), "CREATE TABLE IF NOT EXISTS `ops; DROP TABLE x` (")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.Equal(t, DefaultTable, tableName(""))
	assert.Equal(t, "audit", tableName("audit"))
}

func TestNewStoreFromDSN_Invalid(t *testing.T) {
	_, err := NewStoreFromDSN("://no-scheme")
	assert.Error(t, err)
}
