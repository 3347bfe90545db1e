package database

import (
	"testing"

	"skustack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The balance aggregation queries reference sku_id by name in raw SQL, so
// the migrated schema must expose that column even though GORM's default
// mapping of the SKUID field would be "skuid".
func TestMigrateSKUIDColumnNames(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:MigrateSKUIDColumns?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range []interface{}{
		&model.BOMVersion{},
		&model.Transaction{},
		&model.FinishedGoodsLine{},
		&model.SalesDaily{},
	} {
		assert.True(t, db.Migrator().HasColumn(m, "sku_id"), "%T", m)
	}
}
