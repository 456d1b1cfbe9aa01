package subscription

import (
	"testing"

	"github.com/botsmith/billing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestLockForUpdate(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return lockForUpdate(tx).Where("user_id = ?", "u1").Find(&models.Subscription{})
	})
	assert.Contains(t, sql, "FOR UPDATE")
}
