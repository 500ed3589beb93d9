package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Mapping{}))
	return db
}

func TestMappingCRUD(t *testing.T) {
	db := setupTestDB(t)

	t.Run("validation", func(t *testing.T) {
		assert.ErrorContains(t, CreateMapping(db, &Mapping{Source: "A", Channel: "B"}), "utm source pattern is required")
		assert.ErrorContains(t, CreateMapping(db, &Mapping{UTMSource: "a", Channel: "B"}), "source is required")
		assert.ErrorContains(t, CreateMapping(db, &Mapping{UTMSource: "a", Source: "A"}), "channel is required")
	})

	low := &Mapping{UTMSource: "direct", Source: "Direct", SourceDetail: "None", Channel: "Direct", Priority: 1, IsActive: true}
	high := &Mapping{UTMSource: "google", UTMMedium: "cpc", Source: "Google Ads", Channel: "Paid Search", Priority: 10, IsActive: true}
	off := &Mapping{UTMSource: "bing", Source: "Bing", Channel: "Search", Priority: 99}
	for _, m := range []*Mapping{low, high, off} {
		require.NoError(t, CreateMapping(db, m))
	}

	active, err := ListActiveMappings(db)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, high.ID, active[0].ID)
	assert.Equal(t, low.ID, active[1].ID)

	all, err := ListMappings(db)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	off.IsActive = true
	require.NoError(t, UpdateMapping(db, off))
	got, err := GetMappingByID(db, off.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, DeleteMapping(db, off.ID))
	assert.ErrorIs(t, DeleteMapping(db, off.ID), gorm.ErrRecordNotFound)
	_, err = GetMappingByID(db, off.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
