package loyalty

import (
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonial/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.AutoMigrate(&models.LoyaltyRecord{}).Error)
	return db
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "11999990000", NormalizePhone("(11) 99999-0000"))
	assert.Equal(t, "11999990000", NormalizePhone("11999990000"))
	assert.Equal(t, "5511999990000", NormalizePhone("+55 11 99999-0000"))
	assert.Equal(t, "", NormalizePhone("sem telefone"))
}

func TestPointsDefaultsToZero(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	points, err := ledger.Points("(11) 98888-7777")
	require.NoError(t, err)
	assert.Equal(t, 0, points)
}

func TestAddCreatesAndAccumulates(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	tx := db.Begin()
	total, err := ledger.Add(tx, "(11) 99999-0000", 45)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, 45, total)

	// A differently formatted number accrues onto the same record
	tx = db.Begin()
	total, err = ledger.Add(tx, "11999990000", 30)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, 75, total)

	points, err := ledger.Points("11 99999 0000")
	require.NoError(t, err)
	assert.Equal(t, 75, points)
}

func TestAddRejectsDigitlessPhone(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	tx := db.Begin()
	_, err := ledger.Add(tx, "---", 10)
	tx.Rollback()

	assert.Equal(t, ErrNoPhone, err)
}

func TestSetOverwritesBalance(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	tx := db.Begin()
	_, err := ledger.Add(tx, "11999990000", 100)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	total, err := ledger.Set("(11) 99999-0000", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, total)

	points, err := ledger.Points("11999990000")
	require.NoError(t, err)
	assert.Equal(t, 20, points)
}

func TestListFiltersByPhone(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)

	tx := db.Begin()
	_, err := ledger.Add(tx, "11999990000", 50)
	require.NoError(t, err)
	_, err = ledger.Add(tx, "21888880000", 90)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	// Unfiltered, ordered by balance descending
	records, err := ledger.List("")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "21888880000", records[0].Phone)

	records, err = ledger.List("1199999")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "11999990000", records[0].Phone)
}
