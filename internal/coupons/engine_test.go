package coupons

import (
	"testing"
	"time"

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

	require.NoError(t, db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}).Error)
	return db
}

func TestValidateMatchesUppercase(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db)

	require.NoError(t, db.Create(&models.Coupon{
		Code: "BEMVINDO10", Kind: models.CouponKindPercentage, Value: 10, Active: true,
	}).Error)

	// Lowercase and padded input resolves to the stored code
	coupon, err := engine.Validate("  bemvindo10 ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "BEMVINDO10", coupon.Code)
}

func TestValidateRejections(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db)
	now := time.Now()

	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	require.NoError(t, db.Create(&models.Coupon{
		Code: "INATIVO", Kind: models.CouponKindFixed, Value: 5, Active: false,
	}).Error)
	require.NoError(t, db.Create(&models.Coupon{
		Code: "FUTURO", Kind: models.CouponKindFixed, Value: 5, Active: true, ValidFrom: &future,
	}).Error)
	require.NoError(t, db.Create(&models.Coupon{
		Code: "VENCIDO", Kind: models.CouponKindFixed, Value: 5, Active: true, ValidUntil: &past,
	}).Error)

	_, err := engine.Validate("NAOEXISTE", now)
	assert.Equal(t, ErrNotFound, err)

	// Inactive codes are indistinguishable from unknown ones
	_, err = engine.Validate("INATIVO", now)
	assert.Equal(t, ErrNotFound, err)

	_, err = engine.Validate("FUTURO", now)
	assert.Equal(t, ErrNotStarted, err)

	_, err = engine.Validate("VENCIDO", now)
	assert.Equal(t, ErrExpired, err)
}

func TestDiscountComputation(t *testing.T) {
	percent := &models.Coupon{Kind: models.CouponKindPercentage, Value: 10}
	assert.InDelta(t, 10.0, Discount(100, percent), 1e-9)

	fixed := &models.Coupon{Kind: models.CouponKindFixed, Value: 15}
	assert.InDelta(t, 15.0, Discount(100, fixed), 1e-9)

	// A fixed discount larger than the total clamps to the total
	assert.InDelta(t, 8.0, Discount(8, fixed), 1e-9)

	// So does a percentage above 100
	over := &models.Coupon{Kind: models.CouponKindPercentage, Value: 150}
	assert.InDelta(t, 100.0, Discount(100, over), 1e-9)
}

func TestRecordUsage(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db)

	tx := db.Begin()
	require.NoError(t, engine.RecordUsage(tx, 3, 7, 12.5))
	require.NoError(t, tx.Commit().Error)

	var usage models.CouponUsage
	require.NoError(t, db.First(&usage).Error)
	assert.Equal(t, uint(3), usage.CouponID)
	assert.Equal(t, uint(7), usage.OrderID)
	assert.Equal(t, 12.5, usage.Discount)
}
