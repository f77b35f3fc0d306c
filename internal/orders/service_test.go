package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonial/internal/coupons"
	"colonial/internal/database"
	"colonial/internal/inventory"
	"colonial/internal/loyalty"
	"colonial/internal/models"
	"colonial/internal/monitoring"
)

type testEnv struct {
	db      *gorm.DB
	service *Service
	ledger  *inventory.Ledger
	loyalty *loyalty.Ledger

	queijo models.Ingredient
	molho  models.Ingredient
	lata   models.Ingredient
	pizza  models.Product
	refri  models.Product
}

// newTestEnv wires a full service against an in-memory store with a
// small seeded catalog: one manufactured pizza (0.2kg cheese + 0.1l
// sauce per unit) and one resale soda.
func newTestEnv(t *testing.T, policy inventory.Policy) *testEnv {
	t.Helper()

	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	env := &testEnv{db: db}

	cat := models.Category{Name: "Pizzas"}
	require.NoError(t, db.Create(&cat).Error)

	env.queijo = models.Ingredient{Name: "Queijo", Unit: "kg", Quantity: 5}
	env.molho = models.Ingredient{Name: "Molho", Unit: "l", Quantity: 3}
	env.lata = models.Ingredient{Name: "Refrigerante Lata", Unit: "un", Kind: models.IngredientKindResale, Quantity: 10}
	require.NoError(t, db.Create(&env.queijo).Error)
	require.NoError(t, db.Create(&env.molho).Error)
	require.NoError(t, db.Create(&env.lata).Error)

	env.pizza = models.Product{CategoryID: cat.ID, Name: "Pizza Mussarela", Price: 45, Kind: models.ProductKindManufactured}
	require.NoError(t, db.Create(&env.pizza).Error)
	require.NoError(t, db.Create(&models.RecipeLine{ProductID: env.pizza.ID, IngredientID: env.queijo.ID, Quantity: 0.2}).Error)
	require.NoError(t, db.Create(&models.RecipeLine{ProductID: env.pizza.ID, IngredientID: env.molho.ID, Quantity: 0.1}).Error)

	env.refri = models.Product{CategoryID: cat.ID, Name: "Refrigerante", Price: 6, Kind: models.ProductKindResale, IngredientID: &env.lata.ID}
	require.NoError(t, db.Create(&env.refri).Error)

	metrics := monitoring.NewMetricsFor(prometheus.NewRegistry())
	env.ledger = inventory.NewLedger(db)
	resolver := inventory.NewResolver(db)
	validator := inventory.NewValidator(db, resolver, policy)
	env.loyalty = loyalty.NewLedger(db)
	env.service = NewService(db, env.ledger, resolver, validator,
		coupons.NewEngine(db), env.loyalty, metrics)

	return env
}

func (e *testEnv) quantity(t *testing.T, ingredientID uint) float64 {
	t.Helper()
	qty, err := e.ledger.Quantity(ingredientID)
	require.NoError(t, err)
	return qty
}

func TestSubmitSnapshotsCatalog(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines: []SubmitLine{
			{ProductID: env.pizza.ID, Quantity: 2},
			{ProductID: env.refri.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.Code)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.Equal(t, 96.0, order.Total) // 2x45 + 6

	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Pizza Mussarela", order.Lines[0].ProductName)
	assert.Equal(t, 45.0, order.Lines[0].UnitPrice)

	// Submission never touches stock; deduction happens at completion
	assert.Equal(t, 5.0, env.quantity(t, env.queijo.ID))
	assert.Equal(t, 10.0, env.quantity(t, env.lata.ID))
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	_, err := env.service.Submit(SubmitRequest{CustomerName: "Ana"})
	assert.Equal(t, ErrEmptyOrder, err)

	_, err = env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 0}},
	})
	assert.Equal(t, ErrInvalidQuantity, err)

	_, err = env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: 999, Quantity: 1}},
	})
	assert.Equal(t, inventory.ErrProductNotFound, err)
}

func TestSubmitAppliesCoupon(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	require.NoError(t, env.db.Create(&models.Coupon{
		Code: "DEZ", Kind: models.CouponKindPercentage, Value: 10, Active: true,
	}).Error)

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		CouponCode:   "dez",
		DeliveryFee:  8,
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// 90 subtotal - 9 discount + 8 delivery
	assert.Equal(t, 89.0, order.Total)
	assert.Equal(t, 9.0, order.Meta.DiscountAmount)

	var usage models.CouponUsage
	require.NoError(t, env.db.First(&usage).Error)
	assert.Equal(t, order.ID, usage.OrderID)
	assert.Equal(t, 9.0, usage.Discount)
}

func TestSubmitRejectsInvalidCoupon(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	_, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		CouponCode:   "NAOEXISTE",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, ErrInvalidCoupon))

	// Nothing persisted
	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitStrictRejectsShortage(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	// 30 pizzas need 6kg of cheese; only 5kg on hand
	_, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 30}},
	})
	require.True(t, inventory.IsInsufficientStock(err))

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Queijo", stockErr.Shortages[0].IngredientName)

	// The rejected submission leaves no order and no stock change
	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, 5.0, env.quantity(t, env.queijo.ID))
}

func TestSubmitLenientAcceptsShortage(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true, AllowNegative: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 30}},
	})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestCompleteDeductsExactRequirements(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines: []SubmitLine{
			{ProductID: env.pizza.ID, Quantity: 3},
			{ProductID: env.refri.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.Complete(order.ID))

	// 3 pizzas: 0.6kg cheese, 0.3l sauce; 2 sodas: 2 cans
	assert.InDelta(t, 4.4, env.quantity(t, env.queijo.ID), 1e-9)
	assert.InDelta(t, 2.7, env.quantity(t, env.molho.ID), 1e-9)
	assert.Equal(t, 8.0, env.quantity(t, env.lata.ID))

	var stored models.Order
	require.NoError(t, env.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.Complete(order.ID))
	assert.Equal(t, ErrAlreadyCompleted, env.service.Complete(order.ID))

	// Stock deducted exactly once
	assert.InDelta(t, 4.8, env.quantity(t, env.queijo.ID), 1e-9)
}

func TestCompleteAccruesLoyaltyPoints(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName:  "Ana",
		CustomerPhone: "(11) 99999-0000",
		DeliveryFee:   5.50,
		Lines:         []SubmitLine{{ProductID: env.pizza.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, env.service.Complete(order.ID))

	// floor(95.50) = 95 points, keyed by the digits-only phone
	points, err := env.loyalty.Points("11999990000")
	require.NoError(t, err)
	assert.Equal(t, 95, points)
}

func TestCompleteWithoutPhoneSkipsLoyalty(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Balcão",
		Lines:        []SubmitLine{{ProductID: env.refri.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.service.Complete(order.ID))

	var count int64
	env.db.Model(&models.LoyaltyRecord{}).Count(&count)
	assert.Zero(t, count)
}

func TestCompleteStrictRevalidatesStock(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// Stock vanished between checkout and completion
	require.NoError(t, env.db.Model(&models.Ingredient{}).
		Where("id = ?", env.queijo.ID).Update("quantity", 0.1).Error)

	err = env.service.Complete(order.ID)
	require.True(t, inventory.IsInsufficientStock(err))

	// The order stays open and stock is untouched
	var stored models.Order
	require.NoError(t, env.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusNew, stored.Status)
	assert.InDelta(t, 0.1, env.quantity(t, env.queijo.ID), 1e-9)
}

func TestCompleteLenientDrivesStockNegative(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true, AllowNegative: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.refri.ID, Quantity: 15}},
	})
	require.NoError(t, err)
	require.NoError(t, env.service.Complete(order.ID))

	assert.Equal(t, -5.0, env.quantity(t, env.lata.ID))
}

func TestSubmitRejectsNegativeDeliveryFee(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	_, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		DeliveryFee:  -5,
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	assert.Equal(t, ErrInvalidDeliveryFee, err)
}

func TestSubmitRejectsNonPositiveTotal(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	// A fixed coupon swallowing the whole subtotal leaves a zero total
	require.NoError(t, env.db.Create(&models.Coupon{
		Code: "TUDO", Kind: models.CouponKindFixed, Value: 500, Active: true,
	}).Error)

	_, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		CouponCode:   "TUDO",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	assert.Equal(t, ErrInvalidTotal, err)

	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestDeductionRechecksStockAtWriteTime(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	// Another order's completion drained the cheese after this order's
	// checkout validation passed; the deduction must still refuse to
	// drive the quantity negative.
	require.NoError(t, env.db.Model(&models.Ingredient{}).
		Where("id = ?", env.queijo.ID).Update("quantity", 0.1).Error)

	tx := env.db.Begin()
	err := env.service.deduct(tx,
		[]uint{env.queijo.ID},
		map[uint]float64{env.queijo.ID: 0.2},
		map[uint]string{env.queijo.ID: "Pizza Mussarela"})
	tx.Rollback()

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, "Queijo", stockErr.Shortages[0].IngredientName)
	assert.Equal(t, "Pizza Mussarela", stockErr.Shortages[0].ProductName)
	assert.InDelta(t, 0.2, stockErr.Shortages[0].Required, 1e-9)
	assert.InDelta(t, 0.1, stockErr.Shortages[0].OnHand, 1e-9)

	// The rolled-back transaction leaves the ledger untouched
	assert.InDelta(t, 0.1, env.quantity(t, env.queijo.ID), 1e-9)
}

func TestDeductionLenientPolicyGoesNegative(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true, AllowNegative: true})

	require.NoError(t, env.db.Model(&models.Ingredient{}).
		Where("id = ?", env.queijo.ID).Update("quantity", 0.1).Error)

	tx := env.db.Begin()
	err := env.service.deduct(tx,
		[]uint{env.queijo.ID},
		map[uint]float64{env.queijo.ID: 0.2},
		map[uint]string{env.queijo.ID: "Pizza Mussarela"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	assert.InDelta(t, -0.1, env.quantity(t, env.queijo.ID), 1e-9)
}

func TestSetTotalCorrection(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.SetTotal(order.ID, 40))

	var stored models.Order
	require.NoError(t, env.db.First(&stored, order.ID).Error)
	assert.Equal(t, 40.0, stored.Total)

	// Corrections cannot zero out or invert an order
	assert.Equal(t, ErrInvalidTotal, env.service.SetTotal(order.ID, 0))
	assert.Equal(t, ErrInvalidTotal, env.service.SetTotal(order.ID, -10))
	assert.Equal(t, ErrOrderNotFound, env.service.SetTotal(999, 40))
}

func TestAssignCourier(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Notes:        "sem cebola",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.AssignCourier(order.ID, "Carlos"))

	var stored models.Order
	require.NoError(t, env.db.First(&stored, order.ID).Error)
	assert.Equal(t, "Carlos", stored.Meta.Courier)
	// The rest of the metadata survives the update
	assert.Equal(t, "sem cebola", stored.Meta.Notes)

	assert.Equal(t, ErrOrderNotFound, env.service.AssignCourier(999, "Carlos"))
}

func TestCompleteAtExactStockBoundary(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	// 0.2kg on hand, recipe needs 0.2kg per pizza (plus sauce, which is plentiful)
	require.NoError(t, env.db.Model(&models.Ingredient{}).
		Where("id = ?", env.queijo.ID).Update("quantity", 0.2).Error)

	first, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.service.Complete(first.ID))
	assert.InDelta(t, 0.0, env.quantity(t, env.queijo.ID), 1e-9)

	// The next pizza has nothing left to draw on
	_, err = env.service.Submit(SubmitRequest{
		CustomerName: "Bruno",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	assert.True(t, inventory.IsInsufficientStock(err))
}

func TestTransitionRules(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	order, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, ErrInvalidStatus, env.service.Transition(order.ID, "desconhecido"))
	assert.Equal(t, ErrCompletionViaTransition, env.service.Transition(order.ID, models.OrderStatusCompleted))

	require.NoError(t, env.service.Transition(order.ID, models.OrderStatusPreparing))
	require.NoError(t, env.service.Transition(order.ID, models.OrderStatusCancelled))

	// Terminal states are locked
	assert.Equal(t, ErrTerminalState, env.service.Transition(order.ID, models.OrderStatusNew))
	assert.Equal(t, ErrTerminalState, env.service.Complete(order.ID))

	// Cancellation reverses nothing; stock was never deducted
	assert.Equal(t, 5.0, env.quantity(t, env.queijo.ID))
}

func TestQueueReturnsOpenOrdersOldestFirst(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	first, err := env.service.Submit(SubmitRequest{
		CustomerName: "Ana",
		Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	// Distinct placement times for deterministic ordering
	require.NoError(t, env.db.Model(&models.Order{}).Where("id = ?", first.ID).
		Update("placed_at", time.Now().Add(-time.Minute)).Error)

	second, err := env.service.Submit(SubmitRequest{
		CustomerName: "Bruno",
		Lines:        []SubmitLine{{ProductID: env.refri.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	done, err := env.service.Submit(SubmitRequest{
		CustomerName: "Carla",
		Lines:        []SubmitLine{{ProductID: env.refri.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, env.service.Complete(done.ID))

	queue, err := env.service.Queue()
	require.NoError(t, err)

	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)
	assert.Equal(t, second.ID, queue[1].ID)
}

func TestSummaryAggregatesCompletedOrders(t *testing.T) {
	env := newTestEnv(t, inventory.Policy{Enabled: true})

	for i := 0; i < 2; i++ {
		order, err := env.service.Submit(SubmitRequest{
			CustomerName: "Ana",
			Lines:        []SubmitLine{{ProductID: env.pizza.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		require.NoError(t, env.service.Complete(order.ID))
	}

	// Open orders do not count
	_, err := env.service.Submit(SubmitRequest{
		CustomerName: "Bruno",
		Lines:        []SubmitLine{{ProductID: env.refri.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	summary, err := env.service.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Orders)
	assert.Equal(t, 90.0, summary.Revenue)
}
