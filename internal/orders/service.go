// Package orders owns the order lifecycle: checkout submission, status
// transitions, and the completion sequence that deducts stock and
// accrues loyalty points as one unit of work.
package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"colonial/internal/coupons"
	"colonial/internal/inventory"
	"colonial/internal/loyalty"
	"colonial/internal/models"
	"colonial/internal/monitoring"
)

// completion retries on optimistic-lock conflicts before giving up
const maxCompletionRetries = 3

// Service coordinates the order lifecycle against the store.
type Service struct {
	db        *gorm.DB
	ledger    *inventory.Ledger
	resolver  *inventory.Resolver
	validator *inventory.Validator
	coupons   *coupons.Engine
	loyalty   *loyalty.Ledger
	metrics   *monitoring.Metrics
	log       *logrus.Entry
}

// NewService wires the order lifecycle engine.
func NewService(db *gorm.DB, ledger *inventory.Ledger, resolver *inventory.Resolver,
	validator *inventory.Validator, couponEngine *coupons.Engine,
	loyaltyLedger *loyalty.Ledger, metrics *monitoring.Metrics) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		resolver:  resolver,
		validator: validator,
		coupons:   couponEngine,
		loyalty:   loyaltyLedger,
		metrics:   metrics,
		log:       logrus.WithField("component", "orders"),
	}
}

// SubmitLine is one requested item at checkout.
type SubmitLine struct {
	ProductID uint
	Quantity  int
	Notes     string
}

// SubmitRequest carries a checkout submission.
type SubmitRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PaymentMethod   string
	ShippingMethod  string
	DeliveryFee     float64
	Notes           string
	CouponCode      string
	Lines           []SubmitLine
}

// Submit validates a checkout and persists the order, its lines, and at
// most one coupon usage row in a single transaction. Any failing line
// rejects the whole submission; no partial orders.
func (s *Service) Submit(req SubmitRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.DeliveryFee < 0 {
		return nil, ErrInvalidDeliveryFee
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	// Price lines from the catalog, snapshotting name and unit price.
	var orderLines []models.OrderLine
	var subtotal float64
	for _, line := range req.Lines {
		var product models.Product
		if err := s.db.First(&product, line.ProductID).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return nil, inventory.ErrProductNotFound
			}
			return nil, err
		}
		productID := product.ID
		orderLines = append(orderLines, models.OrderLine{
			ProductName: product.Name,
			ProductID:   &productID,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Notes:       line.Notes,
		})
		subtotal += product.Price * float64(line.Quantity)
	}

	// Server-side coupon validation; a bad code rejects the submission.
	var coupon *models.Coupon
	var discount float64
	if req.CouponCode != "" {
		c, err := s.coupons.Validate(req.CouponCode, time.Now())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCoupon, err)
		}
		coupon = c
		discount = coupons.Discount(subtotal, coupon)
	}

	// Checkout-time stock validation under the active policy.
	lineReqs := make([]inventory.LineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineReqs = append(lineReqs, inventory.LineRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	if err := s.validator.ValidateLines(lineReqs); err != nil {
		if inventory.IsInsufficientStock(err) {
			s.metrics.StockRejections.Inc()
		}
		return nil, err
	}

	total := subtotal - discount + req.DeliveryFee
	if total <= 0 {
		return nil, ErrInvalidTotal
	}

	order := models.Order{
		Code:            uuid.New().String(),
		PlacedAt:        time.Now(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Status:          models.OrderStatusNew,
		PaymentMethod:   req.PaymentMethod,
		Total:           total,
		Meta: models.OrderMeta{
			DeliveryFee:    req.DeliveryFee,
			CouponCode:     req.CouponCode,
			DiscountAmount: discount,
			ShippingMethod: req.ShippingMethod,
			Notes:          req.Notes,
		},
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range orderLines {
		orderLines[i].OrderID = order.ID
		if err := tx.Create(&orderLines[i]).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("create order line: %w", err)
		}
	}
	if coupon != nil && discount > 0 {
		if err := s.coupons.RecordUsage(tx, coupon.ID, order.ID, discount); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("record coupon usage: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	order.Lines = orderLines
	s.metrics.OrdersSubmitted.Inc()
	if coupon != nil && discount > 0 {
		s.metrics.CouponsApplied.Inc()
	}
	s.log.WithFields(logrus.Fields{
		"order": order.ID,
		"total": order.Total,
		"lines": len(order.Lines),
	}).Info("order submitted")

	return &order, nil
}

// Complete transitions an order to concluido. In one transaction it
// re-validates stock under the active policy, deducts every required
// ingredient, accrues floor(total) loyalty points for the customer's
// phone, and flips the status. Nothing is applied partially; lost
// optimistic-lock races are retried as a whole.
func (s *Service) Complete(orderID uint) error {
	var err error
	for attempt := 0; attempt < maxCompletionRetries; attempt++ {
		err = s.completeOnce(orderID)
		if !inventory.IsVersionConflict(err) {
			return err
		}
		s.metrics.VersionConflicts.Inc()
		s.log.WithField("order", orderID).Warn("stock version conflict, retrying completion")
	}
	return err
}

func (s *Service) completeOnce(orderID uint) error {
	var order models.Order
	if err := s.db.Preload("Lines").First(&order, orderID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status == models.OrderStatusCompleted {
		return ErrAlreadyCompleted
	}
	if order.Status.Terminal() {
		return ErrTerminalState
	}

	// Strict-mode recheck: stock may have been exhausted by other orders
	// between creation and completion. A rejection leaves the order in
	// its prior state.
	lineReqs := make([]inventory.LineRequest, 0, len(order.Lines))
	for _, line := range order.Lines {
		if line.ProductID == nil {
			continue
		}
		lineReqs = append(lineReqs, inventory.LineRequest{
			ProductID: *line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	if err := s.validator.ValidateLines(lineReqs); err != nil {
		if inventory.IsInsufficientStock(err) {
			s.metrics.StockRejections.Inc()
		}
		return err
	}

	// Sum requirements per ingredient across all lines so a shared
	// ingredient is adjusted once with the combined quantity.
	totals := make(map[uint]float64)
	products := make(map[uint]string)
	ingredientIDs := make([]uint, 0)
	for _, line := range order.Lines {
		if line.ProductID == nil {
			continue
		}
		reqs, err := s.resolver.Required(*line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			if _, ok := totals[req.IngredientID]; !ok {
				ingredientIDs = append(ingredientIDs, req.IngredientID)
				products[req.IngredientID] = line.ProductName
			}
			totals[req.IngredientID] += req.Quantity
		}
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := s.deduct(tx, ingredientIDs, totals, products); err != nil {
		tx.Rollback()
		if inventory.IsInsufficientStock(err) {
			s.metrics.StockRejections.Inc()
		}
		return err
	}

	points := int(order.Total)
	phone := loyalty.NormalizePhone(order.CustomerPhone)
	if phone != "" && points > 0 {
		if _, err := s.loyalty.Add(tx, phone, points); err != nil {
			tx.Rollback()
			return fmt.Errorf("accrue loyalty points: %w", err)
		}
	}

	now := time.Now()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status NOT IN (?)", order.ID,
			[]models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled}).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another request completed or cancelled the order meanwhile.
		tx.Rollback()
		return ErrAlreadyCompleted
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.metrics.OrdersCompleted.Inc()
	if points > 0 && phone != "" {
		s.metrics.LoyaltyPointsTotal.Add(float64(points))
	}
	s.log.WithFields(logrus.Fields{
		"order":  order.ID,
		"total":  order.Total,
		"points": points,
	}).Info("order completed")

	return nil
}

// deduct applies the aggregated stock deductions inside tx. The blocking
// policy is enforced again here, against the quantity Adjust itself
// read: checkout validation runs before the transaction opens, and a
// concurrent completion can drain an ingredient in that window without
// tripping the version check, which only covers Adjust's own
// read-modify-write.
func (s *Service) deduct(tx *gorm.DB, ingredientIDs []uint, totals map[uint]float64, products map[uint]string) error {
	for _, ingID := range ingredientIDs {
		newQty, err := s.ledger.Adjust(tx, ingID, -totals[ingID])
		if err != nil {
			return err
		}
		if newQty < 0 && s.validator.Policy().Blocks() {
			var ing models.Ingredient
			name := ""
			if err := tx.First(&ing, ingID).Error; err == nil {
				name = ing.Name
			}
			return &inventory.InsufficientStockError{Shortages: []inventory.Shortage{{
				ProductName:    products[ingID],
				IngredientName: name,
				Required:       totals[ingID],
				OnHand:         newQty + totals[ingID],
			}}}
		}
	}
	return nil
}

// Transition moves an order to a non-terminal status or cancels it.
// This is a plain field update: cancellation deliberately reverses
// neither stock nor loyalty points.
func (s *Service) Transition(orderID uint, status models.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if status == models.OrderStatusCompleted {
		return ErrCompletionViaTransition
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.Status.Terminal() {
		return ErrTerminalState
	}

	if err := s.db.Model(&order).Update("status", status).Error; err != nil {
		return err
	}
	if status == models.OrderStatusCancelled {
		s.metrics.OrdersCancelled.Inc()
	}
	return nil
}

// SetTotal overwrites an order's total. This is the staff correction
// path; it does not touch lines or re-run coupon math.
func (s *Service) SetTotal(orderID uint, total float64) error {
	if total <= 0 {
		return ErrInvalidTotal
	}

	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return ErrOrderNotFound
		}
		return err
	}

	return s.db.Model(&order).Update("total", total).Error
}

// AssignCourier records the courier on the order metadata.
func (s *Service) AssignCourier(orderID uint, courier string) error {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return ErrOrderNotFound
		}
		return err
	}

	order.Meta.Courier = courier
	return s.db.Model(&order).Update("meta", order.Meta).Error
}

// Get returns an order with its lines by internal ID.
func (s *Service) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Lines").First(&order, orderID).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByCode returns an order by its public tracking code.
func (s *Service) GetByCode(code string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Lines").Where("code = ?", code).First(&order).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Queue returns the open orders oldest-first for the kitchen monitor.
func (s *Service) Queue() ([]models.Order, error) {
	var out []models.Order
	err := s.db.Preload("Lines").
		Where("status NOT IN (?)", []models.OrderStatus{
			models.OrderStatusCompleted, models.OrderStatusCancelled,
		}).
		Order("placed_at asc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SalesSummary aggregates completed orders.
type SalesSummary struct {
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// Summary reports count and revenue across completed orders.
func (s *Service) Summary() (SalesSummary, error) {
	var sum SalesSummary
	row := s.db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusCompleted).
		Select("COUNT(*), COALESCE(SUM(total), 0)").Row()
	if err := row.Scan(&sum.Orders, &sum.Revenue); err != nil {
		return SalesSummary{}, err
	}
	return sum, nil
}
