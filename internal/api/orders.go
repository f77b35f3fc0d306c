package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"colonial/internal/models"
	"colonial/internal/orders"
)

// SubmitOrder handles checkout submissions.
func (a *API) SubmitOrder(c *gin.Context) {
	var req struct {
		CustomerName    string  `json:"customer_name" binding:"required"`
		CustomerPhone   string  `json:"customer_phone"`
		CustomerAddress string  `json:"customer_address"`
		PaymentMethod   string  `json:"payment_method"`
		ShippingMethod  string  `json:"shipping_method"`
		DeliveryFee     float64 `json:"delivery_fee"`
		Notes           string  `json:"notes"`
		CouponCode      string  `json:"coupon"`
		Lines           []struct {
			ProductID uint   `json:"product_id" binding:"required"`
			Quantity  int    `json:"quantity" binding:"required"`
			Notes     string `json:"notes"`
		} `json:"lines" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submit := orders.SubmitRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  req.ShippingMethod,
		DeliveryFee:     req.DeliveryFee,
		Notes:           req.Notes,
		CouponCode:      req.CouponCode,
	}
	for _, line := range req.Lines {
		submit.Lines = append(submit.Lines, orders.SubmitLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Notes:     line.Notes,
		})
	}

	order, err := a.orders.Submit(submit)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.kitchen.NotifyQueueChanged()
	c.JSON(http.StatusCreated, gin.H{
		"order_id": order.ID,
		"code":     order.Code,
		"total":    order.Total,
		"discount": order.Meta.DiscountAmount,
	})
}

// TrackOrder returns an order by its public tracking code.
func (a *API) TrackOrder(c *gin.Context) {
	order, err := a.orders.GetByCode(c.Param("code"))
	if err != nil {
		a.renderError(c, err)
		return
	}

	lines := make([]gin.H, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, gin.H{
			"name":       line.ProductName,
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"code":      order.Code,
		"status":    order.Status,
		"placed_at": order.PlacedAt,
		"total":     order.Total,
		"lines":     lines,
	})
}

// ListOpenOrders returns the kitchen queue oldest-first.
func (a *API) ListOpenOrders(c *gin.Context) {
	queue, err := a.orders.Queue()
	if err != nil {
		a.renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(queue))
	for _, o := range queue {
		items := make([]gin.H, 0, len(o.Lines))
		for _, line := range o.Lines {
			items = append(items, gin.H{"name": line.ProductName, "qty": line.Quantity})
		}
		out = append(out, gin.H{
			"id":        o.ID,
			"timestamp": o.PlacedAt.Format("15:04"),
			"customer":  o.CustomerName,
			"status":    o.Status,
			"items":     items,
			"notes":     o.Meta.Notes,
		})
	}
	c.JSON(http.StatusOK, out)
}

// CompleteOrder runs the completion sequence: stock deduction, loyalty
// accrual, and the status change as one unit of work.
func (a *API) CompleteOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := a.orders.Complete(uint(id)); err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Concluiu pedido #%d", id))
	a.refreshLowStockGauge()
	a.kitchen.NotifyQueueChanged()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TransitionOrder moves an order to another status with no side effects.
func (a *API) TransitionOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.orders.Transition(uint(id), models.OrderStatus(req.Status)); err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Pedido #%d -> %s", id, req.Status))
	a.kitchen.NotifyQueueChanged()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateOrderTotal overwrites an order's total. Staff correction path;
// non-positive values are rejected.
func (a *API) UpdateOrderTotal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req struct {
		Total float64 `json:"total" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.orders.SetTotal(uint(id), req.Total); err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Corrigiu total do pedido #%d", id))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AssignCourier records which courier is delivering an order.
func (a *API) AssignCourier(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req struct {
		Courier string `json:"courier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.orders.AssignCourier(uint(id), req.Courier); err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Atribuiu entregador ao pedido #%d", id))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// actorFrom identifies the staff member behind an admin request. The
// session layer in front of this service sets the header.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "Sistema"
}

// refreshLowStockGauge recalculates the low-stock metric. Best-effort.
func (a *API) refreshLowStockGauge() {
	low, err := a.ledger.LowStock()
	if err != nil {
		return
	}
	a.metrics.LowStockItems.Set(float64(len(low)))
}
