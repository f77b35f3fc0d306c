// Package api exposes the JSON surface: public menu, checkout and order
// tracking, plus the back-office admin routes.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"

	"colonial/internal/activity"
	"colonial/internal/coupons"
	"colonial/internal/inventory"
	"colonial/internal/loyalty"
	"colonial/internal/monitoring"
	"colonial/internal/orders"
)

// API represents the main HTTP handler for the service
type API struct {
	Router    *gin.Engine
	db        *gorm.DB
	orders    *orders.Service
	ledger    *inventory.Ledger
	resolver  *inventory.Resolver
	validator *inventory.Validator
	coupons   *coupons.Engine
	loyalty   *loyalty.Ledger
	activity  *activity.Logger
	metrics   *monitoring.Metrics
	kitchen   *KitchenHub
}

// New creates the API with all domain services wired in.
func New(db *gorm.DB, orderService *orders.Service, ledger *inventory.Ledger,
	resolver *inventory.Resolver, validator *inventory.Validator,
	couponEngine *coupons.Engine, loyaltyLedger *loyalty.Ledger,
	activityLog *activity.Logger, metrics *monitoring.Metrics) *API {
	a := &API{
		Router:    gin.Default(),
		db:        db,
		orders:    orderService,
		ledger:    ledger,
		resolver:  resolver,
		validator: validator,
		coupons:   couponEngine,
		loyalty:   loyaltyLedger,
		activity:  activityLog,
		metrics:   metrics,
		kitchen:   NewKitchenHub(orderService),
	}

	a.setupRoutes()
	go a.kitchen.Run()
	return a
}

// setupRoutes configures all API endpoints
func (a *API) setupRoutes() {
	a.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	a.Router.GET("/ws/kitchen", a.kitchen.Handle)

	api := a.Router.Group("/api")
	{
		api.GET("/menu", a.GetMenu)
		api.GET("/banners", a.GetBanners)
		api.POST("/orders", a.SubmitOrder)
		api.GET("/orders/:code", a.TrackOrder)
		api.POST("/coupons/validate", a.ValidateCoupon)
		api.POST("/loyalty/points", a.GetLoyaltyPoints)
		api.POST("/reservations", a.CreateReservation)
	}

	admin := a.Router.Group("/api/admin")
	{
		admin.GET("/orders", a.ListOpenOrders)
		admin.POST("/orders/:id/complete", a.CompleteOrder)
		admin.POST("/orders/:id/status", a.TransitionOrder)
		admin.POST("/orders/:id/total", a.UpdateOrderTotal)
		admin.POST("/orders/:id/courier", a.AssignCourier)

		admin.GET("/ingredients", a.ListIngredients)
		admin.POST("/ingredients", a.SaveIngredient)
		admin.DELETE("/ingredients/:id", a.DeleteIngredient)

		admin.GET("/recipes/:productId", a.GetRecipe)
		admin.POST("/recipes", a.SaveRecipeLine)
		admin.DELETE("/recipes", a.DeleteRecipeLine)

		admin.GET("/categories", a.ListCategories)
		admin.POST("/categories", a.SaveCategory)
		admin.DELETE("/categories/:id", a.DeleteCategory)
		admin.GET("/products", a.ListProducts)
		admin.POST("/products", a.SaveProduct)
		admin.DELETE("/products/:id", a.DeleteProduct)

		admin.GET("/coupons", a.ListCoupons)
		admin.POST("/coupons", a.SaveCoupon)
		admin.DELETE("/coupons/:id", a.DeleteCoupon)

		admin.GET("/loyalty", a.ListLoyalty)
		admin.POST("/loyalty/set", a.SetLoyaltyPoints)

		admin.GET("/suppliers", a.ListSuppliers)
		admin.POST("/suppliers", a.SaveSupplier)
		admin.DELETE("/suppliers/:id", a.DeleteSupplier)
		admin.GET("/purchases", a.ListPurchases)
		admin.POST("/purchases", a.CreatePurchase)

		admin.GET("/banners", a.ListBannersAdmin)
		admin.POST("/banners", a.SaveBanner)
		admin.DELETE("/banners/:id", a.DeleteBanner)

		admin.GET("/reservations", a.ListReservations)
		admin.POST("/reservations/:id/status", a.UpdateReservationStatus)

		admin.GET("/reports/sales", a.SalesReport)
		admin.GET("/reports/low-stock", a.LowStockReport)
		admin.GET("/activity", a.GetActivityLog)
	}
}

// renderError maps domain errors onto HTTP responses.
func (a *API) renderError(c *gin.Context, err error) {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": "insufficient stock",
			"lines": stockErr.Shortages,
		})
	case inventory.IsVersionConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent stock update, retry"})
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrIngredientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrAlreadyCompleted),
		errors.Is(err, orders.ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrInvalidCoupon),
		errors.Is(err, orders.ErrInvalidDeliveryFee),
		errors.Is(err, orders.ErrInvalidTotal),
		errors.Is(err, orders.ErrCompletionViaTransition),
		errors.Is(err, loyalty.ErrNoPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
