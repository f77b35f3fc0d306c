package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"colonial/internal/inventory"
	"colonial/internal/models"
)

// formatBRL renders a numeric value in Brazilian currency style
// ("1234.5" -> "R$ 1.234,50"). The core deals only in numbers; this is
// presentation at the edge.
func formatBRL(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	intPart, decPart := parts[0], parts[1]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}

type menuItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	PhotoURL    string `json:"photo_url"`
	SoldOut     bool   `json:"sold_out"`
}

// GetMenu returns the public menu grouped by category. Under an enabled
// inventory policy, resale items with no stock are hidden entirely while
// manufactured items with an exhausted ingredient stay listed but
// flagged sold-out.
func (a *API) GetMenu(c *gin.Context) {
	var categories []models.Category
	if err := a.db.Where("visible = ?", true).Order("sort_order").Find(&categories).Error; err != nil {
		a.renderError(c, err)
		return
	}

	menu := make(map[string][]menuItem)
	for _, cat := range categories {
		var products []models.Product
		if err := a.db.Where("category_id = ? AND visible = ?", cat.ID, true).Find(&products).Error; err != nil {
			a.renderError(c, err)
			return
		}

		var items []menuItem
		for i := range products {
			p := &products[i]
			soldOut := p.SoldOut

			if a.validator.Policy().ChecksDisplay() {
				availability, err := a.resolver.Availability(p)
				if err != nil {
					// A broken stock link means we cannot vouch for the
					// item; keep it off the menu rather than overselling.
					logrus.WithError(err).WithField("product", p.Name).
						Warn("availability check failed, hiding item")
					continue
				}
				switch availability {
				case inventory.Unavailable:
					continue
				case inventory.SoldOut:
					soldOut = true
				}
			}

			items = append(items, menuItem{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				Price:       formatBRL(p.Price),
				PhotoURL:    p.PhotoURL,
				SoldOut:     soldOut,
			})
		}

		if len(items) > 0 {
			menu[cat.Name] = items
		}
	}

	c.JSON(http.StatusOK, menu)
}

// GetBanners returns the active home-page banners in display order.
func (a *API) GetBanners(c *gin.Context) {
	var banners []models.Banner
	if err := a.db.Where("active = ?", true).Order("sort_order").Find(&banners).Error; err != nil {
		a.renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(banners))
	for _, b := range banners {
		out = append(out, gin.H{
			"title":     b.Title,
			"subtitle":  b.Description,
			"image":     b.ImageURL,
			"link_url":  b.LinkURL,
			"link_text": b.LinkText,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ValidateCoupon checks a code against its activity flag and window.
func (a *API) ValidateCoupon(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := a.coupons.Validate(req.Code, time.Now())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"code":        coupon.Code,
		"kind":        coupon.Kind,
		"value":       coupon.Value,
		"description": coupon.Description,
	})
}

// GetLoyaltyPoints returns the balance for a phone number.
func (a *API) GetLoyaltyPoints(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points, err := a.loyalty.Points(req.Phone)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// CreateReservation stores a table reservation request.
func (a *API) CreateReservation(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name" binding:"required"`
		Phone        string `json:"phone" binding:"required"`
		Date         string `json:"date" binding:"required"` // 2006-01-02
		Time         string `json:"time" binding:"required"`
		PartySize    int    `json:"party_size" binding:"required"`
		Notes        string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	if req.PartySize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "party size must be positive"})
		return
	}

	reservation := models.Reservation{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Date:         date,
		Time:         req.Time,
		PartySize:    req.PartySize,
		Notes:        req.Notes,
		Status:       models.ReservationPending,
	}
	if err := a.db.Create(&reservation).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": reservation.ID, "status": reservation.Status})
}
