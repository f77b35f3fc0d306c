package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"

	"colonial/internal/models"
)

// --- Ingredients ---

// ListIngredients returns all stock items.
func (a *API) ListIngredients(c *gin.Context) {
	var ingredients []models.Ingredient
	if err := a.db.Order("name").Find(&ingredients).Error; err != nil {
		a.renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(ingredients))
	for _, ing := range ingredients {
		out = append(out, gin.H{
			"id":           ing.ID,
			"name":         ing.Name,
			"unit":         ing.Unit,
			"kind":         ing.Kind,
			"quantity":     ing.Quantity,
			"min_quantity": ing.MinQuantity,
			"unit_cost":    ing.UnitCost,
			"supplier":     ing.Supplier,
			"low":          ing.Quantity <= ing.MinQuantity,
		})
	}
	c.JSON(http.StatusOK, out)
}

// SaveIngredient creates or updates a stock item. Quantities follow the
// admin-form convention of being non-negative here even though the
// ledger itself tolerates negative values.
func (a *API) SaveIngredient(c *gin.Context) {
	var req struct {
		ID          uint    `json:"id"`
		Name        string  `json:"name" binding:"required"`
		Unit        string  `json:"unit"`
		Kind        string  `json:"kind"`
		Quantity    float64 `json:"quantity"`
		MinQuantity float64 `json:"min_quantity"`
		UnitCost    float64 `json:"unit_cost"`
		Supplier    string  `json:"supplier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity < 0 || req.MinQuantity < 0 || req.UnitCost < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "numeric fields must be non-negative"})
		return
	}

	if req.ID != 0 {
		var ing models.Ingredient
		if err := a.db.First(&ing, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
			return
		}
		updates := map[string]interface{}{
			"name":         req.Name,
			"unit":         req.Unit,
			"quantity":     req.Quantity,
			"min_quantity": req.MinQuantity,
			"unit_cost":    req.UnitCost,
			"supplier":     req.Supplier,
			"version":      ing.Version + 1,
		}
		if req.Kind != "" {
			updates["kind"] = req.Kind
		}
		// Same version compare-and-swap as the ledger, so an edit cannot
		// clobber a stock adjustment that landed after our read.
		res := a.db.Model(&models.Ingredient{}).
			Where("id = ? AND version = ?", ing.ID, ing.Version).
			Updates(updates)
		if res.Error != nil {
			a.renderError(c, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "concurrent stock update, retry"})
			return
		}
		a.activity.Record(actorFrom(c), fmt.Sprintf("Editou insumo %s", req.Name))
		c.JSON(http.StatusOK, gin.H{"success": true, "id": ing.ID})
		return
	}

	ing := models.Ingredient{
		Name:        req.Name,
		Unit:        req.Unit,
		Kind:        models.IngredientKind(req.Kind),
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
		UnitCost:    req.UnitCost,
		Supplier:    req.Supplier,
	}
	if ing.Kind == "" {
		ing.Kind = models.IngredientKindInput
	}
	if err := a.db.Create(&ing).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Cadastrou insumo %s", req.Name))
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": ing.ID})
}

// DeleteIngredient removes a stock item unless a recipe line or purchase
// history still references it.
func (a *API) DeleteIngredient(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ingredient id"})
		return
	}

	var ing models.Ingredient
	if err := a.db.First(&ing, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	var refs int64
	a.db.Model(&models.RecipeLine{}).Where("ingredient_id = ?", ing.ID).Count(&refs)
	if refs > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "ingredient is referenced by recipes"})
		return
	}
	a.db.Model(&models.PurchaseItem{}).Where("ingredient_id = ?", ing.ID).Count(&refs)
	if refs > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "ingredient has purchase history"})
		return
	}

	if err := a.db.Delete(&ing).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Removeu insumo %s", ing.Name))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Recipes (ficha técnica) ---

// GetRecipe lists the recipe lines of a product.
func (a *API) GetRecipe(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var lines []models.RecipeLine
	if err := a.db.Preload("Ingredient").Where("product_id = ?", uint(productID)).Find(&lines).Error; err != nil {
		a.renderError(c, err)
		return
	}

	out := make([]gin.H, 0, len(lines))
	for _, line := range lines {
		out = append(out, gin.H{
			"id":            line.ID,
			"ingredient_id": line.IngredientID,
			"ingredient":    line.Ingredient.Name,
			"unit":          line.Ingredient.Unit,
			"quantity":      line.Quantity,
		})
	}
	c.JSON(http.StatusOK, out)
}

// SaveRecipeLine upserts one (product, ingredient) recipe line;
// re-adding an existing pair updates its quantity instead of duplicating.
func (a *API) SaveRecipeLine(c *gin.Context) {
	var req struct {
		ProductID    uint    `json:"product_id" binding:"required"`
		IngredientID uint    `json:"ingredient_id" binding:"required"`
		Quantity     float64 `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	var product models.Product
	if err := a.db.First(&product, req.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if product.Kind != models.ProductKindManufactured {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipes apply only to manufactured products"})
		return
	}
	var ing models.Ingredient
	if err := a.db.First(&ing, req.IngredientID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	var line models.RecipeLine
	err := a.db.Where("product_id = ? AND ingredient_id = ?", req.ProductID, req.IngredientID).First(&line).Error
	if gorm.IsRecordNotFoundError(err) {
		line = models.RecipeLine{
			ProductID:    req.ProductID,
			IngredientID: req.IngredientID,
			Quantity:     req.Quantity,
		}
		if err := a.db.Create(&line).Error; err != nil {
			a.renderError(c, err)
			return
		}
	} else if err != nil {
		a.renderError(c, err)
		return
	} else {
		if err := a.db.Model(&line).Update("quantity", req.Quantity).Error; err != nil {
			a.renderError(c, err)
			return
		}
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Atualizou receita de %s", product.Name))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteRecipeLine removes one (product, ingredient) pair.
func (a *API) DeleteRecipeLine(c *gin.Context) {
	var req struct {
		ProductID    uint `json:"product_id" binding:"required"`
		IngredientID uint `json:"ingredient_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var line models.RecipeLine
	err := a.db.Where("product_id = ? AND ingredient_id = ?", req.ProductID, req.IngredientID).First(&line).Error
	if gorm.IsRecordNotFoundError(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe line not found"})
		return
	}
	if err != nil {
		a.renderError(c, err)
		return
	}

	if err := a.db.Delete(&line).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Catalog ---

// ListCategories returns every category including hidden ones.
func (a *API) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := a.db.Order("sort_order").Find(&categories).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// SaveCategory creates or updates a category.
func (a *API) SaveCategory(c *gin.Context) {
	var req struct {
		ID        uint   `json:"id"`
		Name      string `json:"name" binding:"required"`
		SortOrder int    `json:"sort_order"`
		Visible   *bool  `json:"visible"`
		ShowPrice *bool  `json:"show_price"`
		PhotoURL  string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}
	showPrice := true
	if req.ShowPrice != nil {
		showPrice = *req.ShowPrice
	}

	if req.ID != 0 {
		var cat models.Category
		if err := a.db.First(&cat, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		updates := map[string]interface{}{
			"name":       req.Name,
			"sort_order": req.SortOrder,
			"visible":    visible,
			"show_price": showPrice,
			"photo_url":  req.PhotoURL,
		}
		if err := a.db.Model(&cat).Updates(updates).Error; err != nil {
			a.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": cat.ID})
		return
	}

	cat := models.Category{
		Name:      req.Name,
		SortOrder: req.SortOrder,
		Visible:   visible,
		ShowPrice: showPrice,
		PhotoURL:  req.PhotoURL,
	}
	if err := a.db.Create(&cat).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": cat.ID})
}

// DeleteCategory removes a category once it has no products left.
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	var cat models.Category
	if err := a.db.First(&cat, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var refs int64
	a.db.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&refs)
	if refs > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "category still has products"})
		return
	}

	if err := a.db.Delete(&cat).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListProducts returns the full catalog for the admin console.
func (a *API) ListProducts(c *gin.Context) {
	var products []models.Product
	if err := a.db.Order("name").Find(&products).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// SaveProduct creates or updates a product. A resale product must link
// an ingredient; a manufactured one must not.
func (a *API) SaveProduct(c *gin.Context) {
	var req struct {
		ID           uint    `json:"id"`
		CategoryID   uint    `json:"category_id" binding:"required"`
		Name         string  `json:"name" binding:"required"`
		Description  string  `json:"description"`
		Price        float64 `json:"price" binding:"required"`
		PhotoURL     string  `json:"photo_url"`
		Visible      *bool   `json:"visible"`
		SoldOut      bool    `json:"sold_out"`
		Kind         string  `json:"kind"`
		IngredientID *uint   `json:"ingredient_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}

	kind := models.ProductKind(req.Kind)
	if kind == "" {
		kind = models.ProductKindManufactured
	}
	if kind != models.ProductKindManufactured && kind != models.ProductKindResale {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product kind"})
		return
	}
	if kind == models.ProductKindResale && req.IngredientID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resale product requires an ingredient link"})
		return
	}
	if kind == models.ProductKindManufactured {
		req.IngredientID = nil
	}

	var cat models.Category
	if err := a.db.First(&cat, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	if req.ID != 0 {
		var product models.Product
		if err := a.db.First(&product, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		updates := map[string]interface{}{
			"category_id":   req.CategoryID,
			"name":          req.Name,
			"description":   req.Description,
			"price":         req.Price,
			"photo_url":     req.PhotoURL,
			"visible":       visible,
			"sold_out":      req.SoldOut,
			"kind":          kind,
			"ingredient_id": req.IngredientID,
		}
		if err := a.db.Model(&product).Updates(updates).Error; err != nil {
			a.renderError(c, err)
			return
		}
		a.activity.Record(actorFrom(c), fmt.Sprintf("Editou produto %s", req.Name))
		c.JSON(http.StatusOK, gin.H{"success": true, "id": product.ID})
		return
	}

	product := models.Product{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		PhotoURL:     req.PhotoURL,
		Visible:      visible,
		SoldOut:      req.SoldOut,
		Kind:         kind,
		IngredientID: req.IngredientID,
	}
	if err := a.db.Create(&product).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Cadastrou produto %s", req.Name))
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": product.ID})
}

// DeleteProduct removes a product and its recipe lines. Order lines keep
// their name snapshot so history survives.
func (a *API) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var product models.Product
	if err := a.db.First(&product, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	tx := a.db.Begin()
	if err := tx.Where("product_id = ?", product.ID).Delete(&models.RecipeLine{}).Error; err != nil {
		tx.Rollback()
		a.renderError(c, err)
		return
	}
	if err := tx.Delete(&product).Error; err != nil {
		tx.Rollback()
		a.renderError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Removeu produto %s", product.Name))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Coupons ---

// ListCoupons returns all coupons.
func (a *API) ListCoupons(c *gin.Context) {
	var out []models.Coupon
	if err := a.db.Order("code").Find(&out).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SaveCoupon creates or updates a coupon.
func (a *API) SaveCoupon(c *gin.Context) {
	var req struct {
		ID          uint       `json:"id"`
		Code        string     `json:"code" binding:"required"`
		Kind        string     `json:"kind" binding:"required"`
		Value       float64    `json:"value" binding:"required"`
		Description string     `json:"description"`
		Active      *bool      `json:"active"`
		ValidFrom   *time.Time `json:"valid_from"`
		ValidUntil  *time.Time `json:"valid_until"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := models.CouponKind(req.Kind)
	if kind != models.CouponKindPercentage && kind != models.CouponKindFixed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown coupon kind"})
		return
	}
	if req.Value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be positive"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if req.ID != 0 {
		var coupon models.Coupon
		if err := a.db.First(&coupon, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
			return
		}
		updates := map[string]interface{}{
			"code":        req.Code,
			"kind":        kind,
			"value":       req.Value,
			"description": req.Description,
			"active":      active,
			"valid_from":  req.ValidFrom,
			"valid_until": req.ValidUntil,
		}
		if err := a.db.Model(&coupon).Updates(updates).Error; err != nil {
			a.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": coupon.ID})
		return
	}

	coupon := models.Coupon{
		Code:        req.Code,
		Kind:        kind,
		Value:       req.Value,
		Description: req.Description,
		Active:      active,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
	}
	if err := a.db.Create(&coupon).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Criou cupom %s", req.Code))
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": coupon.ID})
}

// DeleteCoupon removes a coupon. Usage records keep their own copy of
// the applied discount, so past orders are unaffected.
func (a *API) DeleteCoupon(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	var coupon models.Coupon
	if err := a.db.First(&coupon, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
		return
	}

	if err := a.db.Delete(&coupon).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Removeu cupom %s", coupon.Code))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Loyalty ---

// ListLoyalty returns loyalty balances, optionally filtered by phone.
func (a *API) ListLoyalty(c *gin.Context) {
	records, err := a.loyalty.List(c.Query("q"))
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// SetLoyaltyPoints overwrites a balance. This is the audited admin
// correction path, separate from order accrual.
func (a *API) SetLoyaltyPoints(c *gin.Context) {
	var req struct {
		Phone  string `json:"phone" binding:"required"`
		Points int    `json:"points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Points < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "points must be non-negative"})
		return
	}

	total, err := a.loyalty.Set(req.Phone, req.Points)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Ajustou pontos de %s para %d", req.Phone, req.Points))
	c.JSON(http.StatusOK, gin.H{"success": true, "points": total})
}

// --- Purchasing ---

// ListSuppliers returns all suppliers.
func (a *API) ListSuppliers(c *gin.Context) {
	var out []models.Supplier
	if err := a.db.Order("company_name").Find(&out).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SaveSupplier creates or updates a supplier.
func (a *API) SaveSupplier(c *gin.Context) {
	var req struct {
		ID          uint   `json:"id"`
		CompanyName string `json:"company_name" binding:"required"`
		TaxID       string `json:"tax_id"`
		ContactName string `json:"contact_name"`
		Phone       string `json:"phone"`
		Email       string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID != 0 {
		var supplier models.Supplier
		if err := a.db.First(&supplier, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		updates := map[string]interface{}{
			"company_name": req.CompanyName,
			"tax_id":       req.TaxID,
			"contact_name": req.ContactName,
			"phone":        req.Phone,
			"email":        req.Email,
		}
		if err := a.db.Model(&supplier).Updates(updates).Error; err != nil {
			a.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": supplier.ID})
		return
	}

	supplier := models.Supplier{
		CompanyName: req.CompanyName,
		TaxID:       req.TaxID,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
	}
	if err := a.db.Create(&supplier).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": supplier.ID})
}

// DeleteSupplier removes a supplier unless purchases reference it.
func (a *API) DeleteSupplier(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	var supplier models.Supplier
	if err := a.db.First(&supplier, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		return
	}

	var refs int64
	a.db.Model(&models.Purchase{}).Where("supplier_id = ?", supplier.ID).Count(&refs)
	if refs > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "supplier has purchase history"})
		return
	}

	if err := a.db.Delete(&supplier).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListPurchases returns purchase history with items.
func (a *API) ListPurchases(c *gin.Context) {
	var out []models.Purchase
	if err := a.db.Preload("Items").Order("purchased_at desc").Find(&out).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreatePurchase records a received purchase and applies its stock
// increments and cost updates in one transaction.
func (a *API) CreatePurchase(c *gin.Context) {
	var req struct {
		SupplierID    *uint  `json:"supplier_id"`
		InvoiceNumber string `json:"invoice_number"`
		Notes         string `json:"notes"`
		Items         []struct {
			IngredientID uint    `json:"ingredient_id" binding:"required"`
			Quantity     float64 `json:"quantity" binding:"required"`
			UnitPrice    float64 `json:"unit_price" binding:"required"`
		} `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purchase has no items"})
		return
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item quantity or price"})
			return
		}
	}

	purchase := models.Purchase{
		SupplierID:    req.SupplierID,
		PurchasedAt:   time.Now(),
		InvoiceNumber: req.InvoiceNumber,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		subtotal := item.Quantity * item.UnitPrice
		purchase.Items = append(purchase.Items, models.PurchaseItem{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     subtotal,
		})
		purchase.Total += subtotal
	}

	tx := a.db.Begin()
	if err := tx.Create(&purchase).Error; err != nil {
		tx.Rollback()
		a.renderError(c, err)
		return
	}
	for i := range purchase.Items {
		purchase.Items[i].PurchaseID = purchase.ID
		if err := tx.Save(&purchase.Items[i]).Error; err != nil {
			tx.Rollback()
			a.renderError(c, err)
			return
		}
	}
	if err := a.ledger.ReceivePurchase(tx, purchase.Items); err != nil {
		tx.Rollback()
		a.renderError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		a.renderError(c, err)
		return
	}

	a.activity.Record(actorFrom(c), fmt.Sprintf("Registrou compra #%d", purchase.ID))
	a.refreshLowStockGauge()
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": purchase.ID, "total": purchase.Total})
}

// --- Banners ---

// ListBannersAdmin returns all banners including inactive ones.
func (a *API) ListBannersAdmin(c *gin.Context) {
	var out []models.Banner
	if err := a.db.Order("sort_order").Find(&out).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SaveBanner creates or updates a banner.
func (a *API) SaveBanner(c *gin.Context) {
	var req struct {
		ID          uint   `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url" binding:"required"`
		LinkURL     string `json:"link_url"`
		LinkText    string `json:"link_text"`
		SortOrder   int    `json:"sort_order"`
		Active      *bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if req.ID != 0 {
		var banner models.Banner
		if err := a.db.First(&banner, req.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
			return
		}
		updates := map[string]interface{}{
			"title":       req.Title,
			"description": req.Description,
			"image_url":   req.ImageURL,
			"link_url":    req.LinkURL,
			"link_text":   req.LinkText,
			"sort_order":  req.SortOrder,
			"active":      active,
		}
		if err := a.db.Model(&banner).Updates(updates).Error; err != nil {
			a.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": banner.ID})
		return
	}

	banner := models.Banner{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		LinkURL:     req.LinkURL,
		LinkText:    req.LinkText,
		SortOrder:   req.SortOrder,
		Active:      active,
	}
	if err := a.db.Create(&banner).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), "Atualizou banners da home")
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": banner.ID})
}

// DeleteBanner removes a banner.
func (a *API) DeleteBanner(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid banner id"})
		return
	}

	var banner models.Banner
	if err := a.db.First(&banner, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
		return
	}

	if err := a.db.Delete(&banner).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Reservations ---

// ListReservations returns reservations newest-first.
func (a *API) ListReservations(c *gin.Context) {
	var out []models.Reservation
	if err := a.db.Order("date desc, time desc").Find(&out).Error; err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UpdateReservationStatus confirms, cancels, or closes a reservation.
func (a *API) UpdateReservationStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.ReservationStatus(req.Status)
	switch status {
	case models.ReservationPending, models.ReservationConfirmed,
		models.ReservationCancelled, models.ReservationDone:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reservation status"})
		return
	}

	var reservation models.Reservation
	if err := a.db.First(&reservation, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	if err := a.db.Model(&reservation).Update("status", status).Error; err != nil {
		a.renderError(c, err)
		return
	}
	a.activity.Record(actorFrom(c), fmt.Sprintf("Reserva #%d -> %s", id, status))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Reports ---

// SalesReport aggregates completed orders.
func (a *API) SalesReport(c *gin.Context) {
	summary, err := a.orders.Summary()
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// LowStockReport lists ingredients at or below their minimum threshold.
// Alerting on these is best-effort and never part of any transaction.
func (a *API) LowStockReport(c *gin.Context) {
	low, err := a.ledger.LowStock()
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.metrics.LowStockItems.Set(float64(len(low)))
	for _, ing := range low {
		logrus.WithFields(logrus.Fields{
			"ingredient": ing.Name,
			"quantity":   ing.Quantity,
			"minimum":    ing.MinQuantity,
		}).Warn("ingredient below minimum stock")
	}

	out := make([]gin.H, 0, len(low))
	for _, ing := range low {
		out = append(out, gin.H{
			"id":           ing.ID,
			"name":         ing.Name,
			"unit":         ing.Unit,
			"quantity":     ing.Quantity,
			"min_quantity": ing.MinQuantity,
			"supplier":     ing.Supplier,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetActivityLog returns recent audit entries.
func (a *API) GetActivityLog(c *gin.Context) {
	limit := 100
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}
	entries, err := a.activity.Recent(limit)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
