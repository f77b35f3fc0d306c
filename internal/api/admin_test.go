package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonial/internal/inventory"
	"colonial/internal/models"
)

func TestIngredientDeleteGuards(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	env.seedMenu(t, 5, 10)

	var queijo models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Queijo").First(&queijo).Error)

	// Referenced by the pizza recipe, so deletion conflicts
	w := env.request(t, "DELETE", fmt.Sprintf("/api/admin/ingredients/%d", queijo.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// An unreferenced ingredient deletes fine
	solto := models.Ingredient{Name: "Orégano", Unit: "g", Quantity: 100}
	require.NoError(t, env.db.Create(&solto).Error)
	w = env.request(t, "DELETE", fmt.Sprintf("/api/admin/ingredients/%d", solto.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaveIngredientEditBumpsVersion(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	env.seedMenu(t, 5, 10)

	var queijo models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Queijo").First(&queijo).Error)

	w := env.request(t, "POST", "/api/admin/ingredients", gin.H{
		"id":           queijo.ID,
		"name":         "Queijo Mussarela",
		"unit":         "kg",
		"quantity":     7.5,
		"min_quantity": 2.0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The edit lands through the same version CAS the ledger uses
	var stored models.Ingredient
	require.NoError(t, env.db.First(&stored, queijo.ID).Error)
	assert.Equal(t, "Queijo Mussarela", stored.Name)
	assert.Equal(t, 7.5, stored.Quantity)
	assert.Equal(t, queijo.Version+1, stored.Version)
}

func TestOrderCorrectionEndpoints(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	pizza, _ := env.seedMenu(t, 5, 10)

	w := env.request(t, "POST", "/api/orders", gin.H{
		"customer_name": "Ana",
		"lines":         []gin.H{{"product_id": pizza.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	require.NoError(t, env.db.First(&order).Error)

	// Total correction, rejected when non-positive
	w = env.request(t, "POST", fmt.Sprintf("/api/admin/orders/%d/total", order.ID), gin.H{"total": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, "POST", fmt.Sprintf("/api/admin/orders/%d/total", order.ID), gin.H{"total": 52.5})
	require.Equal(t, http.StatusOK, w.Code)

	// Courier assignment lands in the order metadata
	w = env.request(t, "POST", fmt.Sprintf("/api/admin/orders/%d/courier", order.ID), gin.H{"courier": "Carlos"})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.First(&order, order.ID).Error)
	assert.Equal(t, 52.5, order.Total)
	assert.Equal(t, "Carlos", order.Meta.Courier)

	// Both corrections are audited
	var entries int64
	env.db.Model(&models.ActivityEntry{}).Count(&entries)
	assert.Equal(t, int64(2), entries)
}

func TestSaveRecipeLineUpserts(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	pizza, _ := env.seedMenu(t, 5, 10)

	var queijo models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Queijo").First(&queijo).Error)

	// Re-adding the existing pair updates the quantity in place
	w := env.request(t, "POST", "/api/admin/recipes", gin.H{
		"product_id":    pizza.ID,
		"ingredient_id": queijo.ID,
		"quantity":      0.35,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var lines []models.RecipeLine
	require.NoError(t, env.db.Where("product_id = ? AND ingredient_id = ?", pizza.ID, queijo.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.InDelta(t, 0.35, lines[0].Quantity, 1e-9)
}

func TestSaveRecipeLineRejectsResaleProduct(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	_, refri := env.seedMenu(t, 5, 10)

	var queijo models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Queijo").First(&queijo).Error)

	w := env.request(t, "POST", "/api/admin/recipes", gin.H{
		"product_id":    refri.ID,
		"ingredient_id": queijo.ID,
		"quantity":      0.1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveProductKindRules(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	env.seedMenu(t, 5, 10)

	var cat models.Category
	require.NoError(t, env.db.First(&cat).Error)

	// Resale without an ingredient link is rejected
	w := env.request(t, "POST", "/api/admin/products", gin.H{
		"category_id": cat.ID,
		"name":        "Água",
		"price":       4.0,
		"kind":        "revenda",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// With the link it goes through
	var lata models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Refrigerante Lata").First(&lata).Error)
	w = env.request(t, "POST", "/api/admin/products", gin.H{
		"category_id":   cat.ID,
		"name":          "Água",
		"price":         4.0,
		"kind":          "revenda",
		"ingredient_id": lata.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePurchaseReceivesStock(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	env.seedMenu(t, 5, 10)

	var queijo models.Ingredient
	require.NoError(t, env.db.Where("name = ?", "Queijo").First(&queijo).Error)

	w := env.request(t, "POST", "/api/admin/purchases", gin.H{
		"invoice_number": "NF-1042",
		"items": []gin.H{
			{"ingredient_id": queijo.ID, "quantity": 10, "unit_price": 32.9},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 329.0, resp["total"])

	// Stock and unit cost reflect the receipt
	require.NoError(t, env.db.First(&queijo, queijo.ID).Error)
	assert.Equal(t, 15.0, queijo.Quantity)
	assert.Equal(t, 32.9, queijo.UnitCost)
}

func TestSetLoyaltyPointsIsAudited(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})

	w := env.request(t, "POST", "/api/admin/loyalty/set", gin.H{
		"phone":  "(11) 99999-0000",
		"points": 120,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var entry models.ActivityEntry
	require.NoError(t, env.db.First(&entry).Error)
	assert.Contains(t, entry.Action, "pontos")

	// Digitless phones are rejected before touching the ledger
	w = env.request(t, "POST", "/api/admin/loyalty/set", gin.H{
		"phone":  "---",
		"points": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLowStockReportEndpoint(t *testing.T) {
	env := newTestAPI(t, inventory.Policy{Enabled: true})
	env.seedMenu(t, 0.5, 10) // cheese below the default minimum of 1

	w := env.request(t, "GET", "/api/admin/reports/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var low []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &low))
	require.Len(t, low, 1)
	assert.Equal(t, "Queijo", low[0]["name"])
}
