package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermalab/dermacare-backend/internal/pkg/logger"
	"github.com/dermalab/dermacare-backend/internal/repos"
)

// CatalogHandler serves the read-only rule and product catalogs used
// by admin tooling and the product browser.
type CatalogHandler struct {
	log      *logger.Logger
	rules    repos.RuleRepo
	products repos.ProductRepo
}

func NewCatalogHandler(log *logger.Logger, rules repos.RuleRepo, products repos.ProductRepo) *CatalogHandler {
	return &CatalogHandler{
		log:      log.With("handler", "CatalogHandler"),
		rules:    rules,
		products: products,
	}
}

// GET /api/rules
func (h *CatalogHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.GetAll(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("rule listing failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "rules_load_failed", fmt.Errorf("could not load rules"))
		return
	}
	RespondOK(c, gin.H{"rules": rules})
}

// GET /api/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.products.GetAllActive(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("product listing failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "products_load_failed", fmt.Errorf("could not load products"))
		return
	}
	RespondOK(c, gin.H{"products": products})
}
