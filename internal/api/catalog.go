package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCategories(c *gin.Context) {
	tree, err := h.svc.Catalog.CategoryTree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

func (h *Handler) listProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Search:   c.Query("q"),
		Featured: c.Query("featured") == "true",
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid category_id", nil)
			return
		}
		filter.CategoryID = &id
	}

	var ok bool
	if filter.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}

	products, err := h.svc.Catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := h.svc.Catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// quoteShipping quotes delivery for ?city=&district=&division=
func (h *Handler) quoteShipping(c *gin.Context) {
	quote, err := h.svc.Shipping.QuoteLocation(c.Request.Context(),
		c.Query("city"), c.Query("district"), c.Query("division"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
