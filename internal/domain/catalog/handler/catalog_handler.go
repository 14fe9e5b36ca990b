package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/domain/catalog/model"
	"storefront/internal/domain/catalog/service"
	"storefront/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActionUpdateProduct 当前唯一支持的管理操作
const ActionUpdateProduct = "update_product"

type ErrorResponse struct {
	Error string `json:"error"`
}

type ProductResponse struct {
	Product *model.Product `json:"product"`
}

// AdminRequest 管理端请求
type AdminRequest struct {
	Action    string                      `json:"action"`
	ProductID string                      `json:"productId"`
	Payload   *model.UpdateProductPayload `json:"payload"`
}

type CatalogHandler struct {
	svc service.CatalogService
}

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListProducts 商品列表或单个商品
// @Summary 商品目录
// @Tags Catalog
// @Produce json
// @Param id query string false "商品 ID，传入时返回单个商品"
// @Param category query string false "分类" default(starscale)
// @Param limit query int false "数量" default(10)
// @Success 200 {object} model.ProductList
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /stripe-products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if id := c.Query("id"); id != "" {
		product, err := h.svc.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
				return
			}
			logger.Log.Error("fetch product failed", zap.String("product_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, ProductResponse{Product: product})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultLimit)))
	if err != nil {
		limit = service.DefaultLimit
	}

	list, err := h.svc.ListProducts(ctx, c.Query("category"), limit)
	if err != nil {
		logger.Log.Error("list products failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Admin 管理端商品维护
// @Summary 更新商品
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body AdminRequest true "管理操作"
// @Success 200 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /stripe-products-admin [post]
func (h *CatalogHandler) Admin(c *gin.Context) {
	var req AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Action != ActionUpdateProduct || req.ProductID == "" || req.Payload == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return
	}

	product, err := h.svc.UpdateProduct(c.Request.Context(), req.ProductID, *req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
		default:
			logger.Log.Error("admin product update failed", zap.String("product_id", req.ProductID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, ProductResponse{Product: product})
}
