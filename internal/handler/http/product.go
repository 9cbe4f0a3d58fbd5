package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateProduct handles POST /api/v1/admin/product/new with a JSON body or
// multipart form fields plus inline images.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeProductRequest(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Info:        req.Info,
		Category:    req.Category,
		Price:       *req.Price,
		Images:      req.Images,
		Stock:       req.Stock,
		UserID:      middleware.UserIDFromContext(r.Context()),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, httputil.Envelope{"product": product})
}

// ListProducts handles GET /api/v1/products
//
// Query parameters: keyword, category, price[gte], price[lte], ratings[gte], page.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
		Page:     1,
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeInvalidParameter(w, "page must be a valid positive integer")
			return
		}
		filter.Page = page
	}

	for _, bound := range []struct {
		param string
		dst   **float64
	}{
		{"price[gte]", &filter.PriceGTE},
		{"price[lte]", &filter.PriceLTE},
		{"ratings[gte]", &filter.RatingsGTE},
	} {
		v := q.Get(bound.param)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeInvalidParameter(w, bound.param+" must be a valid number")
			return
		}
		*bound.dst = &f
	}

	res, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"products":             nonNilProducts(res.Products),
		"productsCount":        res.ProductsCount,
		"resultPerPage":        res.ResultPerPage,
		"filteredProductCount": res.FilteredProductCount,
	})
}

// ListAllProducts handles GET /api/v1/admin/products
func (h *ProductHandler) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListAllProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"products": nonNilProducts(products)})
}

// GetProduct handles GET /api/v1/product/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// UpdateProduct handles PUT /api/v1/admin/product/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decodeProductRequest(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), &service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Info:        req.Info,
		Category:    req.Category,
		Price:       req.Price,
		Images:      req.Images,
		Stock:       req.Stock,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// UpdateStock handles PUT /api/v1/product/stock and PUT /api/v1/product/{id}/stock.
// The path id wins over the body's _id.
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req UpdateStockRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		id = req.ID
	}
	if id == "" {
		writeInvalidParameter(w, "_id is required")
		return
	}

	product, err := h.service.UpdateStock(r.Context(), id, req.Stock)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"product": product})
}

// DeleteProduct handles DELETE /api/v1/admin/product/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"message": "Product deleted successfully"})
}

// ListSizes handles GET /api/v1/sizes
func ListSizes(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"sizes": domain.Sizes})
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}

func nonNilProducts(p []domain.Product) []domain.Product {
	if p == nil {
		return []domain.Product{}
	}
	return p
}
