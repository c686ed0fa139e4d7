package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListResponse is the body of GET /api/products.
type ListResponse struct {
	Success  bool             `json:"success"`
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

// ProductResponse is the body of GET /api/products/{productId}.
type ProductResponse struct {
	Success     bool            `json:"success"`
	Product     *models.Product `json:"product"`
	DailyValues map[string]int  `json:"dailyValues"`
}

// MutationResponse is returned by create and update.
type MutationResponse struct {
	Success bool            `json:"success"`
	Product *models.Product `json:"product"`
	Message string          `json:"message"`
}

// parseFilter reads keyword, category, rating, limit and offset from the
// query string.
func parseFilter(r *http.Request) (models.ProductFilter, error) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Keyword:  strings.TrimSpace(q.Get("keyword")),
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
	}

	if raw := q.Get("rating"); raw != "" {
		grade, err := nutriscore.ParseGrade(raw)
		if err != nil {
			return filter, errors.New("rating must be one of A, B, C, D, E")
		}
		filter.Rating = grade
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("limit must be an integer")
		}
		if n == 0 {
			return filter, errors.New("limit must be positive")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("offset must be an integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// clientMessage strips the sentinel prefix from a wrapped service error.
func clientMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			WriteError(w, http.StatusBadRequest, clientMessage(err, service.ErrInvalidFilter), h.logger)
			return
		}
		h.logger.Error("failed to list products", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	WriteJSON(w, http.StatusOK, ListResponse{Success: true, Products: products, Total: total}, h.logger)
}

// Categories handles GET /api/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "categories": categories}, h.logger)
}

// Ratings handles GET /api/products/ratings
func (h *ProductHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.service.Ratings(r.Context())
	if err != nil {
		h.logger.Error("failed to count ratings", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "ratings": ratings}, h.logger)
}

// productID returns the productId URL parameter, writing a 400 if it is
// missing.
func (h *ProductHandler) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		h.logger.Warn("product ID is required")
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return "", false
	}
	return id, true
}

// writeServiceError maps a service or repository error to a response.
func (h *ProductHandler) writeServiceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		h.logger.Info("product not found", "productId", id)
		WriteError(w, http.StatusNotFound, "Product not found", h.logger)
	case errors.Is(err, service.ErrInvalidProduct):
		WriteError(w, http.StatusBadRequest, clientMessage(err, service.ErrInvalidProduct), h.logger)
	default:
		h.logger.Error("product operation failed", "productId", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
	}
}

// GetProduct handles GET /api/products/{productId}
// - 200: product with daily value percentages
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, ProductResponse{
		Success:     true,
		Product:     product,
		DailyValues: nutriscore.DailyValues(product.NutritionFacts),
	}, h.logger)
}

// Suggestions handles GET /api/products/{productId}/suggestions
func (h *ProductHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	suggestions, err := h.service.Suggestions(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "suggestions": suggestions}, h.logger)
}

// CreateProduct handles POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, "", err)
		return
	}

	WriteJSON(w, http.StatusCreated, MutationResponse{
		Success: true,
		Product: product,
		Message: "Product created successfully",
	}, h.logger)
}

// UpdateProduct handles PUT /api/products/{productId}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var in models.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	WriteJSON(w, http.StatusOK, MutationResponse{
		Success: true,
		Product: product,
		Message: "Product updated successfully",
	}, h.logger)
}

// DeleteProduct handles DELETE /api/products/{productId}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeServiceError(w, id, err)
		return
	}

	WriteMessage(w, http.StatusOK, "Product deleted successfully", h.logger)
}
