package transport

import (
	"errors"
	"net/http"
	"time"

	"modern-pos/internal/domain"
	"modern-pos/internal/middleware"
	"modern-pos/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleItemRequest is one cart line of a checkout request
type SaleItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Price     float64   `json:"price" validate:"gte=0"`
}

// CreateSaleRequest represents the checkout payload
type CreateSaleRequest struct {
	Total float64           `json:"total" validate:"required,gt=0"`
	Items []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateSaleResponse carries the id of the committed sale
type CreateSaleResponse struct {
	SaleID string `json:"saleId"`
}

// SaleHandler handles HTTP requests for checkout and reporting
type SaleHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(checkoutService service.CheckoutService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sales", h.Create)
	r.Get("/daily-sales", h.DailySales)
	r.Get("/transactions", h.Transactions)
}

// Create handles one checkout
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sale validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale data")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	sale, err := h.checkoutService.Checkout(r.Context(), lines, req.Total)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSale) {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale data")
			return
		}

		var stockErr *service.ErrInsufficientStock
		if errors.As(err, &stockErr) {
			h.logger.Warn("Checkout rejected",
				zap.String("product_id", stockErr.ProductID.String()),
			)
			middleware.RespondWithError(w, http.StatusInternalServerError, stockErr.Error())
			return
		}

		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to record sale")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CreateSaleResponse{SaleID: sale.ID.String()})
}

// DailySales returns today's aggregate
func (h *SaleHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	totals, err := h.checkoutService.DailyTotals(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("Failed to fetch daily sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch daily sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, []*domain.DailyTotals{totals})
}

// Transactions returns the full sale history with nested items
func (h *SaleHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sales, err := h.checkoutService.ListTransactions(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch transactions", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sales)
}
