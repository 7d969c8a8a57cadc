package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"gw-ipn-relay/internal/api/middlew"
	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/pkg/response"
)

const maxTransactionsLimit = 100

type ReportHandler struct {
	service service.Ledger
}

func NewReportHandler(service service.Ledger) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

// GetBalance godoc
// @Summary      Баланс
// @Description  Всего получено, выведено и остаток в USD
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.BalanceSummary
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/v1/balance [get]
func (h *ReportHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetBalance"
	log := middlew.GetLogger(r.Context())

	balance, err := h.service.Balance(r.Context())
	if err != nil {
		log.Error("failed to get balance", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve balance")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, balance)
}

// GetTransactions godoc
// @Summary      Последние транзакции
// @Description  Новые первыми
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Количество (1..100)" default(10)
// @Success      200 {object} models.TransactionsResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/v1/transactions [get]
func (h *ReportHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetTransactions"
	log := middlew.GetLogger(r.Context())

	limit := service.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTransactionsLimit {
			log.Warn("invalid limit", slog.String("op", op), slog.String("limit", raw))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_limit", "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	txs, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, custom_err.ErrInvalidInput) {
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_limit", err.Error())
			return
		}
		log.Error("failed to get transactions", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve transactions")
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, models.TransactionsResponse{Transactions: txs})
}

// GetStatus godoc
// @Summary      Состояние системы
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.SystemStatus
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/v1/status [get]
func (h *ReportHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetStatus"
	log := middlew.GetLogger(r.Context())

	status, err := h.service.Status(r.Context())
	if err != nil {
		log.Error("failed to get status", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Failed to retrieve status")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, status)
}
