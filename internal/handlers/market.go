package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/models"
	"github.com/ternarybob/mercatus/internal/services/export"
)

// MarketHandler serves exported dataset files back out as JSON
type MarketHandler struct {
	store    *export.Sink
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewMarketHandler(store *export.Sink) *MarketHandler {
	return &MarketHandler{
		store:    store,
		validate: validator.New(),
		logger:   common.GetLogger(),
	}
}

// datasetRequest is the validated shape of /api/{exchange}/{dataset}
type datasetRequest struct {
	Exchange string `validate:"required,alphanum,max=8"`
	Dataset  string `validate:"required,oneof=index gainers losers companies"`
}

// ListExchangesHandler returns the supported exchange registry
func (h *MarketHandler) ListExchangesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	exchanges := models.Exchanges()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"exchanges": exchanges,
		"count":     len(exchanges),
	})
}

// GetDatasetHandler serves one exported dataset. Responses follow a
// fixed envelope: {data, exchange, dataset, success} on 200 and
// {error, success} on 400/404.
func (h *MarketHandler) GetDatasetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	segments := strings.Split(path, "/")
	if len(segments) != 2 {
		h.writeMarketError(w, http.StatusBadRequest, fmt.Sprintf("invalid request path: %s", r.URL.Path))
		return
	}

	exchangeCode := strings.ToLower(strings.TrimSpace(segments[0]))
	datasetName := strings.ToLower(strings.TrimSpace(segments[1]))

	request := datasetRequest{Exchange: exchangeCode, Dataset: datasetName}
	if err := h.validate.Struct(request); err != nil {
		h.logger.Debug().
			Str("exchange", exchangeCode).
			Str("dataset", datasetName).
			Err(err).
			Msg("Rejected dataset request")
		h.writeMarketError(w, http.StatusBadRequest, fmt.Sprintf("invalid exchange or dataset: %s/%s", exchangeCode, datasetName))
		return
	}

	exchange, ok := models.FindExchange(exchangeCode)
	if !ok {
		h.writeMarketError(w, http.StatusBadRequest, fmt.Sprintf("invalid exchange or dataset: %s/%s", exchangeCode, datasetName))
		return
	}

	kind, ok := models.ParseDatasetKind(datasetName)
	if !ok {
		h.writeMarketError(w, http.StatusBadRequest, fmt.Sprintf("invalid exchange or dataset: %s/%s", exchangeCode, datasetName))
		return
	}

	data, err := h.store.Read(exchange.Code, kind)
	if err != nil {
		if os.IsNotExist(err) {
			h.writeMarketError(w, http.StatusNotFound, fmt.Sprintf("No data found for %s/%s", exchange.Code, kind))
			return
		}
		h.logger.Error().
			Str("exchange", exchange.Code).
			Str("dataset", string(kind)).
			Err(err).
			Msg("Failed to read dataset file")
		h.writeMarketError(w, http.StatusInternalServerError, "failed to read dataset")
		return
	}

	// Exported files may carry non-finite tokens if produced by other
	// tooling; they are not valid JSON and must become nulls.
	data = SanitizeNonFinite(data)

	var records interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		h.logger.Error().
			Str("exchange", exchange.Code).
			Str("dataset", string(kind)).
			Err(err).
			Msg("Dataset file is not valid JSON")
		h.writeMarketError(w, http.StatusInternalServerError, "failed to decode dataset")
		return
	}

	if isEmptyDataset(records) {
		h.writeMarketError(w, http.StatusNotFound, fmt.Sprintf("No data found for %s/%s", exchange.Code, kind))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":     records,
		"exchange": exchange.Code,
		"dataset":  string(kind),
		"success":  true,
	})
}

// isEmptyDataset treats a null document or an empty array as no data
func isEmptyDataset(records interface{}) bool {
	if records == nil {
		return true
	}
	if arr, ok := records.([]interface{}); ok {
		return len(arr) == 0
	}
	return false
}

func (h *MarketHandler) writeMarketError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]interface{}{
		"error":   message,
		"success": false,
	})
}
