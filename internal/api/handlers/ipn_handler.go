package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"gw-ipn-relay/internal/api/middlew"
	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/pkg/response"
)

const maxIPNBodyBytes = 1 << 20

type IPNHandler struct {
	service service.Ingestion
}

func NewIPNHandler(service service.Ingestion) *IPNHandler {
	return &IPNHandler{
		service: service,
	}
}

// HandleIPN godoc
// @Summary      Приём IPN-уведомления
// @Description  Принимает уведомление о платеже (form или JSON). Отвечает 200 OK всегда, кроме сбоя записи в журнал.
// @Tags         ipn
// @Accept       x-www-form-urlencoded
// @Accept       json
// @Produce      plain
// @Success      200 {string} string "OK"
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {string} string "Internal Server Error"
// @Router       /ipn [post]
func (h *IPNHandler) HandleIPN(w http.ResponseWriter, r *http.Request) {
	const op = "handler.HandleIPN"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIPNBodyBytes))
	if err != nil {
		log.Warn("failed to read IPN body", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_body", "Unable to read request body")
		return
	}

	rawBody, values, err := decodeIPN(r.Header.Get("Content-Type"), body)
	if err != nil {
		log.Warn("malformed IPN body", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_body", "Malformed notification body")
		return
	}

	outcome, err := h.service.Ingest(r.Context(), rawBody, values)
	if err != nil {
		log.Error("failed to ingest IPN",
			slog.String("op", op),
			slog.String("outcome", string(outcome)),
			slog.String("error", err.Error()))
		response.WriteText(w, log, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	log.Info("IPN принят", slog.String("outcome", string(outcome)))
	response.WriteText(w, log, http.StatusOK, "OK")
}

// decodeIPN возвращает тело в виде формы и разобранные поля.
// JSON приводится к форме, чтобы пересылка всегда шла как x-www-form-urlencoded.
func decodeIPN(contentType string, body []byte) ([]byte, url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType != "application/json" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, nil, err
		}
		return body, values, nil
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, nil, err
	}

	values := make(url.Values, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			values.Set(k, "")
		case string:
			values.Set(k, val)
		case json.Number:
			values.Set(k, val.String())
		case bool:
			values.Set(k, strconv.FormatBool(val))
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, nil, err
			}
			values.Set(k, string(encoded))
		}
	}
	return []byte(values.Encode()), values, nil
}
