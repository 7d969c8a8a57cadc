package handlers

import (
	"net/http"

	"gw-ipn-relay/internal/api/middlew"
	"gw-ipn-relay/pkg/response"
)

// Healthz godoc
// @Summary      Проверка живости
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /healthz [get]
func Healthz(w http.ResponseWriter, r *http.Request) {
	response.WriteJSONSuccess(w, middlew.GetLogger(r.Context()), http.StatusOK, map[string]string{"status": "ok"})
}
