package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"telegram-vpn-subscription/internal/domain/model"
	"telegram-vpn-subscription/internal/usecase"
)

type sessionRequest struct {
	Secret string `json:"secret"`
}

// sessionHandler exchanges the shared ops secret for a short-lived JWT.
func (s *Server) sessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	}
}

// statsHandler serves ledger totals plus the revenue breakdown.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stats, err := statsUC.Overview(ctx)
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}

		rep, err := statsUC.Revenue(ctx)
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}

		response := struct {
			Total     int `json:"total_transactions"`
			Completed int `json:"completed"`
			Failed    int `json:"failed"`
			Pending   int `json:"pending"`
			Revenue   struct {
				Total int64 `json:"total"`
				Month int64 `json:"month"`
			} `json:"revenue_mmk"`
			SalesByPlan []usecase.PlanSales `json:"sales_by_plan"`
		}{
			Total:       stats.Total,
			Completed:   stats.Completed,
			Failed:      stats.Failed,
			Pending:     stats.Pending,
			SalesByPlan: rep.SalesByPlan,
		}
		response.Revenue.Total = rep.TotalRevenue
		response.Revenue.Month = rep.MonthRevenue

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// transactionsHandler returns the most recent ledger records.
// It accepts a 'limit' query parameter, capped at 100.
func transactionsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		records, err := statsUC.Recent(ctx, limit)
		if err != nil {
			http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []model.TransactionRecord{}
		}

		response := struct {
			Data  []model.TransactionRecord `json:"data"`
			Limit int                       `json:"limit"`
		}{
			Data:  records,
			Limit: limit,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
