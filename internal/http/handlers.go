package http

import (
	"net/http"
	"strconv"
	"strings"

	"ynabmetrics/internal/log"
	"ynabmetrics/internal/metrics"
)

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	rows, err := s.metrics.Spending(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSpendingGlance(w http.ResponseWriter, r *http.Request) {
	rows, err := s.metrics.Spending(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":       rows,
		"updated":          s.updated(),
		"total_categories": len(rows),
	})
}

func (s *Server) handleMonthlyGoals(w http.ResponseWriter, r *http.Request) {
	rows, err := s.metrics.MonthlyGoals(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMonthlyGoalsGlance(w http.ResponseWriter, r *http.Request) {
	rows, err := s.metrics.MonthlyGoals(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":       rows,
		"updated":          s.updated(),
		"total_categories": len(rows),
	})
}

func (s *Server) handleSavingsRate(w http.ResponseWriter, r *http.Request) {
	res, err := s.metrics.SavingsRate(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSavingsRateGlance(w http.ResponseWriter, r *http.Request) {
	res, err := s.metrics.SavingsRate(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"savings": res,
		"updated": s.updated(),
	})
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	res, err := s.metrics.NetWorth(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNetWorthGlance(w http.ResponseWriter, r *http.Request) {
	res, err := s.metrics.NetWorth(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"net_worth": res,
		"updated":   s.updated(),
	})
}

type cacheHealth struct {
	AgeSeconds float64 `json:"age_seconds"`
	Valid      bool    `json:"valid"`
}

// handleHealth reports liveness plus the age of every cached metric. An
// entry that was never computed reports age 0 and valid false.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "healthy",
		"timestamp": s.timestamp(),
	}
	for _, st := range s.metrics.CacheStatus() {
		resp[st.Key+"_cache"] = cacheHealth{
			AgeSeconds: st.Age.Seconds(),
			Valid:      st.Computed && st.Fresh,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("metric"))
	if key == "" {
		s.metrics.ClearCache()
	} else if err := s.metrics.ClearMetric(key); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "unknown_metric"})
		return
	}
	if s.invalidations != nil {
		s.invalidations.CacheInvalidated("http")
	}

	resp := map[string]any{
		"message":   "Cache cleared",
		"timestamp": s.timestamp(),
	}
	if key != "" {
		resp["metric"] = key
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, extractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error: "Rate limit exceeded. Please try again later.",
		Kind:  "rate_limited",
	})
}

type debugCategory struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HasGoal bool   `json:"has_goal"`
}

type debugGroup struct {
	Repr       string          `json:"repr"`
	Categories []debugCategory `json:"categories"`
}

// handleDebugCategoryGroups lists every group with a quoted name, so stray
// whitespace in whitelist names is visible.
func (s *Server) handleDebugCategoryGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.metrics.CategoryGroups(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}

	out := make(map[string]debugGroup, len(groups))
	for _, g := range groups {
		cats := make([]debugCategory, 0, len(g.Categories))
		for _, c := range g.Categories {
			cats = append(cats, debugCategory{ID: c.ID, Name: c.Name, HasGoal: c.HasGoal()})
		}
		out[g.Name] = debugGroup{Repr: strconv.Quote(g.Name), Categories: cats}
	}
	writeJSON(w, http.StatusOK, out)
}

type debugGoalItem struct {
	Index               int     `json:"index"`
	CategoryName        string  `json:"category_name"`
	Difference          float64 `json:"difference"`
	DifferenceFormatted string  `json:"difference_formatted"`
	Assigned            float64 `json:"assigned"`
	Spent               float64 `json:"spent"`
	Available           float64 `json:"available"`
}

// handleDebugMonthlyGoalsOrder recomputes the goals and shows their order.
func (s *Server) handleDebugMonthlyGoalsOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.metrics.ClearMetric(metrics.KeyMonthlyGoals); err != nil {
		s.writeMetricError(w, r, err)
		return
	}
	rows, err := s.metrics.MonthlyGoals(r.Context())
	if err != nil {
		s.writeMetricError(w, r, err)
		return
	}

	items := make([]debugGoalItem, 0, len(rows))
	for i, row := range rows {
		items = append(items, debugGoalItem{
			Index:               i,
			CategoryName:        row.CategoryName,
			Difference:          row.Difference,
			DifferenceFormatted: row.DifferenceFormatted,
			Assigned:            row.Assigned,
			Spent:               row.Spent,
			Available:           row.Available,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_items": len(items),
		"items":       items,
	})
}
