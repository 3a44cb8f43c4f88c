package apiv1

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/infra/logging"
	"interview-ai-credits/internal/infra/metrics"
	"interview-ai-credits/internal/usecase"
)

// Server exposes the credit ledger over HTTP for the platform's web tier.
type Server struct {
	plans     usecase.PlanUseCase
	credits   usecase.CreditUseCase
	purchases usecase.PurchaseUseCase
	stats     usecase.StatsUseCase
	log       *zerolog.Logger
}

func NewServer(
	plans usecase.PlanUseCase,
	credits usecase.CreditUseCase,
	purchases usecase.PurchaseUseCase,
	stats usecase.StatsUseCase,
	logger *zerolog.Logger,
) *Server {
	return &Server{plans: plans, credits: credits, purchases: purchases, stats: stats, log: logger}
}

// RegisterAPIV1 attaches all v1 routes. The payment callback stays outside the
// auth group: the provider redirect carries no session.
func RegisterAPIV1(r chi.Router, s *Server, auth *AuthManager) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}", s.handleGetPlan)
		r.Get("/purchases/callback", s.handlePurchaseCallback)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Get("/credits", s.handleGetLedger)
			r.Get("/credits/entitlement", s.handleEntitlement)
			r.Post("/credits/consume", s.handleConsume)
			r.Post("/credits/consume-free", s.handleConsumeFree)
			r.Get("/credits/activity", s.handleActivity)
			r.Post("/purchases", s.handleInitiatePurchase)
			r.Get("/stats", s.handleStats)
		})
	})
}

//
// ---------------- wire types ----------------
//

type Plan struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	PriceCents       int64    `json:"price_cents"`
	Credits          int      `json:"credits"`
	MinutesPerCredit float64  `json:"minutes_per_credit"`
	TotalMinutes     float64  `json:"total_minutes"`
	Features         []string `json:"features"`
	Highlighted      bool     `json:"highlighted"`
}

type Ledger struct {
	PlanType              string    `json:"plan_type"`
	TotalCredits          int       `json:"total_credits"`
	RemainingCredits      int       `json:"remaining_credits"`
	TotalMinutes          float64   `json:"total_minutes"`
	MinutesUsed           float64   `json:"minutes_used"`
	PurchaseDate          time.Time `json:"purchase_date"`
	ExpirationDate        time.Time `json:"expiration_date"`
	FreeSessionsRemaining int       `json:"free_sessions_remaining"`
	Expired               bool      `json:"expired"`
}

type Activity struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CreditsChange int       `json:"credits_change"`
	MinutesUsed   *float64  `json:"minutes_used,omitempty"`
	InterviewID   *string   `json:"interview_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func toPlan(p *model.CreditPlan) Plan {
	return Plan{
		ID:               p.ID,
		Name:             p.Name,
		PriceCents:       p.PriceCents,
		Credits:          p.Credits,
		MinutesPerCredit: p.MinutesPerCredit,
		TotalMinutes:     p.TotalMinutes(),
		Features:         p.Features,
		Highlighted:      p.Highlighted,
	}
}

func toLedger(uc *model.UserCredit) Ledger {
	return Ledger{
		PlanType:              uc.PlanType,
		TotalCredits:          uc.TotalCredits,
		RemainingCredits:      uc.RemainingCredits,
		TotalMinutes:          uc.TotalMinutes,
		MinutesUsed:           uc.MinutesUsed,
		PurchaseDate:          uc.PurchaseDate,
		ExpirationDate:        uc.ExpirationDate,
		FreeSessionsRemaining: uc.FreeSessionsRemaining,
		Expired:               uc.ExpiredAt(time.Now()),
	}
}

func toActivity(a *model.CreditActivity) Activity {
	return Activity{
		ID:            a.ID,
		Kind:          string(a.Kind),
		Title:         a.Title,
		Description:   a.Description,
		CreditsChange: a.CreditsChange,
		MinutesUsed:   a.MinutesUsed,
		InterviewID:   a.InterviewID,
		Timestamp:     a.Timestamp,
	}
}

//
// ---------------- handlers ----------------
//

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans := s.plans.List(r.Context())
	items := make([]Plan, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlan(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlan(plan))
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.credits.GetLedger(r.Context(), logging.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedger(ledger))
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	required := 1
	if q := r.URL.Query().Get("required"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "required must be a positive integer", http.StatusUnprocessableEntity)
			return
		}
		required = n
	}

	userID := logging.UserID(r.Context())
	ent := s.credits.CheckEntitlement(r.Context(), userID, required)
	if !ent.Valid {
		metrics.IncEntitlementDenied(s.denialReason(r, userID))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":            ent.Valid,
		"has_free_session": ent.HasFreeSession,
	})
}

// denialReason classifies a failed entitlement check for the denial counter.
func (s *Server) denialReason(r *http.Request, userID string) string {
	ledger, err := s.credits.GetLedger(r.Context(), userID)
	switch {
	case err != nil:
		return "no_ledger"
	case ledger.ExpiredAt(time.Now()):
		return "expired"
	default:
		return "insufficient"
	}
}

type consumeRequest struct {
	InterviewID string  `json:"interview_id"`
	Credits     int     `json:"credits"`
	Minutes     float64 `json:"minutes"`
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Credits <= 0 || req.Minutes < 0 {
		http.Error(w, "credits must be positive and minutes non-negative", http.StatusUnprocessableEntity)
		return
	}

	userID := logging.UserID(r.Context())
	ok := s.credits.ConsumeCredits(r.Context(), userID, req.InterviewID, req.Credits, req.Minutes)
	if !ok {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{"consumed": false})
		return
	}
	metrics.AddCreditsConsumed(req.Credits)
	writeJSON(w, http.StatusOK, map[string]any{"consumed": true})
}

func (s *Server) handleConsumeFree(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserID(r.Context())
	ok := s.credits.ConsumeFreeSession(r.Context(), userID)
	if !ok {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{"consumed": false})
		return
	}
	metrics.IncFreeSessionConsumed()
	writeJSON(w, http.StatusOK, map[string]any{"consumed": true})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	acts := s.credits.RecentActivity(r.Context(), logging.UserID(r.Context()), limit)
	items := make([]Activity, 0, len(acts))
	for _, a := range acts {
		items = append(items, toActivity(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type purchaseRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) handleInitiatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	p, payURL, err := s.purchases.Initiate(r.Context(), logging.UserID(r.Context()), req.PlanID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"purchase_id": p.ID,
		"reference":   p.Reference,
		"pay_url":     payURL,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_remaining_credits": stats.TotalRemainingCredits,
		"purchases_by_status":     stats.PurchasesByStatus,
	})
}

// handlePurchaseCallback finalizes a checkout the provider redirected back to
// us. Confirmation is idempotent inside the use case.
func (s *Server) handlePurchaseCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reference := q.Get("reference")
	status := q.Get("status")

	if reference == "" {
		s.renderCallback(w, http.StatusBadRequest, false, "missing reference")
		return
	}

	if status != "OK" {
		if err := s.purchases.Fail(r.Context(), reference); err != nil {
			s.renderCallback(w, http.StatusBadRequest, false, "payment was not approved")
			return
		}
		s.renderCallback(w, http.StatusOK, false, "payment was not approved")
		return
	}

	p, err := s.purchases.Confirm(r.Context(), reference)
	if err != nil {
		s.renderCallback(w, http.StatusBadRequest, false, "confirmation failed")
		return
	}
	metrics.IncPurchase(p.PlanID)
	s.renderCallback(w, http.StatusOK, true, "payment confirmed, your credits are available")
}

var callbackPage = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{if .OK}}Success{{else}}Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}Payment Successful{{else}}Payment Processed{{end}}</h2>
  <p>{{.Msg}}</p>
</div>
</body>
</html>`))

func (s *Server) renderCallback(w http.ResponseWriter, code int, ok bool, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = callbackPage.Execute(w, struct {
		OK  bool
		Msg string
	}{OK: ok, Msg: msg})
}

//
// ---------------- response helpers ----------------
//

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidPlan):
		http.Error(w, "unknown plan", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "invalid argument", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		http.Error(w, "request failed", http.StatusBadRequest)
	}
}
