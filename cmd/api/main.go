package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkanthi/paisabook/pkg/config"
	"github.com/rkanthi/paisabook/pkg/ledger"
	"github.com/rkanthi/paisabook/pkg/models"
	"github.com/rkanthi/paisabook/pkg/store"
)

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // Keep a reference to the storage to close it
	log     *logrus.Logger
}

func NewServer(s store.Storage, log *logrus.Logger, backdateWindowDays int) *Server {
	return &Server{
		ledger:  ledger.NewLedger(s, log, backdateWindowDays),
		storage: s,
		log:     log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses: validation and plan
// errors carry the offending field and value back to the caller as 400s,
// missing records are 404s.
func writeError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	var pe *models.InvalidPlanError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case strings.Contains(err.Error(), "not found"):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// referenceToday reads the optional ?today=YYYY-MM-DD override used by
// clients that must render a deterministic calendar; defaults to now.
func referenceToday(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("today")
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "today", Value: raw, Reason: "must be formatted YYYY-MM-DD"}
	}
	return t, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, &models.ValidationError{Field: "id", Value: idStr, Reason: "must be a valid UUID"}
	}
	return id, nil
}

type planRequest struct {
	Name               string           `json:"name"`
	Frequency          models.Frequency `json:"frequency"`
	Periods            int              `json:"periods"`
	BaseAmount         decimal.Decimal  `json:"base_amount"`
	RepaymentPerPeriod decimal.Decimal  `json:"repayment_per_period"`
	AdvanceAmount      decimal.Decimal  `json:"advance_amount"`
	LateFeePerPeriod   decimal.Decimal  `json:"late_fee_per_period"`
}

func (s *Server) createPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tmpl, err := s.ledger.CreatePlan(req.Name, req.Frequency, req.Periods, req.BaseAmount, req.RepaymentPerPeriod, req.AdvanceAmount, req.LateFeePerPeriod)
	if err != nil {
		s.log.Errorf("Error creating plan: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (s *Server) listPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := s.ledger.GetAllPlans()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) getPlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, err := s.ledger.GetPlan(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) updatePlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var tmpl models.PlanTemplate
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tmpl.ID = id // Ensure ID from URL is used

	if err := s.ledger.UpdatePlan(&tmpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) deletePlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.DeletePlan(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type onboardRequest struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	Area        string          `json:"area"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	PlanID      uuid.UUID       `json:"plan_id"`
	AmountGiven decimal.Decimal `json:"amount_given"`
	StartDate   string          `json:"start_date"` // YYYY-MM-DD
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, &models.ValidationError{Field: "start_date", Value: req.StartDate, Reason: "must be formatted YYYY-MM-DD"})
		return
	}

	customer, err := s.ledger.OnboardCustomer(ledger.OnboardParams{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		Area:        req.Area,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PlanID:      req.PlanID,
		AmountGiven: req.AmountGiven,
		StartDate:   startDate,
	})
	if err != nil {
		s.log.Errorf("Error onboarding customer: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers, err := s.ledger.GetAllCustomers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	customer, err := s.ledger.GetCustomer(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.DeleteCustomer(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	today, err := referenceToday(r)
	if err != nil {
		writeError(w, err)
		return
	}
	customer, err := s.ledger.CloseCustomer(id, today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

type collectionRequest struct {
	Amount          decimal.Decimal        `json:"amount"`
	Type            models.TransactionType `json:"type"`
	PaymentMode     models.PaymentMode     `json:"payment_mode"`
	TransactionDate string                 `json:"transaction_date"` // YYYY-MM-DD
	Remarks         string                 `json:"remarks"`
}

func (s *Server) recordCollectionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	today, err := referenceToday(r)
	if err != nil {
		writeError(w, err)
		return
	}

	txDate := today
	if req.TransactionDate != "" {
		txDate, err = time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			writeError(w, &models.ValidationError{Field: "transaction_date", Value: req.TransactionDate, Reason: "must be formatted YYYY-MM-DD"})
			return
		}
	}

	tx, err := s.ledger.RecordCollection(id, req.Amount, req.Type, req.PaymentMode, txDate, req.Remarks, today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	txs, err := s.ledger.GetTransactions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) customerSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	today, err := referenceToday(r)
	if err != nil {
		writeError(w, err)
		return
	}
	customer, summary, err := s.ledger.CustomerSummary(id, today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer": customer,
		"summary":  summary,
	})
}

func (s *Server) customerCalendarHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		writeError(w, &models.ValidationError{Field: "year", Value: vars["year"], Reason: "must be an integer"})
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil {
		writeError(w, &models.ValidationError{Field: "month", Value: vars["month"], Reason: "must be an integer"})
		return
	}
	today, err := referenceToday(r)
	if err != nil {
		writeError(w, err)
		return
	}

	grid, err := s.ledger.CustomerCalendar(id, year, time.Month(month), today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

func (s *Server) overdueHandler(w http.ResponseWriter, r *http.Request) {
	today, err := referenceToday(r)
	if err != nil {
		writeError(w, err)
		return
	}
	overdue, err := s.ledger.OverdueCustomers(today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overdue)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/plans", s.listPlansHandler).Methods("GET")
	router.HandleFunc("/plans", s.createPlanHandler).Methods("POST")
	router.HandleFunc("/plans/{id}", s.getPlanHandler).Methods("GET")
	router.HandleFunc("/plans/{id}", s.updatePlanHandler).Methods("PUT")
	router.HandleFunc("/plans/{id}", s.deletePlanHandler).Methods("DELETE")

	router.HandleFunc("/customers", s.listCustomersHandler).Methods("GET")
	router.HandleFunc("/customers", s.createCustomerHandler).Methods("POST")
	router.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods("GET")
	router.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods("DELETE")
	router.HandleFunc("/customers/{id}/close", s.closeCustomerHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/transactions", s.listTransactionsHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/transactions", s.recordCollectionHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/summary", s.customerSummaryHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/calendar/{year}/{month}", s.customerCalendarHandler).Methods("GET")

	router.HandleFunc("/overdue", s.overdueHandler).Methods("GET")

	return router
}

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Infof("No .env file found: %v", err)
	}
}

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize SQLite Store
	sqliteStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, logger, cfg.BackdateWindowDays)
	router := server.routes()

	// Daily overdue sweep
	c := cron.New()
	_, err = c.AddFunc(cfg.SweepSchedule, func() {
		logger.Info("Running overdue sweep...")
		overdue, err := server.ledger.OverdueCustomers(time.Now())
		if err != nil {
			logger.Errorf("Overdue sweep failed: %v", err)
			return
		}
		for _, o := range overdue {
			logger.Warnf("Customer %s (%s) is behind: %d overdue %s, pending %s",
				o.Customer.Name, o.Customer.ID, o.Summary.OverduePeriods, o.Summary.PeriodUnit, o.Summary.PendingAmount.StringFixed(2))
		}
		logger.Infof("Overdue sweep complete: %d customers behind", len(overdue))
	})
	if err != nil {
		logger.Fatalf("Invalid sweep schedule %q: %v", cfg.SweepSchedule, err)
	}
	c.Start()
	defer c.Stop()

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
