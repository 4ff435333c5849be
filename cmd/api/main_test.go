package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkanthi/paisabook/pkg/ledger"
	"github.com/rkanthi/paisabook/pkg/models"
	"github.com/rkanthi/paisabook/pkg/store"
)

func setupTestServer(t *testing.T) (*Server, string) {
	dbFile := "test_api.db"
	os.Remove(dbFile)

	s, err := store.NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewServer(s, log, 7), dbFile
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(b))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func createPlanViaAPI(t *testing.T, router http.Handler) models.PlanTemplate {
	t.Helper()
	rr := postJSON(t, router, "/plans", map[string]interface{}{
		"name":                 "weekly-50",
		"frequency":            "weekly",
		"periods":              20,
		"base_amount":          1000,
		"repayment_per_period": 50,
		"advance_amount":       100,
		"late_fee_per_period":  5,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 creating plan, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var tmpl models.PlanTemplate
	json.Unmarshal(rr.Body.Bytes(), &tmpl)
	return tmpl
}

func onboardViaAPI(t *testing.T, router http.Handler, tmpl models.PlanTemplate) models.Customer {
	t.Helper()
	rr := postJSON(t, router, "/customers", map[string]interface{}{
		"name":         "Asha",
		"area":         "market-road",
		"plan_id":      tmpl.ID,
		"amount_given": 2000,
		"start_date":   "2024-03-01",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 onboarding, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var customer models.Customer
	json.Unmarshal(rr.Body.Bytes(), &customer)
	return customer
}

func TestAPI_CreatePlanAndOnboard(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	customer := onboardViaAPI(t, router, tmpl)

	if !customer.Terms.RepaymentAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected scaled repayment amount 100, got %s", customer.Terms.RepaymentAmount)
	}
	if customer.Terms.Periods != 20 {
		t.Errorf("Expected 20 periods, got %d", customer.Terms.Periods)
	}

	// Get customer back
	req := httptest.NewRequest("GET", "/customers/"+customer.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var fetched models.Customer
	json.Unmarshal(rr.Body.Bytes(), &fetched)
	if fetched.ID != customer.ID {
		t.Errorf("Expected ID %s, got %s", customer.ID, fetched.ID)
	}
}

func TestAPI_CreatePlan_Invalid(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	rr := postJSON(t, router, "/plans", map[string]interface{}{
		"name":                 "broken",
		"frequency":            "hourly",
		"periods":              20,
		"base_amount":          1000,
		"repayment_per_period": 50,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad frequency, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("frequency")) {
		t.Errorf("Expected the offending field in the body, got %s", rr.Body.String())
	}
}

func TestAPI_RecordCollectionAndSummary(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	customer := onboardViaAPI(t, router, tmpl)

	rr := postJSON(t, router, "/customers/"+customer.ID.String()+"/transactions?today=2024-03-08", map[string]interface{}{
		"amount":           100,
		"type":             "repayment",
		"payment_mode":     "upi",
		"transaction_date": "2024-03-08",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	var tx models.Transaction
	json.Unmarshal(rr.Body.Bytes(), &tx)
	if !tx.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected amount 100, got %s", tx.Amount)
	}

	req := httptest.NewRequest("GET", "/customers/"+customer.ID.String()+"/summary?today=2024-03-08", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Summary ledger.Summary `json:"summary"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	// expected total 2000, repaid 100
	if !resp.Summary.PendingAmount.Equal(decimal.NewFromInt(1900)) {
		t.Errorf("Expected pending amount 1900, got %s", resp.Summary.PendingAmount)
	}
	if resp.Summary.PeriodUnit != "weeks" {
		t.Errorf("Expected period unit weeks, got %s", resp.Summary.PeriodUnit)
	}
}

func TestAPI_RecordCollection_BackdateRejected(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	customer := onboardViaAPI(t, router, tmpl)

	rr := postJSON(t, router, "/customers/"+customer.ID.String()+"/transactions?today=2024-03-20", map[string]interface{}{
		"amount":           100,
		"type":             "repayment",
		"payment_mode":     "cash",
		"transaction_date": "2024-03-10",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a 10-day backdate, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}

func TestAPI_CustomerCalendar(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	customer := onboardViaAPI(t, router, tmpl)

	path := fmt.Sprintf("/customers/%s/calendar/2024/3?today=2024-03-08", customer.ID)
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var grid struct {
		Days        int `json:"days"`
		DayStatuses []struct {
			IsDue   bool `json:"is_due"`
			IsToday bool `json:"is_today"`
		} `json:"day_statuses"`
	}
	json.Unmarshal(rr.Body.Bytes(), &grid)
	if grid.Days != 31 {
		t.Fatalf("Expected 31 days in March, got %d", grid.Days)
	}
	// Weekly plan starting Mar 1: Mar 1, 8, 15, 22, 29 are due
	for _, day := range []int{1, 8, 15, 22, 29} {
		if !grid.DayStatuses[day-1].IsDue {
			t.Errorf("Expected March %d to be due", day)
		}
	}
	if grid.DayStatuses[1].IsDue {
		t.Error("March 2 should not be due")
	}
	if !grid.DayStatuses[7].IsToday {
		t.Error("March 8 should be today")
	}
}

func TestAPI_Overdue(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	onboardViaAPI(t, router, tmpl)

	// 3 weeks in with nothing collected
	req := httptest.NewRequest("GET", "/overdue?today=2024-03-22", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var overdue []ledger.OverdueCustomer
	json.Unmarshal(rr.Body.Bytes(), &overdue)
	if len(overdue) != 1 {
		t.Fatalf("Expected 1 overdue customer, got %d", len(overdue))
	}
	if overdue[0].Summary.OverduePeriods != 3 {
		t.Errorf("Expected 3 overdue periods, got %d", overdue[0].Summary.OverduePeriods)
	}
}

func TestAPI_DeleteCustomer(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	tmpl := createPlanViaAPI(t, router)
	customer := onboardViaAPI(t, router, tmpl)

	req := httptest.NewRequest("DELETE", "/customers/"+customer.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/customers/"+customer.ID.String(), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}

	// The transaction ledger goes with the customer
	txs, err := server.storage.GetTransactionsForCustomer(customer.ID)
	if err != nil {
		t.Fatalf("Failed to query transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("Expected no transactions after delete, got %d", len(txs))
	}
}

func TestAPI_GetCustomer_NotFound(t *testing.T) {
	server, dbFile := setupTestServer(t)
	defer os.Remove(dbFile)
	defer server.storage.Close()
	router := server.routes()

	req := httptest.NewRequest("GET", "/customers/00000000-0000-0000-0000-000000000000", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}
