package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finplan/internal/core"
	flog "finplan/internal/log"
	"finplan/internal/services"
	"finplan/internal/storage/memory"
)

type testServer struct {
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	store := memory.New()
	reports := services.NewReportCache(64, time.Minute)
	goals := services.NewGoalService(store, nil, reports)
	d := Deps{
		Users:     services.NewUserService(store, goals),
		Goals:     goals,
		Ledger:    services.NewLedgerService(store, goals),
		Reports:   reports,
		Store:     store,
		Formatter: core.MustFormatter("it-IT", "EUR"),
		Logger:    flog.New(flog.Config{Level: slog.LevelError, Output: io.Discard}),
	}
	if mutate != nil {
		mutate(&d)
	}
	srv := NewServer(":0", d)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			rdr = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.10:1234"
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func (ts *testServer) createUser(t *testing.T) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "Ada"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create user: status %d body %s", rr.Code, rr.Body)
	}
	return decode[core.User](t, rr).ID.String()
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)

	if rr := ts.do(t, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rr.Code)
	}
	rr := ts.do(t, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyFailsWhenStoreDown(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.Store = failingPinger{} })
	if rr := ts.do(t, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rr.Code)
	}
}

func TestMethodsCatalog(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/api/methods", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	methods := decode[[]methodView](t, rr)
	if len(methods) != len(core.Methods()) {
		t.Fatalf("got %d methods, want %d", len(methods), len(core.Methods()))
	}
	for _, m := range methods {
		if m.ID == core.MethodFiftyThirtyTwenty && m.Defaults["needs"] != "0.5" {
			t.Errorf("50/30/20 needs default = %q, want 0.5", m.Defaults["needs"])
		}
	}
}

func TestUserLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createUser(t)

	if rr := ts.do(t, http.MethodGet, "/api/users/"+id, nil); rr.Code != http.StatusOK {
		t.Errorf("get user status = %d", rr.Code)
	}
	users := decode[[]core.User](t, ts.do(t, http.MethodGet, "/api/users", nil))
	if len(users) != 1 {
		t.Errorf("listed %d users, want 1", len(users))
	}
	if rr := ts.do(t, http.MethodDelete, "/api/users/"+id, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/api/users/"+id, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted user status = %d, want 404", rr.Code)
	}
}

func TestCreateUserValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "  "})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want 422", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error == "" {
		t.Error("expected error message")
	}

	rr = ts.do(t, http.MethodPost, "/api/users", `{"name": "x", "extra": 1}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rr.Code)
	}
}

func TestLedgerEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)

	tests := []struct {
		name       string
		path       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "transaction with locale amount",
			path:       "/api/users/" + user + "/transactions",
			body:       map[string]any{"name": "Dinner", "amount": "€ 1.234,50", "category": "dining", "date": "2025-03-10"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "transaction with bad amount",
			path:       "/api/users/" + user + "/transactions",
			body:       map[string]any{"name": "Dinner", "amount": "-5", "category": "dining", "date": "2025-03-10"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "transaction with bad category",
			path:       "/api/users/" + user + "/transactions",
			body:       map[string]any{"name": "Dinner", "amount": "5", "category": "yachts", "date": "2025-03-10"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "shared bill",
			path:       "/api/users/" + user + "/bills",
			body:       map[string]any{"name": "Rent", "amount": "1200", "category": "housing", "issuer": "Landlord", "first_installment": "2025-01-01", "recurrence": "monthly", "number_of_shares": 2},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "custom bill without interval",
			path:       "/api/users/" + user + "/bills",
			body:       map[string]any{"name": "Gym", "amount": "30", "category": "healthcare", "first_installment": "2025-01-01", "recurrence": "custom"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "income",
			path:       "/api/users/" + user + "/incomes",
			body:       map[string]any{"name": "Salary", "amount": "3000", "first_payment": "2025-01-27", "frequency": "monthly"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown user",
			path:       "/api/users/0b9f6c1e-4a8c-4e0f-9d9a-1f1f1f1f1f1f/incomes",
			body:       map[string]any{"name": "Salary", "amount": "3000", "first_payment": "2025-01-27", "frequency": "monthly"},
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
		})
	}

	txs := decode[[]transactionView](t, ts.do(t, http.MethodGet, "/api/users/"+user+"/transactions", nil))
	if len(txs) != 1 {
		t.Fatalf("listed %d transactions, want 1", len(txs))
	}
	if txs[0].Amount.Cents != 123450 {
		t.Errorf("amount = %d cents, want 123450", txs[0].Amount.Cents)
	}
	if txs[0].Amount.Formatted == "" {
		t.Error("expected formatted amount")
	}

	bills := decode[[]billView](t, ts.do(t, http.MethodGet, "/api/users/"+user+"/bills", nil))
	if len(bills) != 1 || bills[0].EffectiveCost.Cents != 60000 {
		t.Fatalf("bills = %+v, want one with effective cost 60000", bills)
	}

	if rr := ts.do(t, http.MethodDelete, "/api/transactions/"+txs[0].ID.String(), nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodDelete, "/api/transactions/"+txs[0].ID.String(), nil); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
	if rr := ts.do(t, http.MethodDelete, "/api/bills/not-a-uuid", nil); rr.Code != http.StatusNotFound {
		t.Errorf("malformed id status = %d, want 404", rr.Code)
	}
}

func TestGoalReportFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)
	base := "/api/users/" + user

	for _, req := range []struct {
		path string
		body map[string]any
	}{
		{base + "/incomes", map[string]any{"name": "Salary", "amount": "5000", "first_payment": "2025-01-05", "frequency": "monthly"}},
		{base + "/bills", map[string]any{"name": "Rent", "amount": "1500", "category": "housing", "first_installment": "2025-03-01", "recurrence": "monthly"}},
		{base + "/transactions", map[string]any{"name": "Dinner", "amount": "200", "category": "dining", "date": "2025-03-12"}},
	} {
		if rr := ts.do(t, http.MethodPost, req.path, req.body); rr.Code != http.StatusCreated {
			t.Fatalf("POST %s: status %d body %s", req.path, rr.Code, rr.Body)
		}
	}

	rr := ts.do(t, http.MethodPost, base+"/goals", map[string]any{
		"name":          "House",
		"method":        "fifty_thirty_twenty",
		"target_amount": "10000",
		"start_date":    "2025-01-01",
		"auto_classify": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal: status %d body %s", rr.Code, rr.Body)
	}
	goal := decode[goalView](t, rr)
	if goal.Percentages["savings"] != "0.2" {
		t.Errorf("savings percentage = %q, want 0.2", goal.Percentages["savings"])
	}
	goalPath := "/api/goals/" + goal.ID.String()

	rr = ts.do(t, http.MethodGet, goalPath+"/report?month=2025-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report: status %d body %s", rr.Code, rr.Body)
	}
	report := decode[reportView](t, rr)
	if report.Income.Cents != 500000 {
		t.Errorf("income = %d, want 500000", report.Income.Cents)
	}
	if report.Spending.Needs.Cents != 150000 {
		t.Errorf("needs = %d, want 150000", report.Spending.Needs.Cents)
	}
	if report.Spending.Wants.Cents != 20000 {
		t.Errorf("wants = %d, want 20000", report.Spending.Wants.Cents)
	}
	if report.Targets["savings"].Cents != 100000 {
		t.Errorf("savings target = %d, want 100000", report.Targets["savings"].Cents)
	}

	if rr := ts.do(t, http.MethodGet, goalPath+"/report?month=March", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status = %d, want 422", rr.Code)
	}

	rr = ts.do(t, http.MethodPut, goalPath+"/classifications", map[string]string{
		"context": "transaction", "category": "dining", "type": "need",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("classify: status %d body %s", rr.Code, rr.Body)
	}
	report = decode[reportView](t, ts.do(t, http.MethodGet, goalPath+"/report?month=2025-03", nil))
	if report.Spending.Needs.Cents != 170000 {
		t.Errorf("needs after reclassify = %d, want 170000 (stale cache?)", report.Spending.Needs.Cents)
	}

	rr = ts.do(t, http.MethodPut, goalPath+"/classifications", map[string]string{
		"context": "transaction", "category": "dining", "type": "luxury",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad type status = %d, want 422", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, goalPath+"/months/2025-03/savings", map[string]string{"amount": "-120,50"})
	if rr.Code != http.StatusOK {
		t.Fatalf("log savings: status %d body %s", rr.Code, rr.Body)
	}
	snap := decode[snapshotView](t, rr)
	if !snap.IsMonthComplete || snap.ActualSavings == nil || snap.ActualSavings.Cents != -12050 {
		t.Errorf("snapshot = %+v, want complete with -12050 actual savings", snap)
	}

	report = decode[reportView](t, ts.do(t, http.MethodGet, goalPath+"/report?month=2025-03", nil))
	if !report.MonthComplete {
		t.Error("expected report for logged month to be complete")
	}
}

func TestUpdateGoal(t *testing.T) {
	ts := newTestServer(t, nil)
	user := ts.createUser(t)

	rr := ts.do(t, http.MethodPost, "/api/users/"+user+"/goals", map[string]any{
		"name": "Trip", "method": "fifty_thirty_twenty", "start_date": "2025-01-01", "target_date": "2025-12-31",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal: status %d body %s", rr.Code, rr.Body)
	}
	goalPath := "/api/goals/" + decode[goalView](t, rr).ID.String()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		check      func(t *testing.T, g goalView)
	}{
		{
			name:       "rename",
			body:       map[string]any{"name": "Japan"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, g goalView) {
				if g.Name != "Japan" {
					t.Errorf("name = %q", g.Name)
				}
			},
		},
		{
			name:       "custom percentages",
			body:       map[string]any{"custom_percentages": map[string]string{"needs": "0.6", "wants": "0.2", "savings": "0.2"}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, g goalView) {
				if !g.CustomPercentages || g.Percentages["needs"] != "0.6" {
					t.Errorf("percentages = %v", g.Percentages)
				}
			},
		},
		{
			name:       "percentages over one",
			body:       map[string]any{"custom_percentages": map[string]string{"needs": "0.9", "wants": "0.9"}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "target date before start",
			body:       map[string]any{"target_date": "2024-06-01"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "clear target date",
			body:       map[string]any{"clear_target_date": true},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, g goalView) {
				if g.TargetDate != nil {
					t.Errorf("target date = %v, want cleared", g.TargetDate)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPatch, goalPath, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
			if tt.check != nil {
				tt.check(t, decode[goalView](t, rr))
			}
		})
	}

	if rr := ts.do(t, http.MethodDelete, goalPath, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, goalPath, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted goal status = %d, want 404", rr.Code)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.RateLimit = 2 })

	for i := 0; i < 2; i++ {
		if rr := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "u"}); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := ts.do(t, http.MethodPost, "/api/users", map[string]string{"name": "u"})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third write status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rr := ts.do(t, http.MethodGet, "/api/users", nil); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/api/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
}
