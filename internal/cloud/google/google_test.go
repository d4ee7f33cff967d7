package google

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"finplan/internal/cloud"
	"finplan/internal/core"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("New() err = %v, want missing spreadsheet id", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("New() err = %v, want missing credentials", err)
	}
}

func TestNew_InvalidOAuthClient(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		OAuthClientJSON: []byte("invalid-json"),
		OAuthToken:      &oauth2.Token{AccessToken: "test"},
	})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("New() err = %v, want oauth config error", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := newClient(nil, Options{SpreadsheetID: " id "})
	if c.spreadsheetID != "id" || c.goalsSheet != DefaultGoalsSheet || c.snapshotsSheet != DefaultSnapshotsSheet {
		t.Errorf("newClient = %+v", c)
	}
}

func TestStatusFromError(t *testing.T) {
	netErr := errors.New("dial tcp: timeout")
	tests := []struct {
		name    string
		err     error
		want    cloud.AccountStatus
		wantErr bool
	}{
		{"ok", nil, cloud.StatusAvailable, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, cloud.StatusNoAccount, false},
		{"missing spreadsheet", &googleapi.Error{Code: http.StatusNotFound}, cloud.StatusNoAccount, false},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, cloud.StatusRestricted, false},
		{"revoked token", &oauth2.RetrieveError{}, cloud.StatusNoAccount, false},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, cloud.StatusCouldNotDetermine, true},
		{"network", netErr, cloud.StatusCouldNotDetermine, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := statusFromError(tt.err)
			if got != tt.want {
				t.Errorf("statusFromError() = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("statusFromError() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAccountStatusWithoutService(t *testing.T) {
	c := &Client{}
	got, err := c.AccountStatus(context.Background())
	if err != nil || got != cloud.StatusNoAccount {
		t.Errorf("AccountStatus() = %v, %v", got, err)
	}
	if err := c.PushGoal(context.Background(), &core.FinancialGoal{}); err == nil {
		t.Error("PushGoal without service should fail")
	}
}

func TestSheetIDCacheInvalidate(t *testing.T) {
	c := &Client{}
	c.mu.Lock()
	c.sheetIDs = map[string]int64{"Goals": 1}
	c.cacheExpiresAt = time.Now().Add(time.Minute)
	c.mu.Unlock()

	ids, err := c.sheetIDsByTitle(context.Background())
	if err != nil || ids["Goals"] != 1 {
		t.Fatalf("cached lookup = %v, %v", ids, err)
	}

	c.InvalidateCache()
	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if valid {
		t.Error("cache should be expired after invalidation")
	}
}

type stubSource struct {
	tokens []string
	i      int
}

func (s *stubSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.i]}
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}

func TestPersistingTokenSourceSavesOnlyNewTokens(t *testing.T) {
	var saved []string
	ts := &persistingTokenSource{
		base: &stubSource{tokens: []string{"a", "b", "b"}},
		last: "a",
		save: func(tok *oauth2.Token) error {
			saved = append(saved, tok.AccessToken)
			return nil
		},
	}
	for i := 0; i < 3; i++ {
		if _, err := ts.Token(); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if len(saved) != 1 || saved[0] != "b" {
		t.Errorf("saved = %v, want [b]", saved)
	}
}

func TestDeleteRowRequestsBottomUp(t *testing.T) {
	reqs := deleteRowRequests(0, []int{2, 7, 4})
	if len(reqs) != 3 {
		t.Fatalf("len = %d, want 3", len(reqs))
	}
	want := []int64{6, 3, 1}
	for i, r := range reqs {
		if got := r.DeleteDimension.Range.StartIndex; got != want[i] {
			t.Errorf("request %d StartIndex = %d, want %d", i, got, want[i])
		}
	}
}

func TestGoalRow(t *testing.T) {
	g := core.NewGoal(uuid.New(), "House", core.MethodFiftyThirtyTwenty, core.NewDate(2025, 1, 1))
	target := core.Cents(1200000)
	g.TargetAmount = &target
	row := goalRow(g)
	if len(row) != len(goalHeaders) {
		t.Fatalf("len(row) = %d, want %d", len(row), len(goalHeaders))
	}
	if row[0] != g.ID.String() || row[4] != "12000.00" || row[7] != "" {
		t.Errorf("goalRow = %v", row)
	}
}
