// Package google mirrors goals and monthly snapshots to a Google Sheets
// spreadsheet. Goals and snapshots each live on their own sheet; rows are
// located by goal ID (and month for snapshots) and updated in place.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"finplan/internal/cloud"
	"finplan/internal/core"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultGoalsSheet     = "Goals"
	DefaultSnapshotsSheet = "Snapshots"

	sheetIDCacheTTL = 10 * time.Minute
)

var _ cloud.Mirror = (*Client)(nil)

// Options configures a Client. Exactly one credential source is used, in
// this order: ServiceAccountJSON, ServiceAccountFile, OAuth client + token.
type Options struct {
	SpreadsheetID  string
	GoalsSheet     string
	SnapshotsSheet string

	ServiceAccountJSON []byte
	ServiceAccountFile string

	OAuthClientJSON []byte
	OAuthToken      *oauth2.Token
	// OnTokenRefresh is called with every token the OAuth source mints after
	// the initial one so it can be persisted.
	OnTokenRefresh func(*oauth2.Token) error
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	goalsSheet     string
	snapshotsSheet string

	mu             sync.Mutex
	sheetIDs       map[string]int64
	cacheExpiresAt time.Time
}

// New builds a Sheets-backed mirror.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	c := &Client{
		svc:            svc,
		spreadsheetID:  strings.TrimSpace(opts.SpreadsheetID),
		goalsSheet:     strings.TrimSpace(opts.GoalsSheet),
		snapshotsSheet: strings.TrimSpace(opts.SnapshotsSheet),
	}
	if c.goalsSheet == "" {
		c.goalsSheet = DefaultGoalsSheet
	}
	if c.snapshotsSheet == "" {
		c.snapshotsSheet = DefaultSnapshotsSheet
	}
	return c
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	httpClient := newHTTPClientWithPooling()

	switch {
	case len(opts.ServiceAccountJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials", "size", len(opts.ServiceAccountJSON))
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(opts.ServiceAccountJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case opts.ServiceAccountFile != "":
		b, err := os.ReadFile(opts.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account file", "path", opts.ServiceAccountFile)
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case len(opts.OAuthClientJSON) > 0 && opts.OAuthToken != nil:
		cfg, err := goauth.ConfigFromJSON(opts.OAuthClientJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		// The oauth2 transport picks its base client from the context.
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		ts := cfg.TokenSource(ctx, opts.OAuthToken)
		if opts.OnTokenRefresh != nil {
			ts = &persistingTokenSource{base: ts, last: opts.OAuthToken.AccessToken, save: opts.OnTokenRefresh}
		}
		slog.InfoContext(ctx, "Using OAuth token credentials", "expiry", opts.OAuthToken.Expiry)
		return gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(ctx, oauth2.ReuseTokenSource(opts.OAuthToken, ts))))
	default:
		return nil, errors.New("missing credentials (service account JSON or file, or OAuth client and token)")
	}
}

// persistingTokenSource hands every newly minted token to save.
type persistingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.save(tok); err != nil {
			slog.Warn("Failed to persist refreshed OAuth token", "error", err)
		}
	}
	return tok, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// AccountStatus probes the spreadsheet. Auth and permission failures map to
// a status; anything else is reported as could_not_determine with the error.
func (c *Client) AccountStatus(ctx context.Context) (cloud.AccountStatus, error) {
	if c.svc == nil {
		return cloud.StatusNoAccount, nil
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return statusFromError(err)
}

func statusFromError(err error) (cloud.AccountStatus, error) {
	if err == nil {
		return cloud.StatusAvailable, nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusNotFound:
			return cloud.StatusNoAccount, nil
		case http.StatusForbidden:
			return cloud.StatusRestricted, nil
		}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return cloud.StatusNoAccount, nil
	}
	return cloud.StatusCouldNotDetermine, err
}

func (c *Client) PushGoal(ctx context.Context, g *core.FinancialGoal) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row := goalRow(g)
	return c.upsertRow(ctx, c.goalsSheet, "A:A", row, func(cols []string) bool {
		return len(cols) > 0 && cols[0] == g.ID.String()
	})
}

func (c *Client) PushSnapshot(ctx context.Context, s core.MonthlySpending) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := snapshotRow(s)
	if err != nil {
		return err
	}
	month := s.Month.String()
	return c.upsertRow(ctx, c.snapshotsSheet, "A:B", row, func(cols []string) bool {
		return len(cols) > 1 && cols[0] == s.GoalID.String() && cols[1] == month
	})
}

// upsertRow rewrites the first row matching match, or appends row.
func (c *Client) upsertRow(ctx context.Context, sheet, keyCols string, row []interface{}, match func([]string) bool) error {
	rng := fmt.Sprintf("%s!%s", sheet, keyCols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}

	if idx := findRows(resp.Values, match); len(idx) > 0 {
		target := fmt.Sprintf("%s!A%d", sheet, idx[0])
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", target, err)
		}
		slog.DebugContext(ctx, "Updated mirror row", "sheet", sheet, "row", idx[0])
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:A", sheet), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", sheet, err)
	}
	slog.DebugContext(ctx, "Appended mirror row", "sheet", sheet)
	return nil
}

func (c *Client) DeleteGoal(ctx context.Context, goalID uuid.UUID) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.sheetIDsByTitle(ctx)
	if err != nil {
		return err
	}
	id := goalID.String()
	byID := func(cols []string) bool { return len(cols) > 0 && cols[0] == id }

	var reqs []*gsheet.Request
	for _, sheet := range []string{c.goalsSheet, c.snapshotsSheet} {
		sheetID, ok := ids[sheet]
		if !ok {
			continue
		}
		rng := fmt.Sprintf("%s!A:A", sheet)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		reqs = append(reqs, deleteRowRequests(sheetID, findRows(resp.Values, byID))...)
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows for goal %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Deleted goal from mirror", "goal_id", id, "rows", len(reqs))
	return nil
}

// sheetIDsByTitle resolves sheet titles to their numeric IDs, cached for a
// short while since they only change when someone edits the spreadsheet.
func (c *Client) sheetIDsByTitle(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	if c.sheetIDs != nil && time.Now().Before(c.cacheExpiresAt) {
		ids := c.sheetIDs
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}

	c.mu.Lock()
	c.sheetIDs = ids
	c.cacheExpiresAt = time.Now().Add(sheetIDCacheTTL)
	c.mu.Unlock()
	return ids, nil
}

// InvalidateCache forces the next delete to re-read sheet metadata.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}

// deleteRowRequests builds one DeleteDimension per 1-based row, bottom-up so
// earlier deletions do not shift later ones.
func deleteRowRequests(sheetID int64, rows []int) []*gsheet.Request {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	reqs := make([]*gsheet.Request, 0, len(sorted))
	for _, r := range sorted {
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(r - 1),
					EndIndex:   int64(r),
					// Zero is a valid sheet ID and row index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	return reqs
}

// EnsureHeaders writes the header row on each mirror sheet whose first row
// is empty. The sheets themselves must already exist.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	for sheet, headers := range map[string][]interface{}{
		c.goalsSheet:     goalHeaders,
		c.snapshotsSheet: snapshotHeaders,
	} {
		rng := fmt.Sprintf("%s!1:1", sheet)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		vr := &gsheet.ValueRange{Values: [][]interface{}{headers}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write headers on %s: %w", sheet, err)
		}
		slog.InfoContext(ctx, "Wrote mirror headers", "sheet", sheet)
	}
	return nil
}
