// Command oauth-init runs the OAuth consent flow once and stores the token
// where the backend reads it: the encrypted database copy when SECRETS_KEY is
// set, and GOOGLE_OAUTH_TOKEN_FILE when configured.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"finplan/internal/backend"
	"finplan/internal/cli"
	"finplan/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("oauth_init")

	cfg := config.Load()
	if cfg.GoogleOAuthClientFile == "" {
		logger.Error("GOOGLE_OAUTH_CLIENT_FILE is required")
		os.Exit(1)
	}
	if cfg.GoogleOAuthTokenFile == "" && cfg.SecretsKey == "" {
		logger.Error("set GOOGLE_OAUTH_TOKEN_FILE or SECRETS_KEY to store the token")
		os.Exit(1)
	}
	clientJSON, err := os.ReadFile(cfg.GoogleOAuthClientFile)
	if err != nil {
		logger.Error("Failed to read OAuth client file", "error", err, "path", cfg.GoogleOAuthClientFile)
		os.Exit(1)
	}

	oauthCfg, err := google.ConfigFromJSON(clientJSON, sheets.SpreadsheetsScope)
	if err != nil {
		logger.Error("Invalid OAuth client", "error", err)
		os.Exit(1)
	}

	// The OAuth client must list http://localhost:<port>/callback as an
	// authorized redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	oauthCfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := randomState()
	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() { _ = srv.ListenAndServe() }()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	var code string
	select {
	case code = <-codeCh:
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-sigCh:
		logger.Error("Interrupted")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Error("Token exchange failed", "error", err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	secretStore, store, err := backend.OpenSecretStore(bcfg)
	if err != nil {
		logger.Error("Failed to open secret store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := backend.SaveToken(ctx, secretStore, tok); err != nil {
		logger.Error("Failed to save token", "error", err)
		os.Exit(1)
	}
	logger.Info("OAuth token saved",
		"encrypted_in_database", cfg.SecretsKey != "",
		"token_file", cfg.GoogleOAuthTokenFile)
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "finplan-oauth"
	}
	return hex.EncodeToString(b)
}
