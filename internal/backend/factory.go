package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"finplan/internal/amqp"
	"finplan/internal/cloud"
	gcloud "finplan/internal/cloud/google"
	cloudmem "finplan/internal/cloud/memory"
	"finplan/internal/secrets"
	"finplan/internal/services"
	"finplan/internal/storage"
	"finplan/internal/storage/memory"

	"golang.org/x/oauth2"
)

// Open builds the store, the secret store, the cloud mirror and the AMQP
// publisher, then the services on top. AMQP failures are logged and the
// backend runs without publishing; the sync queue still records every
// change.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	b := &Backend{Store: store}
	if b.Secrets, err = openSecrets(store, cfg); err != nil {
		store.Close()
		return nil, err
	}
	if b.Mirror, err = openMirror(ctx, cfg, b.Secrets); err != nil {
		store.Close()
		return nil, err
	}

	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without publishing", "error", err)
		} else {
			slog.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			b.Publisher = client
			publisher = client
		}
	}

	b.Reports = services.NewReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL)
	b.Goals = services.NewGoalService(store, publisher, b.Reports)
	b.Ledger = services.NewLedgerService(store, b.Goals)
	b.Users = services.NewUserService(store, b.Goals)
	b.Bills = services.NewBillProcessor(store)

	syncCfg := services.DefaultSyncProcessorConfig()
	if cfg.SyncInterval > 0 {
		syncCfg.PollInterval = cfg.SyncInterval
	}
	if cfg.SyncBatchSize > 0 {
		syncCfg.BatchSize = cfg.SyncBatchSize
	}
	if cfg.SyncMaxRetries > 0 {
		syncCfg.MaxRetries = cfg.SyncMaxRetries
	}
	b.Sync = services.NewSyncProcessor(store, store, b.Mirror, syncCfg)

	slog.InfoContext(ctx, "Initialized backend",
		"type", cfg.Type,
		"cloud_enabled", cfg.GoogleSpreadsheetID != "",
		"amqp_enabled", b.Publisher != nil)
	return b, nil
}

func openStore(cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

// OpenSecretStore opens only the store and the secret chain, for tools such
// as oauth-init that must run before a mirror can be built. Close the
// returned store when done.
func OpenSecretStore(cfg Config) (secrets.Store, storage.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	sec, err := openSecrets(store, cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return sec, store, nil
}

// openSecrets reads the encrypted database copy first, then the token file.
// Without SECRETS_KEY only the file is used.
func openSecrets(store storage.SecretStore, cfg Config) (secrets.Store, error) {
	remote := secrets.NewFileStore(map[string]string{
		secrets.KeyGoogleOAuthToken: cfg.GoogleOAuthTokenFile,
	})
	if cfg.SecretsKey == "" {
		return secrets.NewFallbackStore(nil, remote), nil
	}
	cipher, err := secrets.NewCipher(cfg.SecretsKey)
	if err != nil {
		return nil, fmt.Errorf("secrets cipher: %w", err)
	}
	return secrets.NewFallbackStore(secrets.NewEncryptedStore(store, cipher), remote), nil
}

// openMirror returns the Google Sheets mirror, or an in-memory one reporting
// no account when no spreadsheet is configured. Queued syncs then stay
// pending until an account is connected.
func openMirror(ctx context.Context, cfg Config, store secrets.Store) (cloud.Mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		m := cloudmem.New()
		m.SetStatus(cloud.StatusNoAccount)
		return m, nil
	}

	opts := gcloud.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		GoalsSheet:         cfg.GoogleGoalsSheet,
		SnapshotsSheet:     cfg.GoogleSnapshotsSheet,
		ServiceAccountJSON: []byte(cfg.GoogleServiceAccountJSON),
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}
	if len(opts.ServiceAccountJSON) == 0 && opts.ServiceAccountFile == "" && cfg.GoogleOAuthClientFile != "" {
		clientJSON, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		tok, err := LoadToken(ctx, store)
		if err != nil {
			return nil, err
		}
		opts.OAuthClientJSON = clientJSON
		opts.OAuthToken = tok
		opts.OnTokenRefresh = func(t *oauth2.Token) error {
			return SaveToken(context.Background(), store, t)
		}
	}

	client, err := gcloud.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
	}
	return client, nil
}

// LoadToken reads the OAuth token from store.
func LoadToken(ctx context.Context, store secrets.Store) (*oauth2.Token, error) {
	raw, err := store.Get(ctx, secrets.KeyGoogleOAuthToken)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil, fmt.Errorf("no OAuth token stored, run oauth-init first: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("load oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes the OAuth token to store as JSON.
func SaveToken(ctx context.Context, store secrets.Store, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode oauth token: %w", err)
	}
	return store.Set(ctx, secrets.KeyGoogleOAuthToken, string(b))
}
