package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// ProviderConfig selects the spreadsheet each user's ledger lives in.
type ProviderConfig struct {
	// SpreadsheetID, when set, is used for every user.
	SpreadsheetID string

	// SpreadsheetName is looked up in the user's Drive when SpreadsheetID is empty.
	SpreadsheetName string

	Layout Layout
}

// Provider opens a Store per request with the caller's own credentials, so
// each user sees only the spreadsheets shared with them. Users without an
// access token (background jobs) fall back to the options passed to NewProvider.
type Provider struct {
	cfg  ProviderConfig
	opts []option.ClientOption

	mu  sync.Mutex
	ids map[string]string // email -> resolved spreadsheet ID
}

// NewProvider creates a Provider.
func NewProvider(cfg ProviderConfig, opts ...option.ClientOption) *Provider {
	return &Provider{cfg: cfg, opts: opts, ids: make(map[string]string)}
}

func (p *Provider) clientOptions(user identity.User) []option.ClientOption {
	if ts := user.TokenSource(); ts != nil {
		return []option.ClientOption{option.WithTokenSource(ts)}
	}
	return p.opts
}

// StoreFor implements ledger.Provider.
func (p *Provider) StoreFor(ctx context.Context, user identity.User) (ledger.Store, error) {
	opts := p.clientOptions(user)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("StoreFor: creating sheets service: %w", err)
	}

	id, err := p.spreadsheetID(ctx, user, opts)
	if err != nil {
		return nil, fmt.Errorf("StoreFor: %w", err)
	}

	return NewStore(svc, id, p.cfg.Layout), nil
}

func (p *Provider) spreadsheetID(ctx context.Context, user identity.User, opts []option.ClientOption) (string, error) {
	if p.cfg.SpreadsheetID != "" {
		return p.cfg.SpreadsheetID, nil
	}

	p.mu.Lock()
	id, ok := p.ids[user.Email]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("creating drive service: %w", err)
	}

	id, err = FindSpreadsheet(ctx, driveSvc, p.cfg.SpreadsheetName)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.ids[user.Email] = id
	p.mu.Unlock()
	return id, nil
}

// FindSpreadsheet returns the ID of the most recently modified spreadsheet
// named name.
func FindSpreadsheet(ctx context.Context, svc *drive.Service, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)

	list, err := svc.Files.List().
		Q(q).
		OrderBy("modifiedTime desc").
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("FindSpreadsheet: listing files: %w", translate(err))
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("FindSpreadsheet: %q: %w", name, ErrSpreadsheetNotFound)
	}
	return list.Files[0].Id, nil
}

// Ensure Provider implements ledger.Provider.
var _ ledger.Provider = (*Provider)(nil)
