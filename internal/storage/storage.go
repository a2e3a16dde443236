// Package storage exposes the persistence layer behind a single facade so
// handlers and middleware never import the sqlite driver directly.
package storage

import (
	"github.com/modelgate/modelgate/internal/storage/models"
	"github.com/modelgate/modelgate/internal/storage/sqlite"
)

// Aliases so callers use storage.X rather than importing models.
type (
	Credential          = models.Credential
	CredentialPreview   = models.CredentialPreview
	ClientAPIKey        = models.ClientAPIKey
	ClientAPIKeyPreview = models.ClientAPIKeyPreview
	RequestLog          = models.RequestLog
	LogFilter           = models.LogFilter
	DailyUsage          = models.DailyUsage
	ModelStats          = models.ModelStats
	UsageStats          = models.UsageStats
	StatsFilter         = models.StatsFilter
)

const (
	RouteCompletions = models.RouteCompletions
	RoutePassthrough = models.RoutePassthrough
)

var MaskSecret = models.MaskSecret

// Sentinel errors surfaced from the sqlite implementation.
var (
	ErrNotFound        = sqlite.ErrNotFound
	ErrDuplicateKey    = sqlite.ErrDuplicateKey
	ErrInvalidInput    = sqlite.ErrInvalidInput
	ErrStorageClosed   = sqlite.ErrStorageClosed
	ErrEncryptionError = sqlite.ErrEncryptionError
)

// CredentialStore persists provider credentials. Secret data is encrypted
// before it reaches the database.
type CredentialStore interface {
	CreateCredential(cred *models.Credential) error
	GetCredential(id string) (*models.Credential, error)
	GetCredentialByName(name string) (*models.Credential, error)
	GetDefaultCredential(provider string) (*models.Credential, error)
	ListCredentials() ([]*models.Credential, error)
	UpdateCredential(cred *models.Credential) error
	DeleteCredential(id string) error
	SetDefaultCredential(id string) error
}

// LogStore records the per-request audit trail.
type LogStore interface {
	LogRequest(log *models.RequestLog) error
	LogRequestsBatch(logs []*models.RequestLog) error
	GetRequestLogs(filter models.LogFilter) ([]*models.RequestLog, error)
	DeleteRequestLogs(olderThan string) (int64, error)
}

// UsageStore maintains daily usage rollups.
type UsageStore interface {
	GetUsageStats(filter models.StatsFilter) (*models.UsageStats, error)
	GetDailyUsage(startDate, endDate string) ([]*models.DailyUsage, error)
	UpdateDailyUsage(usage *models.DailyUsage) error
}

// APIKeyStore manages client API key records.
type APIKeyStore interface {
	CreateAPIKey(key *models.ClientAPIKey) error
	GetAPIKey(id string) (*models.ClientAPIKey, error)
	GetAPIKeyByPrefix(prefix string) ([]*models.ClientAPIKey, error)
	ListAPIKeys() ([]*models.ClientAPIKey, error)
	UpdateAPIKey(key *models.ClientAPIKey) error
	DeleteAPIKey(id string) error
	UpdateAPIKeyLastUsed(id string) error
}

// AdminStore holds the admin password hash.
type AdminStore interface {
	GetAdminPasswordHash() (string, error)
	SetAdminPasswordHash(hash string) error
	HasAdminPassword() (bool, error)
}

// Storage is the full persistence surface the gateway runs against.
type Storage interface {
	CredentialStore
	LogStore
	UsageStore
	APIKeyStore
	AdminStore

	Close() error
}

// NewSQLiteStorage opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}
