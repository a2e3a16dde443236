package credential

import (
	"errors"
	"time"

	"github.com/modelgate/modelgate/internal/cache"
	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/storage"
	"github.com/modelgate/modelgate/internal/storage/models"
)

const defaultCacheTTL = 5 * time.Minute

// requiredKinds lists what Resolve validates up front per provider. Kinds
// needed only by specific operations (project_id, space_id) are checked at
// the use site via Require.
// A missing azure base URL is an upstream-config failure raised by the route
// builder, so base_url is not required here.
var requiredKinds = map[string][]string{
	"openai":     {KindAPIKey},
	"azure":      {KindAPIKey},
	"anthropic":  {KindAPIKey},
	"gemini":     {KindAPIKey},
	"cohere":     {KindAPIKey},
	"assemblyai": {KindAPIKey},
	"watsonx":    {KindAPIKey, KindBaseURL},
	"bedrock":    {KindAccessKey},
}

// Resolver merges credential sources in precedence order: per-call override,
// then configured values (config file, stored credential), then environment
// aliases. Stored credential lookups are TTL-cached.
type Resolver struct {
	cfg     *config.Config
	storage storage.Storage
	cache   *cache.Cache[*models.Credential]
}

// NewResolver creates a resolver backed by the given config and store.
// A non-positive ttl selects the default stored-credential cache TTL.
func NewResolver(cfg *config.Config, store storage.Storage, ttl time.Duration) (*Resolver, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c, err := cache.New[*models.Credential](ttl)
	if err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg, storage: store, cache: c}, nil
}

// Resolve returns the merged credential for a provider. The region qualifier
// selects region-specific environment aliases and is preserved on the result.
func (r *Resolver) Resolve(provider, region string, override *Override) (*Credential, error) {
	cred := fromEnv(provider, region)

	pc := r.cfg.Provider(provider)

	stored, err := r.stored(provider, pc.CredentialName)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		overlayStored(cred, stored)
	}

	overlayConfig(cred, pc)

	if override != nil {
		overlayOverride(cred, override)
	}

	// The route-derived qualifier always names the region being addressed.
	if region != "" {
		cred.Region = region
	}

	return cred, r.validate(cred)
}

// Invalidate drops the cached default credential for a provider. Call after
// a credential is created, updated, or deleted.
func (r *Resolver) Invalidate(provider string) {
	r.cache.Delete("cred:" + provider)
}

// InvalidateAll drops every cached credential.
func (r *Resolver) InvalidateAll() {
	r.cache.Flush()
}

// stored fetches the configured or default stored credential, caching both
// hits and misses.
func (r *Resolver) stored(provider, name string) (*models.Credential, error) {
	if r.storage == nil {
		return nil, nil
	}

	key := "cred:" + provider
	if name != "" {
		key = "cred:" + provider + ":" + name
	}

	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	var (
		cred *models.Credential
		err  error
	)
	if name != "" {
		cred, err = r.storage.GetCredentialByName(name)
	} else {
		cred, err = r.storage.GetDefaultCredential(provider)
	}
	if errors.Is(err, storage.ErrNotFound) {
		r.cache.Set(key, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.cache.Set(key, cred)
	return cred, nil
}

func (r *Resolver) validate(cred *Credential) error {
	kinds, ok := requiredKinds[cred.Provider]
	if !ok {
		kinds = []string{KindAPIKey}
	}

	for _, kind := range kinds {
		// A bearer token satisfies providers that accept either form.
		if kind == KindAPIKey && cred.Token != "" {
			continue
		}
		if _, err := cred.Require(kind); err != nil {
			return err
		}
	}
	return nil
}

func overlayStored(dst *Credential, src *models.Credential) {
	setIf(&dst.APIKey, src.Data[models.DataAPIKey])
	setIf(&dst.Token, src.Data[models.DataToken])
	setIf(&dst.BaseURL, src.Data[models.DataBaseURL])
	setIf(&dst.ProjectID, src.Data[models.DataProjectID])
	setIf(&dst.SpaceID, src.Data[models.DataSpaceID])
	setIf(&dst.Region, src.Data[models.DataRegion])
	setIf(&dst.AccessKeyID, src.Data[models.DataAccessKeyID])
	setIf(&dst.SecretAccessKey, src.Data[models.DataSecretAccessKey])
	setIf(&dst.SessionToken, src.Data[models.DataSessionToken])
}

func overlayConfig(dst *Credential, src config.ProviderConfig) {
	setIf(&dst.BaseURL, src.BaseURL)
	setIf(&dst.APIVersion, src.APIVersion)
	setIf(&dst.ProjectID, src.ProjectID)
	setIf(&dst.SpaceID, src.SpaceID)
	setIf(&dst.Region, src.Region)
}

func overlayOverride(dst *Credential, src *Override) {
	setIf(&dst.APIKey, src.APIKey)
	setIf(&dst.Token, src.Token)
	setIf(&dst.BaseURL, src.BaseURL)
	setIf(&dst.APIVersion, src.APIVersion)
	setIf(&dst.ProjectID, src.ProjectID)
	setIf(&dst.SpaceID, src.SpaceID)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
