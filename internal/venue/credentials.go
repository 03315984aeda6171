package venue

import "sync"

// Credentials is the full set needed to trade: the bearer token for the
// HTTP API plus the addresses and key for order signing.
type Credentials struct {
	AuthToken    string
	WalletAddr   string
	MultisigAddr string
	PrivateKey   string
}

// CredentialStore holds the process-wide auth token. The token rotates
// while tasks run (the venue expires sessions), so gateways read it
// fresh at each task start instead of caching it for a task's lifetime.
type CredentialStore struct {
	mu   sync.Mutex
	base Credentials
}

// NewCredentialStore seeds the store from environment-derived values.
func NewCredentialStore(base Credentials) *CredentialStore {
	return &CredentialStore{base: base}
}

// SetAuthToken replaces the shared token for all subsequently started
// tasks.
func (s *CredentialStore) SetAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base.AuthToken = token
}

// Resolve returns a credential snapshot. A non-empty override wins over
// the shared token; addresses and key always come from the base set.
func (s *CredentialStore) Resolve(tokenOverride string) Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := s.base
	if tokenOverride != "" {
		creds.AuthToken = tokenOverride
	}
	return creds
}

// Missing lists the unset fields of a credential snapshot.
func (c Credentials) Missing() []string {
	var missing []string
	if c.AuthToken == "" {
		missing = append(missing, "auth token")
	}
	if c.WalletAddr == "" {
		missing = append(missing, "wallet address")
	}
	if c.MultisigAddr == "" {
		missing = append(missing, "multisig address")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "private key")
	}
	return missing
}
