package ports

import "github.com/rolegate/portal-client/internal/core/domain"

// CredentialStore persists the current session across process runs.
// Operations are synchronous and touch only the local medium.
type CredentialStore interface {
	// Save writes token and user together; a partial write is never visible.
	Save(session domain.Session) error
	// Load returns false when either half is missing or unreadable. It never
	// fails loudly: corrupt state reads as "no session".
	Load() (domain.Session, bool)
	Clear() error
}
