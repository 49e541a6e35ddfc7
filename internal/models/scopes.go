package models

// Scope constants define all valid scopes in the system
const (
	// Identity provider: report attempts and read lock status
	ScopeGuardAttempts = "guard.attempts"

	// Administrator actions
	ScopeGuardAdmin = "guard.admin"

	// Wildcard scope - grants all permissions
	ScopeAll = "*"
)

// AllValidScopes is the whitelist of all allowed scopes
var AllValidScopes = map[string]bool{
	ScopeGuardAttempts: true,
	ScopeGuardAdmin:    true,
	ScopeAll:           true,
}

// IsValidScope checks if a scope exists in the whitelist
func IsValidScope(scope string) bool {
	return AllValidScopes[scope]
}

// HasScope checks if the granted scopes satisfy the required scope
func HasScope(granted []string, required string) bool {
	for _, s := range granted {
		if s == ScopeAll || s == required {
			return true
		}
	}
	return false
}
