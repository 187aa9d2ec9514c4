package auth

// Known OAuth scopes used by the urgency service.
const (
	ScopeUrgencyRead   = "urgency:read"
	ScopeWellnessRead  = "wellness:read"
	ScopeWellnessWrite = "wellness:write"
)
