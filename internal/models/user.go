package models

// Role est le rôle applicatif d'un utilisateur, résolu une seule fois par
// requête par le middleware JWT puis vérifié de façon typée (pas de
// comparaison de chaînes dispersée dans les handlers).
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// ParseRole normalise un claim de rôle. Toute valeur inconnue retombe sur
// "customer" : on ne refuse pas la requête, on refuse juste les privilèges.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSeller:
		return RoleSeller
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

type User struct {
	ID         string `json:"user_id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	Password   string `json:"-"`
	Role       Role   `json:"role,omitempty"`
	Provider   string `json:"provider,omitempty"`
	ProviderID string `json:"-"`
}
