package auth

import (
	"context"

	"autoservice/internal/domain"
)

// Principal аутентифицированный вызывающий: id пользователя и его роли
type Principal struct {
	UserID string        `json:"user_id"`
	Roles  []domain.Role `json:"roles"`
}

func (p Principal) Has(role domain.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool { return p.Has(domain.RoleAdmin) }

// OwnsOrAdmin владелец ресурса либо администратор
func (p Principal) OwnsOrAdmin(ownerID string) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == ownerID)
}

// System внутренний вызывающий для заполнения демо-данных
func System() Principal {
	return Principal{UserID: "system", Roles: []domain.Role{domain.RoleAdmin}}
}

type principalCtxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
