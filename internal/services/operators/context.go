package operators

import (
	"context"

	"github.com/valentina-app/backend/internal/domain/enums"
)

type principalKey struct{}

// Principal is the authenticated operator attached to an admin request.
type Principal struct {
	OperatorID string
	Username   string
	Role       enums.OperatorRole
	SID        string
}

func (p Principal) IsOwner() bool {
	return p.Role == enums.OperatorRoleOwner
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
