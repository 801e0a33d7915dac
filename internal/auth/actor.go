package auth

import (
	"context"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleFarmer   Role = "FARMER"
	RoleAdmin    Role = "ADMIN"
)

// Actor is the authenticated principal. Authentication itself is delegated to
// the upstream provider; the gateway forwards identity headers and every
// authorization predicate lives here rather than in handler code.
type Actor struct {
	ID     string
	Role   Role
	FarmID string // set for farmer-role actors
}

func (a Actor) IsFarmer() bool { return a.Role == RoleFarmer || a.Role == RoleAdmin }
func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }

// ManagesFarm reports whether the actor operates the given farm.
func (a Actor) ManagesFarm(farmID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleFarmer && a.FarmID == farmID
}

// CanAdvanceOrder gates forward fulfillment transitions: only the farm side
// moves an order along the chain.
func (a Actor) CanAdvanceOrder(farmID string) bool {
	return a.ManagesFarm(farmID)
}

// CanCancelOrder: either party to the order may request cancellation.
func (a Actor) CanCancelOrder(customerID, farmID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.ID == customerID || a.ManagesFarm(farmID)
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
