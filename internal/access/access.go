package access

import (
	"context"
	"fmt"

	"cafe/internal/apperr"
)

// Capability names one permission-gated operation.
type Capability string

const (
	CategoryCreate Capability = "category.create"
	CategoryDelete Capability = "category.delete"

	MenuCreate Capability = "menu.create"
	MenuUpdate Capability = "menu.update"
	MenuDelete Capability = "menu.delete"

	TableView         Capability = "table.view"
	TableCreate       Capability = "table.create"
	TableDelete       Capability = "table.delete"
	TableChangeStatus Capability = "table.change_status"

	ReservationView   Capability = "reservation.view"
	ReservationCreate Capability = "reservation.create"
	ReservationUpdate Capability = "reservation.update"
	ReservationDelete Capability = "reservation.delete"

	OrderView         Capability = "order.view"
	OrderCreate       Capability = "order.create"
	OrderChangeStatus Capability = "order.change_status"
	OrderItemAdd      Capability = "order.item.add"
	OrderItemChange   Capability = "order.item.change"

	PaymentView         Capability = "payment.view"
	PaymentCreate       Capability = "payment.create"
	PaymentChangeStatus Capability = "payment.change_status"
)

// Capabilities lists every capability.
var Capabilities = []Capability{
	CategoryCreate, CategoryDelete,
	MenuCreate, MenuUpdate, MenuDelete,
	TableView, TableCreate, TableDelete, TableChangeStatus,
	ReservationView, ReservationCreate, ReservationUpdate, ReservationDelete,
	OrderView, OrderCreate, OrderChangeStatus, OrderItemAdd, OrderItemChange,
	PaymentView, PaymentCreate, PaymentChangeStatus,
}

func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller.
type Identity struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Decision is an authorizer verdict.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Authorizer decides whether an identity may exercise a capability.
type Authorizer interface {
	Authorize(ctx context.Context, id Identity, capability Capability) Decision
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, id Identity, capability Capability) Decision

func (f AuthorizerFunc) Authorize(ctx context.Context, id Identity, capability Capability) Decision {
	return f(ctx, id, capability)
}

// AllowAll grants everything. Useful for tests and single-user setups.
var AllowAll Authorizer = AuthorizerFunc(func(context.Context, Identity, Capability) Decision {
	return Allow()
})

type identityKey struct{}

// WithIdentity stores id on ctx for the services to consult.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored on ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Gate is what the services call before every guarded operation.
type Gate struct {
	authorizer Authorizer
}

func NewGate(authorizer Authorizer) *Gate {
	return &Gate{authorizer: authorizer}
}

// Require fails with Unauthenticated when ctx carries no identity and with
// PermissionDenied when the authorizer refuses.
func (g *Gate) Require(ctx context.Context, capability Capability) error {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return apperr.Unauthenticated(string(capability), "authentication required")
	}

	decision := g.authorizer.Authorize(ctx, id, capability)
	if decision.Allowed {
		return nil
	}

	reason := decision.Reason
	if reason == "" {
		reason = fmt.Sprintf("role %q lacks %s", id.Role, capability)
	}
	return apperr.PermissionDenied(string(capability), reason)
}
