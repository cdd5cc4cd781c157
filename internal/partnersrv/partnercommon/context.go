package partnercommon

import (
	"context"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

// ctxKeyType represents the type for all context keys
type ctxKeyType string

const (
	ctxActorKey       ctxKeyType = "PartnerSrvActor"
	ctxTestContextKey ctxKeyType = "PartnerSrvTestContext"
)

// SubjectType is the type of principal acting on the service.
type SubjectType string

const (
	SubjectTypeOperator SubjectType = "operator"
	SubjectTypeService  SubjectType = "service"
	SubjectTypeSystem   SubjectType = "system"
)

// Actor represents the authenticated principal of a request. Approvals record
// the actor's ID in insurance_packages.approved_by.
type Actor struct {
	// ActorID is the unique identifier of the principal
	ActorID uuid.UUID
	// Subject is the kind of principal
	Subject SubjectType
}

// WithActor stores the request actor in the context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey, actor)
}

// GetActor retrieves the request actor from the context. Returns nil if no
// actor has been set.
func GetActor(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(ctxActorKey).(*Actor); ok {
		return actor
	}
	return nil
}

// WithTestContext marks the context as belonging to a test run.
func WithTestContext(ctx context.Context, v bool) context.Context {
	return context.WithValue(ctx, ctxTestContextKey, v)
}

// IsTestContext reports whether the context belongs to a test run.
func IsTestContext(ctx context.Context) bool {
	v, ok := ctx.Value(ctxTestContextKey).(bool)
	return ok && v
}
