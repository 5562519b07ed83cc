package domain

import "context"

// AdminPort is the destination management surface the API mounts
type AdminPort interface {
	Create(ctx context.Context, d Draft) (Destination, error)
	Update(ctx context.Context, id string, p Patch) (Destination, error)
	Get(ctx context.Context, id string) (Destination, error)
	List(ctx context.Context) ([]Destination, error)
	Delete(ctx context.Context, id string) error
}

// StorageRepo is the persistence surface for destinations and deliveries
type StorageRepo interface {
	Insert(ctx context.Context, d Destination) error

	// Update writes target and active flag
	Update(ctx context.Context, d Destination) error

	Get(ctx context.Context, id string) (Destination, bool, error)
	List(ctx context.Context) ([]Destination, error)
	Delete(ctx context.Context, id string) (bool, error)

	// Active lists enabled destinations subscribed to a rule, the
	// rule-scoped ones and the catch-alls both
	Active(ctx context.Context, ruleID string) ([]Destination, error)

	// RecordDelivery books one emission; created is false when the
	// triple was already delivered
	RecordDelivery(ctx context.Context, d Delivery) (bool, error)
}
