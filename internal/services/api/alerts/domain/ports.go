package domain

import "context"

// ServicePort defines the destinations API surface consumed by handlers
type ServicePort interface {
	Create(ctx context.Context, in CreateDestinationInput) (DestinationRow, error)
	Update(ctx context.Context, id string, in UpdateDestinationInput) (DestinationRow, error)
	Get(ctx context.Context, id string) (DestinationRow, error)
	List(ctx context.Context) (DestinationsResp, error)
	Delete(ctx context.Context, id string) error
}
