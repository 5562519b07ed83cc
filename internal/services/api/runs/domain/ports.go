package domain

import "context"

// ServicePort defines the runs API surface consumed by handlers
type ServicePort interface {
	Recent(ctx context.Context, tier string, limit int) (RunsResp, error)
	Detail(ctx context.Context, id string) (RunDetailResp, error)
	Status(ctx context.Context) (StatusResp, error)
}
