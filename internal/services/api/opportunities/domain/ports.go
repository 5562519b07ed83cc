package domain

import "context"

// ServicePort is the read surface the opportunities module exposes
type ServicePort interface {
	// Query pages through records matching a criteria tree, structured
	// filters, or everything when the input carries neither
	Query(ctx context.Context, in QueryInput) (QueryResp, error)

	// Search ranks records whose description matches a web style query
	Search(ctx context.Context, in SearchInput) (SearchResp, error)

	// Get returns one record with description, attachments, contacts,
	// and award
	Get(ctx context.Context, noticeID string) (DetailResp, error)
}
