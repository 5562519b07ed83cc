// Package service adapts the alert destination port to the HTTP wire shapes
package service

import (
	"context"
	"time"

	alertsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/domain"
)

// Service defines the service contract for the destinations API
type Service interface{ domain.ServicePort }

// Svc implements the Service interface over the alerts admin port
type Svc struct {
	Admin alertsdom.AdminPort
}

// New creates a destinations API service riding the alerts port
func New(admin alertsdom.AdminPort) *Svc {
	if admin == nil {
		panic("alerts api requires a non nil AdminPort")
	}
	return &Svc{Admin: admin}
}

// Create registers a destination after the engine screens its target
func (s *Svc) Create(ctx context.Context, in domain.CreateDestinationInput) (domain.DestinationRow, error) {
	d, err := s.Admin.Create(ctx, alertsdom.Draft{
		RuleID:   in.RuleID,
		Method:   alertsdom.Method(in.Method),
		Target:   in.Target,
		IsActive: in.Active,
	})
	if err != nil {
		return domain.DestinationRow{}, err
	}
	return toRow(d), nil
}

// Update patches a destination's target or active flag
func (s *Svc) Update(ctx context.Context, id string, in domain.UpdateDestinationInput) (domain.DestinationRow, error) {
	d, err := s.Admin.Update(ctx, id, alertsdom.Patch{
		Target:   in.Target,
		IsActive: in.Active,
	})
	if err != nil {
		return domain.DestinationRow{}, err
	}
	return toRow(d), nil
}

// Get returns one destination
func (s *Svc) Get(ctx context.Context, id string) (domain.DestinationRow, error) {
	d, err := s.Admin.Get(ctx, id)
	if err != nil {
		return domain.DestinationRow{}, err
	}
	return toRow(d), nil
}

// List returns every destination, inactive ones included
func (s *Svc) List(ctx context.Context) (domain.DestinationsResp, error) {
	ds, err := s.Admin.List(ctx)
	if err != nil {
		return domain.DestinationsResp{}, err
	}
	items := make([]domain.DestinationRow, 0, len(ds))
	for _, d := range ds {
		items = append(items, toRow(d))
	}
	return domain.DestinationsResp{Items: items}, nil
}

// Delete removes a destination and its delivery history
func (s *Svc) Delete(ctx context.Context, id string) error {
	return s.Admin.Delete(ctx, id)
}

func toRow(d alertsdom.Destination) domain.DestinationRow {
	return domain.DestinationRow{
		ID:        d.ID,
		RuleID:    d.RuleID,
		Method:    string(d.Method),
		Target:    d.Target,
		Active:    d.IsActive,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
