package service

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// Emit fans a batch of fresh matches out to the subscribed destinations.
// Each (rule, notice, destination) triple is booked once; the conflict
// key keeps re-emission after a crash from repeating console lines
func (s *Service) Emit(ctx context.Context, evs []rulesdom.AlertEvent) error {
	if len(evs) == 0 {
		return nil
	}
	repo := s.repo()
	log := logger.C(ctx)

	// one destination lookup per rule in the batch
	byRule := map[string][]domain.Destination{}

	for _, ev := range evs {
		dests, ok := byRule[ev.RuleID]
		if !ok {
			var err error
			dests, err = repo.Active(ctx, ev.RuleID)
			if err != nil {
				return err
			}
			byRule[ev.RuleID] = dests
		}
		if len(dests) == 0 {
			log.Debug().Str("rule_id", ev.RuleID).Msg("alerts: no destinations subscribed")
			continue
		}

		for _, d := range dests {
			var status string
			switch d.Method {
			case domain.MethodConsole:
				status = domain.DeliveryLogged
			case domain.MethodWebhook, domain.MethodTransport:
				status = domain.DeliveryRecorded
			default:
				log.Warn().
					Str("destination_id", d.ID).Str("method", string(d.Method)).
					Msg("alerts: unknown destination method skipped")
				continue
			}

			created, err := repo.RecordDelivery(ctx, domain.Delivery{
				RuleID:        ev.RuleID,
				NoticeID:      ev.NoticeID,
				DestinationID: d.ID,
				EmittedAt:     s.now().UTC(),
				Status:        status,
			})
			if err != nil {
				return err
			}
			if !created {
				continue
			}

			if d.Method == domain.MethodConsole {
				log.Info().
					Str("rule_id", ev.RuleID).Str("rule", ev.RuleName).
					Str("notice_id", ev.NoticeID).Time("matched_at", ev.MatchedAt).
					Str("destination_id", d.ID).
					Msg("alerts: match")
			}
		}
	}
	return nil
}

var _ rulesdom.NotifierPort = (*Service)(nil)
