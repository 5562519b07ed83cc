// Package service implements change detection over fetched pages plus the
// follow-up fetch pool for descriptions and attachments
package service

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
)

// Config holds configuration options for the ingest service
type Config struct {
	// Follow-up pool
	Workers      int           // parallel follow-up fetchers; <=0 -> 4
	FetchRetries int           // attempts per follow-up fetch; <=0 -> 5
	RetryBase    time.Duration // base backoff between fetch attempts; <=0 -> 500ms

	// FilesDir is the attachment download root; empty -> "files"
	FilesDir string
}

// Service implements the ingest service
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo] // binds q -> domain.StorageRepo
	Gate   domain.GatewayPort
	Gov    domain.BudgetPort
	Cfg    Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rand  func(n int64) int64
}

// New constructs the ingest service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	gate domain.GatewayPort,
	gov domain.BudgetPort,
	cfg Config,
) *Service {
	if db == nil {
		panic("ingest.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("ingest.Service requires a non nil Repo binder")
	}
	if gate == nil {
		panic("ingest.Service requires a non nil Gateway")
	}
	if gov == nil {
		panic("ingest.Service requires a non nil Budget")
	}
	return &Service{
		DB: db, Binder: binder,
		Gate: gate, Gov: gov,
		Cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
		rand:  rand.Int63n,
	}
}

// ProcessPage classifies every record on one fetched page inside the
// caller's transaction. Each record runs under a savepoint so a
// duplicate-key race with another tier skips that record only; any other
// failure aborts the page and the caller's transaction with it
func (s *Service) ProcessPage(ctx context.Context, q repokit.Queryer, recs []domain.Record) (domain.PageResult, error) {
	repo := s.Binder.Bind(q)
	now := s.now().UTC()

	var res domain.PageResult
	for _, rec := range recs {
		if strings.TrimSpace(rec.NoticeID) == "" {
			logger.C(ctx).Warn().Msg("ingest: record without notice id skipped")
			continue
		}
		// re-declaring the same savepoint name replaces the prior one
		if _, err := q.Exec(ctx, `SAVEPOINT rec`); err != nil {
			return res, perr.FromPostgres(err, "ingest: savepoint")
		}
		out, fus, err := s.processRecord(ctx, repo, rec, now)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
				if _, rbErr := q.Exec(ctx, `ROLLBACK TO SAVEPOINT rec`); rbErr != nil {
					return res, perr.FromPostgres(rbErr, "ingest: rollback savepoint")
				}
				logger.C(ctx).Warn().
					Str("notice_id", strings.TrimSpace(rec.NoticeID)).
					Msg("ingest: concurrent insert detected, record skipped")
				res.Conflicts++
				continue
			}
			return res, err
		}

		res.Processed++
		switch out.Action {
		case domain.ActionCreated:
			res.Created++
		case domain.ActionUpdated:
			res.Updated++
		case domain.ActionUnchanged:
			res.Unchanged++
		}
		if out.Action != domain.ActionUnchanged {
			res.Events = append(res.Events, domain.Event{
				NoticeID: out.NoticeID,
				Action:   out.Action,
				Version:  out.Version,
			})
		}
		for _, fu := range fus {
			if fu.Kind == domain.FollowAttachment {
				res.AttachmentsQueued++
			}
		}
		res.FollowUps = append(res.FollowUps, fus...)
	}
	return res, nil
}

// processRecord runs the three-way classification for a single record and
// returns the outcome plus any follow-up fetch work it generated
func (s *Service) processRecord(
	ctx context.Context,
	repo domain.StorageRepo,
	rec domain.Record,
	now time.Time,
) (domain.Outcome, []domain.FollowUp, error) {
	o, award, contacts := mapRecord(rec, now)

	stored, known, err := repo.Lookup(ctx, o.NoticeID)
	if err != nil {
		return domain.Outcome{}, nil, err
	}

	if known && stored.ContentHash == o.ContentHash {
		if err := repo.TouchSeen(ctx, o.NoticeID, now); err != nil {
			return domain.Outcome{}, nil, err
		}
		return domain.Outcome{
			NoticeID: o.NoticeID,
			Action:   domain.ActionUnchanged,
			Version:  stored.Version,
		}, nil, nil
	}

	out := domain.Outcome{NoticeID: o.NoticeID}
	if !known {
		if err := repo.Insert(ctx, o); err != nil {
			return domain.Outcome{}, nil, err
		}
		out.Action = domain.ActionCreated
		out.Version = 1
	} else {
		v, err := repo.UpdateChanged(ctx, o)
		if err != nil {
			return domain.Outcome{}, nil, err
		}
		out.Action = domain.ActionUpdated
		out.Version = v
	}

	if err := repo.ReplaceAward(ctx, o.NoticeID, award); err != nil {
		return domain.Outcome{}, nil, err
	}
	if err := repo.ReplaceContacts(ctx, o.NoticeID, contacts); err != nil {
		return domain.Outcome{}, nil, err
	}

	fus, err := s.collectFollowUps(ctx, repo, rec, o, now)
	if err != nil {
		return domain.Outcome{}, nil, err
	}
	return out, fus, nil
}

// collectFollowUps stores inline description text directly and queues
// fetch work for everything that needs a further upstream call. Only
// created and updated records reach here
func (s *Service) collectFollowUps(
	ctx context.Context,
	repo domain.StorageRepo,
	rec domain.Record,
	o domain.Opportunity,
	now time.Time,
) ([]domain.FollowUp, error) {
	var fus []domain.FollowUp

	if body, ok := rec.InlineDescription(); ok {
		if err := repo.UpsertDescription(ctx, o.NoticeID, body, now); err != nil {
			return nil, err
		}
	} else if href := rec.DescriptionHref(); href != "" {
		fetchedAt, have, err := repo.DescriptionState(ctx, o.NoticeID)
		if err != nil {
			return nil, err
		}
		// a sibling tier may have fetched it this very moment
		if !have || fetchedAt.Before(o.LastChangedAt) {
			fus = append(fus, domain.FollowUp{
				Kind:     domain.FollowDescription,
				NoticeID: o.NoticeID,
				URL:      href,
			})
		}
	}

	for _, link := range rec.ResourceLinks {
		target := strings.TrimSpace(link.Target())
		if target == "" {
			continue
		}
		name := attachmentName(link.FileName, target)
		id, status, created, err := repo.EnsureAttachment(ctx, o.NoticeID, target, name)
		if err != nil {
			return nil, err
		}
		// fresh rows and rows a previous run left pending both need a fetch
		if created || status == domain.AttachmentPending {
			fus = append(fus, domain.FollowUp{
				Kind:         domain.FollowAttachment,
				NoticeID:     o.NoticeID,
				URL:          target,
				AttachmentID: id,
				Filename:     name,
			})
		}
	}
	return fus, nil
}

// attachmentName prefers the declared file name and falls back to the last
// path segment of the link
func attachmentName(declared, target string) string {
	if name := strings.TrimSpace(declared); name != "" {
		return name
	}
	tail := target
	if i := strings.IndexAny(tail, "?#"); i >= 0 {
		tail = tail[:i]
	}
	tail = strings.TrimRight(tail, "/")
	if i := strings.LastIndexByte(tail, '/'); i >= 0 {
		tail = tail[i+1:]
	}
	if tail == "" {
		return "attachment"
	}
	return tail
}

// sleepCtx sleeps for d or returns early if ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
