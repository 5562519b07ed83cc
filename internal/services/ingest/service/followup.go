package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
)

// Pool drains follow-up fetch work for one sweep run. Fetches happen
// outside the page transaction so a slow download never holds row locks
type Pool struct {
	ch    chan domain.FollowUp
	wg    sync.WaitGroup
	descs int64
	atts  int64
	fails int64
}

// StartPool spawns the follow-up fetch workers for one sweep run. The
// returned pool must be drained even when the run fails
func (s *Service) StartPool(ctx context.Context) domain.PoolPort {
	w := s.Cfg.Workers
	if w <= 0 {
		w = 4
	}
	p := &Pool{ch: make(chan domain.FollowUp, w*4)}
	p.wg.Add(w)
	for i := 0; i < w; i++ {
		go func() {
			defer p.wg.Done()
			for fu := range p.ch {
				// after cancellation keep consuming without fetching so
				// Submit never blocks on a dead run
				if ctx.Err() != nil {
					continue
				}
				var err error
				switch fu.Kind {
				case domain.FollowDescription:
					if err = s.fetchDescription(ctx, fu); err == nil {
						atomic.AddInt64(&p.descs, 1)
					}
				case domain.FollowAttachment:
					if err = s.fetchAttachment(ctx, fu); err == nil {
						atomic.AddInt64(&p.atts, 1)
					}
				}
				if err != nil {
					atomic.AddInt64(&p.fails, 1)
					logger.C(ctx).Warn().Err(err).
						Str("notice_id", fu.NoticeID).
						Str("url", fu.URL).
						Msg("ingest: follow-up fetch failed")
				}
			}
		}()
	}
	return p
}

// Submit queues follow-up work, blocking only while the buffer is full
func (p *Pool) Submit(fus []domain.FollowUp) {
	for _, fu := range fus {
		p.ch <- fu
	}
}

// Drain closes the queue, waits for in-flight fetches, and reports totals
func (p *Pool) Drain() domain.FollowUpStats {
	close(p.ch)
	p.wg.Wait()
	return domain.FollowUpStats{
		Descriptions: int(atomic.LoadInt64(&p.descs)),
		Attachments:  int(atomic.LoadInt64(&p.atts)),
		Failures:     int(atomic.LoadInt64(&p.fails)),
	}
}

func (s *Service) fetchDescription(ctx context.Context, fu domain.FollowUp) error {
	var body string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		if err := s.Gov.Acquire(ctx, 1); err != nil {
			return err
		}
		text, rate, err := s.Gate.FetchDescription(ctx, fu.URL)
		s.Gov.Sync(budget.FromRate(rate))
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err != nil {
		return err
	}
	return s.repo().UpsertDescription(ctx, fu.NoticeID, body, s.now().UTC())
}

func (s *Service) fetchAttachment(ctx context.Context, fu domain.FollowUp) error {
	// declared names can carry path segments
	name := filepath.Base(fu.Filename)
	dir := filepath.Join(s.filesDir(), fu.NoticeID)
	dst := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "ingest: mkdir %s", dir)
	}

	var sum sam.Checksum
	err := s.withRetry(ctx, func(ctx context.Context) error {
		if err := s.Gov.Acquire(ctx, 1); err != nil {
			return err
		}
		f, err := os.Create(dst)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "ingest: create %s", dst)
		}
		cs, rate, fetchErr := s.Gate.FetchAttachment(ctx, fu.URL, f)
		s.Gov.Sync(budget.FromRate(rate))
		closeErr := f.Close()
		if fetchErr != nil {
			_ = os.Remove(dst)
			return fetchErr
		}
		if closeErr != nil {
			_ = os.Remove(dst)
			return perr.Wrapf(closeErr, perr.ErrorCodeUnknown, "ingest: close %s", dst)
		}
		sum = cs
		return nil
	})
	if err != nil {
		if markErr := s.repo().MarkAttachmentFailed(ctx, fu.AttachmentID, err.Error()); markErr != nil {
			logger.C(ctx).Error().Err(markErr).
				Str("attachment_id", fu.AttachmentID).
				Msg("ingest: recording attachment failure did not stick")
		}
		return err
	}

	// stored relative so the files root can move between hosts
	rel := path.Join(fu.NoticeID, name)
	return s.repo().MarkAttachmentFetched(ctx, fu.AttachmentID, sum, rel, s.now().UTC())
}

// withRetry runs do with jittered exponential backoff while the error
// stays retryable. A budget-exhausted acquire is terminal and surfaces
// immediately
func (s *Service) withRetry(ctx context.Context, do func(context.Context) error) error {
	attempts := s.Cfg.FetchRetries
	if attempts <= 0 {
		attempts = 5
	}
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = do(ctx)
		if last == nil {
			return nil
		}
		if !perr.Retryable(last) || i == attempts-1 {
			break
		}
		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(s.rand(int64(d/2)))
		if err := s.sleep(ctx, j); err != nil {
			return err
		}
	}
	return last
}

func (s *Service) repo() domain.StorageRepo { return s.Binder.Bind(s.DB) }

func (s *Service) filesDir() string {
	if s.Cfg.FilesDir != "" {
		return s.Cfg.FilesDir
	}
	return "files"
}
