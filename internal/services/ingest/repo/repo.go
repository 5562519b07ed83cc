// Package repo provides postgres access for detector writes
package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

func (r *queries) Lookup(ctx context.Context, noticeID string) (domain.Stored, bool, error) {
	var st domain.Stored
	err := r.q.QueryRow(ctx, `
		SELECT content_hash, version, last_changed_at
		FROM opportunities
		WHERE notice_id = $1
	`, noticeID).Scan(&st.ContentHash, &st.Version, &st.LastChangedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stored{}, false, nil
	}
	if err != nil {
		return domain.Stored{}, false, perr.FromPostgresf(err, "lookup opportunity %s", noticeID)
	}
	return st, true, nil
}

func (r *queries) Insert(ctx context.Context, o domain.Opportunity) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO opportunities (
			notice_id, title, agency, sub_tier, office, notice_type, status,
			posted_at, updated_at, response_deadline, naics_codes, set_aside,
			archived, content_hash, version, first_seen_at, last_seen_at,
			last_changed_at, raw
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, 1, $15, $15,
			$15, $16
		)
	`,
		o.NoticeID, o.Title, o.Agency, o.SubTier, o.Office, o.NoticeType, o.Status,
		dayOrNil(o.PostedAt), o.UpdatedAt, o.ResponseDeadline, o.NAICSCodes, o.SetAside,
		o.Archived, o.ContentHash, o.FirstSeenAt, rawOrNil(o.Raw),
	)
	if err != nil {
		return perr.FromPostgresf(err, "insert opportunity %s", o.NoticeID)
	}
	return nil
}

func (r *queries) UpdateChanged(ctx context.Context, o domain.Opportunity) (int, error) {
	var version int
	err := r.q.QueryRow(ctx, `
		UPDATE opportunities SET
			title = $2,
			agency = $3,
			sub_tier = $4,
			office = $5,
			notice_type = $6,
			status = $7,
			posted_at = $8,
			updated_at = $9,
			response_deadline = $10,
			naics_codes = $11,
			set_aside = $12,
			archived = $13,
			content_hash = $14,
			version = version + 1,
			last_seen_at = $15,
			last_changed_at = $15,
			raw = $16
		WHERE notice_id = $1
		RETURNING version
	`,
		o.NoticeID, o.Title, o.Agency, o.SubTier, o.Office, o.NoticeType, o.Status,
		dayOrNil(o.PostedAt), o.UpdatedAt, o.ResponseDeadline, o.NAICSCodes, o.SetAside,
		o.Archived, o.ContentHash, o.LastChangedAt, rawOrNil(o.Raw),
	).Scan(&version)
	if err != nil {
		return 0, perr.FromPostgresf(err, "update opportunity %s", o.NoticeID)
	}
	return version, nil
}

func (r *queries) TouchSeen(ctx context.Context, noticeID string, seenAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE opportunities SET last_seen_at = $2 WHERE notice_id = $1
	`, noticeID, seenAt)
	if err != nil {
		return perr.FromPostgresf(err, "touch opportunity %s", noticeID)
	}
	return nil
}

// ReplaceAward swaps the award row wholesale; nil clears it
func (r *queries) ReplaceAward(ctx context.Context, noticeID string, a *domain.Award) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM awards WHERE notice_id = $1`, noticeID); err != nil {
		return perr.FromPostgresf(err, "clear award %s", noticeID)
	}
	if a == nil {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO awards (notice_id, award_date, award_number, award_amount, awardee_name, awardee_uei)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, noticeID, a.AwardDate, a.AwardNumber, a.AwardAmount, a.AwardeeName, a.AwardeeUEI)
	if err != nil {
		return perr.FromPostgresf(err, "insert award %s", noticeID)
	}
	return nil
}

// ReplaceContacts swaps the contact rows wholesale
func (r *queries) ReplaceContacts(ctx context.Context, noticeID string, cs []domain.Contact) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM contacts WHERE notice_id = $1`, noticeID); err != nil {
		return perr.FromPostgresf(err, "clear contacts %s", noticeID)
	}
	for _, c := range cs {
		_, err := r.q.Exec(ctx, `
			INSERT INTO contacts (id, notice_id, kind, full_name, email, phone, title)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.NewString(), noticeID, c.Kind, c.FullName, c.Email, c.Phone, c.Title)
		if err != nil {
			return perr.FromPostgresf(err, "insert contact %s", noticeID)
		}
	}
	return nil
}

func (r *queries) UpsertDescription(ctx context.Context, noticeID, body string, fetchedAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO descriptions (notice_id, body, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (notice_id) DO UPDATE
		SET body = excluded.body, fetched_at = excluded.fetched_at
	`, noticeID, body, fetchedAt)
	if err != nil {
		return perr.FromPostgresf(err, "upsert description %s", noticeID)
	}
	return nil
}

func (r *queries) DescriptionState(ctx context.Context, noticeID string) (time.Time, bool, error) {
	var fetchedAt time.Time
	err := r.q.QueryRow(ctx, `
		SELECT fetched_at FROM descriptions WHERE notice_id = $1
	`, noticeID).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, perr.FromPostgresf(err, "description state %s", noticeID)
	}
	return fetchedAt, true, nil
}

func (r *queries) EnsureAttachment(ctx context.Context, noticeID, url, filename string) (string, string, bool, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO attachments (id, notice_id, url, filename, status)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (notice_id, url) DO NOTHING
		RETURNING id
	`, uuid.NewString(), noticeID, url, filename).Scan(&id)
	if err == nil {
		return id, domain.AttachmentPending, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", "", false, perr.FromPostgresf(err, "ensure attachment %s", noticeID)
	}

	// Link already recorded; report its current state
	var status string
	err = r.q.QueryRow(ctx, `
		SELECT id, status FROM attachments WHERE notice_id = $1 AND url = $2
	`, noticeID, url).Scan(&id, &status)
	if err != nil {
		return "", "", false, perr.FromPostgresf(err, "read attachment %s", noticeID)
	}
	return id, status, false, nil
}

func (r *queries) MarkAttachmentFetched(
	ctx context.Context, id string, sum sam.Checksum, storagePath string, fetchedAt time.Time,
) error {
	_, err := r.q.Exec(ctx, `
		UPDATE attachments SET
			status = 'fetched',
			sha256 = $2,
			size_bytes = $3,
			storage_path = $4,
			fetched_at = $5,
			attempts = attempts + 1,
			last_error = ''
		WHERE id = $1
	`, id, sum.SHA256, sum.Size, storagePath, fetchedAt)
	if err != nil {
		return perr.FromPostgresf(err, "mark attachment fetched %s", id)
	}
	return nil
}

func (r *queries) MarkAttachmentFailed(ctx context.Context, id string, errText string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE attachments SET
			status = 'failed',
			attempts = attempts + 1,
			last_error = $2
		WHERE id = $1
	`, id, errText)
	if err != nil {
		return perr.FromPostgresf(err, "mark attachment failed %s", id)
	}
	return nil
}

// dayOrNil maps the zero time to NULL for date columns
func dayOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// rawOrNil keeps empty payloads out of the jsonb column
func rawOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
