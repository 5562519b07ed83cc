package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// RowAttachment mirrors one attachments table row
type RowAttachment struct {
	ID        string
	URL       string
	Filename  string
	SHA256    string
	SizeBytes int64
	Status    string
	FetchedAt *time.Time
}

// RowContact mirrors one contacts table row
type RowContact struct {
	Kind     string
	FullName string
	Email    string
	Phone    string
	Title    string
}

// RowAward mirrors the awards table row. Dates stay in the source's
// string form
type RowAward struct {
	Date        string
	Number      string
	Amount      *float64
	AwardeeName string
	AwardeeUEI  string
}

func (r *queries) Head(ctx context.Context, noticeID string) (RowOpportunity, bool, error) {
	row := r.q.QueryRow(ctx,
		"SELECT "+opportunityColumns+" FROM opportunities o WHERE o.notice_id = $1",
		noticeID,
	)
	ro, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RowOpportunity{}, false, nil
	}
	if err != nil {
		return RowOpportunity{}, false, perr.FromPostgresf(err, "opportunities: get %s", noticeID)
	}
	return ro, true, nil
}

func (r *queries) DescriptionFor(ctx context.Context, noticeID string) (string, bool, error) {
	var body string
	err := r.q.QueryRow(ctx, `
		SELECT body FROM descriptions WHERE notice_id = $1
	`, noticeID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.FromPostgresf(err, "opportunities: description for %s", noticeID)
	}
	return body, true, nil
}

func (r *queries) AttachmentsFor(ctx context.Context, noticeID string) ([]RowAttachment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, url, filename, sha256, size_bytes, status, fetched_at
		FROM attachments
		WHERE notice_id = $1
		ORDER BY filename, url
	`, noticeID)
	if err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: attachments for %s", noticeID)
	}
	defer rows.Close()

	var out []RowAttachment
	for rows.Next() {
		var a RowAttachment
		if err := rows.Scan(&a.ID, &a.URL, &a.Filename, &a.SHA256, &a.SizeBytes, &a.Status, &a.FetchedAt); err != nil {
			return nil, perr.FromPostgres(err, "opportunities: scan attachment")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: attachments for %s", noticeID)
	}
	return out, nil
}

func (r *queries) ContactsFor(ctx context.Context, noticeID string) ([]RowContact, error) {
	rows, err := r.q.Query(ctx, `
		SELECT kind, full_name, email, phone, title
		FROM contacts
		WHERE notice_id = $1
		ORDER BY kind, full_name
	`, noticeID)
	if err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: contacts for %s", noticeID)
	}
	defer rows.Close()

	var out []RowContact
	for rows.Next() {
		var c RowContact
		if err := rows.Scan(&c.Kind, &c.FullName, &c.Email, &c.Phone, &c.Title); err != nil {
			return nil, perr.FromPostgres(err, "opportunities: scan contact")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "opportunities: contacts for %s", noticeID)
	}
	return out, nil
}

func (r *queries) AwardFor(ctx context.Context, noticeID string) (RowAward, bool, error) {
	var a RowAward
	err := r.q.QueryRow(ctx, `
		SELECT award_date, award_number, award_amount, awardee_name, awardee_uei
		FROM awards
		WHERE notice_id = $1
	`, noticeID).Scan(&a.Date, &a.Number, &a.Amount, &a.AwardeeName, &a.AwardeeUEI)
	if errors.Is(err, sql.ErrNoRows) {
		return RowAward{}, false, nil
	}
	if err != nil {
		return RowAward{}, false, perr.FromPostgresf(err, "opportunities: award for %s", noticeID)
	}
	return a, true, nil
}
