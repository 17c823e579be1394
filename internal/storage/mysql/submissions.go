package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scwatch/internal/domain"
)

func scanSubmissionWithHotel(sc scanner) (domain.SubmissionWithHotel, error) {
	var (
		s                       domain.SubmissionWithHotel
		mvr                     sql.NullFloat64
		proof, reason, reviewer sql.NullString
		reviewedAt              sql.NullTime
		hd                      hotelDest
		status                  string
	)
	dest := []any{
		&s.ID, &s.HotelID, &s.Month, &s.Year, &s.USDAmount, &mvr, &s.Position,
		&proof, &s.SubmitterEmail, &s.SubmitterUserID, &status, &reason,
		&reviewer, &reviewedAt, &s.CreatedAt, &s.UpdatedAt,
	}
	if err := sc.Scan(append(dest, hd.targets()...)...); err != nil {
		return domain.SubmissionWithHotel{}, err
	}
	s.Status = domain.SubmissionStatus(status)
	s.MVRAmount = f64Ptr(mvr)
	s.ProofURL = strPtr(proof)
	s.RejectionReason = strPtr(reason)
	s.ReviewedBy = strPtr(reviewer)
	s.ReviewedAt = timePtr(reviewedAt)
	s.Hotel = hd.hotel()
	return s, nil
}

func (r *Repo) querySubmissions(ctx context.Context, query string, args ...any) ([]domain.SubmissionWithHotel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SubmissionWithHotel{}
	for rows.Next() {
		s, err := scanSubmissionWithHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) InsertSubmission(ctx context.Context, s domain.Submission) error {
	_, err := r.db.ExecContext(ctx, insertSubmissionSQL,
		s.ID, s.HotelID, s.Month, s.Year, s.USDAmount, valF64(s.MVRAmount), s.Position,
		valStr(s.ProofURL), s.SubmitterEmail, s.SubmitterUserID, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *Repo) UpdatePendingSubmission(ctx context.Context, s domain.Submission) error {
	res, err := r.db.ExecContext(ctx, updatePendingSubmissionSQL,
		s.HotelID, s.Month, s.Year, s.USDAmount, valF64(s.MVRAmount), s.Position,
		valStr(s.ProofURL), s.UpdatedAt,
		s.ID, s.SubmitterUserID,
	)
	if err != nil {
		return err
	}
	return r.pendingWriteResult(ctx, res, s.ID)
}

func (r *Repo) DeletePendingSubmission(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, deletePendingSubmissionSQL, id, userID)
	if err != nil {
		return err
	}
	return r.pendingWriteResult(ctx, res, id)
}

func (r *Repo) RejectSubmission(ctx context.Context, id, reviewer, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, rejectSubmissionSQL, reason, reviewer, at, at, id)
	if err != nil {
		return err
	}
	return r.pendingWriteResult(ctx, res, id)
}

// pendingWriteResult turns a zero-row conditional write into ErrNotFound or
// ErrInvalidTransition depending on whether the row still exists.
func (r *Repo) pendingWriteResult(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, submissionStatusSQL, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func (r *Repo) ApproveSubmission(ctx context.Context, id, reviewer string, rec domain.ServiceChargeRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status string
	if err = tx.QueryRowContext(ctx, lockSubmissionSQL, id).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrNotFound
		}
		return err
	}
	if domain.SubmissionStatus(status) != domain.StatusPending {
		return domain.ErrInvalidTransition
	}

	at := rec.UpdatedAt
	if _, err = tx.ExecContext(ctx, upsertRecordSQL,
		rec.ID, rec.HotelID, rec.Month, rec.Year, rec.USDAmount, valF64(rec.MVRAmount), rec.TotalUSD,
		rec.VerificationStatus, valTime(rec.VerifiedAt), valStr(rec.VerifiedBy), rec.CreatedAt, at,
	); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	if _, err = tx.ExecContext(ctx, approveSubmissionSQL, reviewer, at, at, id); err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return tx.Commit()
}

func (r *Repo) GetSubmission(ctx context.Context, id string) (domain.SubmissionWithHotel, error) {
	s, err := scanSubmissionWithHotel(r.db.QueryRowContext(ctx, getSubmissionSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SubmissionWithHotel{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.SubmissionWithHotel, error) {
	return r.querySubmissions(ctx, listSubmissionsByUserSQL, userID)
}

func (r *Repo) ListSubmissions(ctx context.Context, q domain.SubmissionQuery) (domain.SubmissionPage, error) {
	var where []string
	var args []any
	if q.Status != "" && q.Status != "all" {
		where = append(where, "s.status = ?")
		args = append(args, q.Status)
	}
	if q.HotelID != "" {
		where = append(where, "s.hotel_id = ?")
		args = append(args, q.HotelID)
	}
	if q.Atoll != "" {
		where = append(where, "h.atoll = ?")
		args = append(args, q.Atoll)
	}
	if q.Month > 0 {
		where = append(where, "s.month = ?")
		args = append(args, q.Month)
	}
	if q.Year > 0 {
		where = append(where, "s.year = ?")
		args = append(args, q.Year)
	}
	if q.MinAmount != nil {
		where = append(where, "s.usd_amount >= ?")
		args = append(args, *q.MinAmount)
	}
	if q.MaxAmount != nil {
		where = append(where, "s.usd_amount <= ?")
		args = append(args, *q.MaxAmount)
	}
	cond := whereClause(where)

	page := domain.SubmissionPage{Page: q.Page, Per: q.PerPage}
	countSQL := "SELECT COUNT(*) FROM submissions s LEFT JOIN hotels h ON h.id = s.hotel_id" + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&page.Total); err != nil {
		return domain.SubmissionPage{}, err
	}

	offset := (q.Page - 1) * q.PerPage
	if offset < 0 {
		offset = 0
	}
	items, err := r.querySubmissions(ctx,
		selectSubmissionsSQL+cond+" ORDER BY s.created_at ASC LIMIT ? OFFSET ?",
		append(args, q.PerPage, offset)...,
	)
	if err != nil {
		return domain.SubmissionPage{}, err
	}
	page.Items = items
	return page, nil
}

func (r *Repo) ListSubmissionsForExport(ctx context.Context, status string) ([]domain.SubmissionWithHotel, error) {
	if status == "" || status == "all" {
		return r.querySubmissions(ctx, selectSubmissionsSQL+" ORDER BY s.created_at DESC")
	}
	return r.querySubmissions(ctx, selectSubmissionsSQL+" WHERE s.status = ? ORDER BY s.created_at DESC", status)
}

func (r *Repo) CountSubmissionsByStatus(ctx context.Context, userID string) (domain.StatusCounts, error) {
	query := countSubmissionsByStatusSQL
	var args []any
	if userID != "" {
		query += " WHERE submitter_user_id = ?"
		args = append(args, userID)
	}
	rows, err := r.db.QueryContext(ctx, query+" GROUP BY status", args...)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	defer rows.Close()

	var c domain.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, err
		}
		switch domain.SubmissionStatus(status) {
		case domain.StatusPending:
			c.Pending = n
		case domain.StatusApproved:
			c.Approved = n
		case domain.StatusRejected:
			c.Rejected = n
		}
	}
	return c, rows.Err()
}

func (r *Repo) ListSubmissionActivity(ctx context.Context) ([]domain.SubmissionActivity, error) {
	rows, err := r.db.QueryContext(ctx, listSubmissionActivitySQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SubmissionActivity
	for rows.Next() {
		var a domain.SubmissionActivity
		var status string
		var reason sql.NullString
		var reviewed sql.NullTime
		if err := rows.Scan(&a.SubmitterUserID, &a.SubmitterEmail, &status, &reason, &a.CreatedAt, &reviewed); err != nil {
			return nil, err
		}
		a.Status = domain.SubmissionStatus(status)
		a.RejectionReason = strPtr(reason)
		a.ReviewedAt = timePtr(reviewed)
		out = append(out, a)
	}
	return out, rows.Err()
}
