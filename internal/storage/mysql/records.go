package mysql

import (
	"context"
	"database/sql"
	"errors"

	"scwatch/internal/domain"
)

func recordTargets(rec *domain.ServiceChargeRecord, mvr *sql.NullFloat64, at *sql.NullTime, by *sql.NullString) []any {
	return []any{
		&rec.ID, &rec.HotelID, &rec.Month, &rec.Year, &rec.USDAmount, mvr, &rec.TotalUSD,
		&rec.VerificationStatus, &rec.VerificationCount, at, by,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
}

func scanRecord(sc scanner) (domain.ServiceChargeRecord, error) {
	var rec domain.ServiceChargeRecord
	var mvr sql.NullFloat64
	var at sql.NullTime
	var by sql.NullString
	if err := sc.Scan(recordTargets(&rec, &mvr, &at, &by)...); err != nil {
		return domain.ServiceChargeRecord{}, err
	}
	rec.MVRAmount = f64Ptr(mvr)
	rec.VerifiedAt = timePtr(at)
	rec.VerifiedBy = strPtr(by)
	return rec, nil
}

func scanRecordWithHotel(sc scanner) (domain.RecordWithHotel, error) {
	var out domain.RecordWithHotel
	var mvr sql.NullFloat64
	var at sql.NullTime
	var by sql.NullString
	var hd hotelDest
	dest := recordTargets(&out.ServiceChargeRecord, &mvr, &at, &by)
	if err := sc.Scan(append(dest, hd.targets()...)...); err != nil {
		return domain.RecordWithHotel{}, err
	}
	out.MVRAmount = f64Ptr(mvr)
	out.VerifiedAt = timePtr(at)
	out.VerifiedBy = strPtr(by)
	out.Hotel = hd.hotel()
	return out, nil
}

func (r *Repo) queryRecordsWithHotel(ctx context.Context, query string, args ...any) ([]domain.RecordWithHotel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RecordWithHotel{}
	for rows.Next() {
		rec, err := scanRecordWithHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) GetRecord(ctx context.Context, hotelID string, month, year int) (domain.ServiceChargeRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, getRecordSQL, hotelID, month, year))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ServiceChargeRecord{}, domain.ErrNotFound
	}
	return rec, err
}

// ListLeaderboard returns verified records of active hotels for one period,
// highest total first.
func (r *Repo) ListLeaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.RecordWithHotel, error) {
	where := []string{
		"r.month = ?", "r.year = ?",
		"r.verification_status = 'verified'",
		"h.status = 'active'",
	}
	args := []any{q.Month, q.Year}
	if q.Atoll != "" {
		where = append(where, "h.atoll = ?")
		args = append(args, q.Atoll)
	}
	if q.Type != "" {
		where = append(where, "h.type = ?")
		args = append(args, q.Type)
	}
	return r.queryRecordsWithHotel(ctx,
		selectRecordsWithHotelSQL+whereClause(where)+" ORDER BY r.total_usd DESC, h.name",
		args...,
	)
}

func (r *Repo) ListHotelRecords(ctx context.Context, hotelID string, limit int) ([]domain.ServiceChargeRecord, error) {
	rows, err := r.db.QueryContext(ctx, listHotelRecordsSQL, hotelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ServiceChargeRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) ListRecordsForExport(ctx context.Context) ([]domain.RecordWithHotel, error) {
	return r.queryRecordsWithHotel(ctx, listRecordsForExportSQL)
}

func (r *Repo) ListVerifiedTotals(ctx context.Context) ([]domain.RecordTotal, error) {
	rows, err := r.db.QueryContext(ctx, listVerifiedTotalsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecordTotal
	for rows.Next() {
		var t domain.RecordTotal
		if err := rows.Scan(&t.Month, &t.Year, &t.TotalUSD); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
