package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"scwatch/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}
func f64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// isDuplicate reports a unique-key violation (ER_DUP_ENTRY).
func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// -----------------------------------------------------------------------------
// HOTELS
// -----------------------------------------------------------------------------

// hotelDest scans the hotelCols block; every column is nullable so the same
// destination serves LEFT JOINs.
type hotelDest struct {
	id, name, atoll, typ, status sql.NullString
	staff                        sql.NullInt64
	created, updated             sql.NullTime
}

func (d *hotelDest) targets() []any {
	return []any{&d.id, &d.name, &d.atoll, &d.typ, &d.staff, &d.status, &d.created, &d.updated}
}

func (d *hotelDest) hotel() domain.Hotel {
	if !d.id.Valid {
		return domain.Hotel{}
	}
	h := domain.Hotel{
		ID:        d.id.String,
		Name:      d.name.String,
		Atoll:     d.atoll.String,
		Type:      domain.HotelType(d.typ.String),
		Status:    domain.HotelStatus(d.status.String),
		CreatedAt: d.created.Time,
		UpdatedAt: d.updated.Time,
	}
	if d.staff.Valid {
		n := int(d.staff.Int64)
		h.StaffCount = &n
	}
	return h
}

func scanHotel(sc scanner) (domain.Hotel, error) {
	var d hotelDest
	if err := sc.Scan(d.targets()...); err != nil {
		return domain.Hotel{}, err
	}
	return d.hotel(), nil
}

func (r *Repo) ListHotels(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	var where []string
	var args []any
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "LOWER(h.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if q.Atoll != "" {
		where = append(where, "h.atoll = ?")
		args = append(args, q.Atoll)
	}
	if q.Type != "" {
		where = append(where, "h.type = ?")
		args = append(args, q.Type)
	}
	if q.Status != "" {
		where = append(where, "h.status = ?")
		args = append(args, q.Status)
	}
	query := selectHotelsSQL + whereClause(where) + " ORDER BY h.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Hotel{}
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, err
}

func (r *Repo) FindHotelByName(ctx context.Context, name, excludeID string) (domain.Hotel, bool, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, findHotelByNameSQL, strings.TrimSpace(name), excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Hotel{}, false, nil
	}
	if err != nil {
		return domain.Hotel{}, false, err
	}
	return h, true, nil
}

func (r *Repo) InsertHotel(ctx context.Context, h domain.Hotel) error {
	_, err := r.db.ExecContext(ctx, insertHotelSQL,
		h.ID, h.Name, h.Atoll, string(h.Type), valInt(h.StaffCount), string(h.Status),
		h.CreatedAt, h.UpdatedAt,
	)
	if isDuplicate(err) {
		return domain.Conflict("A hotel with this name already exists")
	}
	return err
}

func (r *Repo) UpdateHotel(ctx context.Context, h domain.Hotel) error {
	res, err := r.db.ExecContext(ctx, updateHotelSQL,
		h.Name, h.Atoll, string(h.Type), valInt(h.StaffCount), string(h.Status), h.UpdatedAt,
		h.ID,
	)
	if isDuplicate(err) {
		return domain.Conflict("A hotel with this name already exists")
	}
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *Repo) DeleteHotel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteHotelSQL, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *Repo) CountHotelReferences(ctx context.Context, id string) (int, int, error) {
	var subs, recs int
	err := r.db.QueryRowContext(ctx, countHotelRefsSQL, id, id).Scan(&subs, &recs)
	return subs, recs, err
}

func (r *Repo) CountActiveHotels(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countActiveHotelsSQL).Scan(&n)
	return n, err
}

// -----------------------------------------------------------------------------
// ADMINS
// -----------------------------------------------------------------------------

func scanAdmin(sc scanner) (domain.AdminUser, error) {
	var a domain.AdminUser
	var email sql.NullString
	if err := sc.Scan(&a.ID, &a.UserID, &email, &a.Role, &a.CreatedAt); err != nil {
		return domain.AdminUser{}, err
	}
	a.Email = strPtr(email)
	return a, nil
}

func (r *Repo) getAdminWhere(ctx context.Context, cond string, arg any) (domain.AdminUser, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, selectAdminsSQL+" WHERE "+cond+" = ?", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AdminUser{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repo) GetAdmin(ctx context.Context, id string) (domain.AdminUser, error) {
	return r.getAdminWhere(ctx, "id", id)
}

func (r *Repo) GetAdminByUserID(ctx context.Context, userID string) (domain.AdminUser, error) {
	return r.getAdminWhere(ctx, "user_id", userID)
}

func (r *Repo) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	rows, err := r.db.QueryContext(ctx, selectAdminsSQL+" ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AdminUser{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) InsertAdmin(ctx context.Context, a domain.AdminUser) error {
	_, err := r.db.ExecContext(ctx, insertAdminSQL, a.ID, a.UserID, valStr(a.Email), a.Role, a.CreatedAt)
	if isDuplicate(err) {
		return domain.Conflict("User is already an admin")
	}
	return err
}

func (r *Repo) DeleteAdmin(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteAdminSQL, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *Repo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countAdminsSQL).Scan(&n)
	return n, err
}

// -----------------------------------------------------------------------------
// EXCHANGE RATES
// -----------------------------------------------------------------------------

func scanRate(sc scanner) (domain.ExchangeRate, error) {
	var x domain.ExchangeRate
	var src sql.NullString
	if err := sc.Scan(&x.ID, &x.Date, &x.USDToMVR, &src, &x.CreatedAt); err != nil {
		return domain.ExchangeRate{}, err
	}
	x.Source = strPtr(src)
	return x, nil
}

func (r *Repo) UpsertExchangeRate(ctx context.Context, x domain.ExchangeRate) error {
	_, err := r.db.ExecContext(ctx, upsertExchangeRateSQL,
		x.ID, x.Date.Format("2006-01-02"), x.USDToMVR, valStr(x.Source), x.CreatedAt,
	)
	return err
}

func (r *Repo) ListExchangeRates(ctx context.Context, limit int) ([]domain.ExchangeRate, error) {
	rows, err := r.db.QueryContext(ctx, listExchangeRatesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ExchangeRate{}
	for rows.Next() {
		x, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *Repo) LatestRateOnOrBefore(ctx context.Context, t time.Time) (domain.ExchangeRate, error) {
	x, err := scanRate(r.db.QueryRowContext(ctx, latestRateOnOrBeforeSQL, t.Format("2006-01-02")))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	return x, err
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
