package mysql

const hotelCols = `h.id, h.name, h.atoll, h.type, h.staff_count, h.status, h.created_at, h.updated_at`

const submissionCols = `s.id, s.hotel_id, s.month, s.year, s.usd_amount, s.mvr_amount, s.position,
  s.proof_url, s.submitter_email, s.submitter_user_id, s.status, s.rejection_reason,
  s.reviewed_by, s.reviewed_at, s.created_at, s.updated_at`

const recordCols = `r.id, r.hotel_id, r.month, r.year, r.usd_amount, r.mvr_amount, r.total_usd,
  r.verification_status, r.verification_count, r.verified_at, r.verified_by,
  r.created_at, r.updated_at`

// -----------------------------------------------------------------------------
// HOTELS
// -----------------------------------------------------------------------------

const selectHotelsSQL = `SELECT ` + hotelCols + ` FROM hotels h`

const getHotelSQL = selectHotelsSQL + ` WHERE h.id = ?`

const findHotelByNameSQL = selectHotelsSQL + `
WHERE LOWER(h.name) = LOWER(?) AND h.id <> ?
LIMIT 1`

const insertHotelSQL = `
INSERT INTO hotels (id, name, atoll, type, staff_count, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const updateHotelSQL = `
UPDATE hotels
SET name = ?, atoll = ?, type = ?, staff_count = ?, status = ?, updated_at = ?
WHERE id = ?`

const deleteHotelSQL = `DELETE FROM hotels WHERE id = ?`

const countHotelRefsSQL = `
SELECT
  (SELECT COUNT(*) FROM submissions WHERE hotel_id = ?),
  (SELECT COUNT(*) FROM sc_records  WHERE hotel_id = ?)`

const countActiveHotelsSQL = `SELECT COUNT(*) FROM hotels WHERE status = 'active'`

// -----------------------------------------------------------------------------
// SUBMISSIONS
// -----------------------------------------------------------------------------

// Hotel columns come from a LEFT JOIN so a missing hotel scans as NULLs.
const selectSubmissionsSQL = `SELECT ` + submissionCols + `, ` + hotelCols + `
FROM submissions s
LEFT JOIN hotels h ON h.id = s.hotel_id`

const getSubmissionSQL = selectSubmissionsSQL + ` WHERE s.id = ?`

const listSubmissionsByUserSQL = selectSubmissionsSQL + `
WHERE s.submitter_user_id = ?
ORDER BY s.created_at DESC`

const insertSubmissionSQL = `
INSERT INTO submissions
  (id, hotel_id, month, year, usd_amount, mvr_amount, position, proof_url,
   submitter_email, submitter_user_id, status, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`

const updatePendingSubmissionSQL = `
UPDATE submissions
SET hotel_id = ?, month = ?, year = ?, usd_amount = ?, mvr_amount = ?, position = ?,
    proof_url = COALESCE(?, proof_url), updated_at = ?
WHERE id = ? AND submitter_user_id = ? AND status = 'pending'`

const deletePendingSubmissionSQL = `
DELETE FROM submissions
WHERE id = ? AND submitter_user_id = ? AND status = 'pending'`

const rejectSubmissionSQL = `
UPDATE submissions
SET status = 'rejected', rejection_reason = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`

const lockSubmissionSQL = `SELECT status FROM submissions WHERE id = ? FOR UPDATE`

const approveSubmissionSQL = `
UPDATE submissions
SET status = 'approved', reviewed_by = ?, reviewed_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`

const submissionStatusSQL = `SELECT status FROM submissions WHERE id = ?`

const countSubmissionsByStatusSQL = `SELECT status, COUNT(*) FROM submissions`

const listSubmissionActivitySQL = `
SELECT submitter_user_id, submitter_email, status, rejection_reason, created_at, reviewed_at
FROM submissions`

// -----------------------------------------------------------------------------
// SERVICE CHARGE RECORDS
// -----------------------------------------------------------------------------

// Re-approval for the same period overwrites the amounts and bumps the counter.
const upsertRecordSQL = `
INSERT INTO sc_records
  (id, hotel_id, month, year, usd_amount, mvr_amount, total_usd,
   verification_status, verification_count, verified_at, verified_by, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  usd_amount          = VALUES(usd_amount),
  mvr_amount          = VALUES(mvr_amount),
  total_usd           = VALUES(total_usd),
  verification_status = VALUES(verification_status),
  verification_count  = sc_records.verification_count + 1,
  verified_at         = VALUES(verified_at),
  verified_by         = VALUES(verified_by),
  updated_at          = VALUES(updated_at)
`

const getRecordSQL = `SELECT ` + recordCols + ` FROM sc_records r
WHERE r.hotel_id = ? AND r.month = ? AND r.year = ?`

const selectRecordsWithHotelSQL = `SELECT ` + recordCols + `, ` + hotelCols + `
FROM sc_records r
JOIN hotels h ON h.id = r.hotel_id`

const listHotelRecordsSQL = `SELECT ` + recordCols + ` FROM sc_records r
WHERE r.hotel_id = ? AND r.verification_status = 'verified'
ORDER BY r.year DESC, r.month DESC
LIMIT ?`

const listRecordsForExportSQL = selectRecordsWithHotelSQL + `
ORDER BY r.year DESC, r.month DESC, h.name`

const listVerifiedTotalsSQL = `
SELECT month, year, total_usd
FROM sc_records
WHERE verification_status = 'verified'`

// -----------------------------------------------------------------------------
// ADMINS
// -----------------------------------------------------------------------------

const selectAdminsSQL = `SELECT id, user_id, email, role, created_at FROM admin_users`

const insertAdminSQL = `
INSERT INTO admin_users (id, user_id, email, role, created_at)
VALUES (?, ?, ?, ?, ?)`

const deleteAdminSQL = `DELETE FROM admin_users WHERE id = ?`

const countAdminsSQL = `SELECT COUNT(*) FROM admin_users`

// -----------------------------------------------------------------------------
// EXCHANGE RATES
// -----------------------------------------------------------------------------

const upsertExchangeRateSQL = `
INSERT INTO exchange_rates (id, date, usd_to_mvr, source, created_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  usd_to_mvr = VALUES(usd_to_mvr),
  source     = VALUES(source)
`

const selectExchangeRatesSQL = `SELECT id, date, usd_to_mvr, source, created_at FROM exchange_rates`

const listExchangeRatesSQL = selectExchangeRatesSQL + ` ORDER BY date DESC LIMIT ?`

const latestRateOnOrBeforeSQL = selectExchangeRatesSQL + `
WHERE date <= ?
ORDER BY date DESC
LIMIT 1`
