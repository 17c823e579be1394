// Package export renders admin data as CSV or XLSX.
package export

import (
	"fmt"
	"strconv"
	"time"

	"scwatch/internal/analytics"
	"scwatch/internal/domain"
)

// Table is one titled block of rows. Cells are strings, ints or float64;
// floats render with two decimals.
type Table struct {
	Name   string
	Banner string // sectioned CSV heading; defaults to upper-cased Name
	Header []string
	Rows   [][]any
}

// Filename is the attachment name for kind, e.g. hotels-export-2025-03-10.csv.
func Filename(kind, ext string, now time.Time) string {
	return fmt.Sprintf("%s-export-%s.%s", kind, now.UTC().Format("2006-01-02"), ext)
}

// AnalyticsTables lays out the report in the dashboard's section order.
// Approval time and rejection sections are omitted when empty.
func AnalyticsTables(r analytics.Report) []Table {
	st := r.Stats
	out := []Table{{
		Name:   "Platform Statistics",
		Header: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Total Submissions", st.TotalSubmissions},
			{"Total Approved", st.TotalApproved},
			{"Total Rejected", st.TotalRejected},
			{"Total Pending", st.TotalPending},
			{"Total Active Hotels", st.TotalHotels},
			{"Total Contributors", st.TotalUsers},
			{"Average Approval Time (hours)", st.AverageApprovalTime},
		},
	}}

	trends := Table{Name: "Industry Trends", Header: []string{"Month", "Year", "Average SC (USD)", "Total Hotels", "Highest SC (USD)", "Lowest SC (USD)"}}
	for _, t := range r.IndustryTrends {
		trends.Rows = append(trends.Rows, []any{t.Month, t.Year, t.AverageSC, t.TotalHotels, t.HighestSC, t.LowestSC})
	}
	out = append(out, trends)

	patterns := Table{Name: "Submission Patterns", Banner: "SUBMISSION PATTERNS (Last 30 Days)", Header: []string{"Date", "Total Submissions", "Approved", "Pending", "Rejected"}}
	for _, p := range r.SubmissionPatterns {
		patterns.Rows = append(patterns.Rows, []any{p.Date, p.Count, p.Approved, p.Pending, p.Rejected})
	}
	out = append(out, patterns)

	contributors := Table{Name: "Top Contributors", Header: []string{"Email", "Total Submissions", "Approved", "Rejected", "Pending"}}
	for _, c := range r.TopContributors {
		contributors.Rows = append(contributors.Rows, []any{c.Email, c.TotalSubmissions, c.ApprovedCount, c.RejectedCount, c.PendingCount})
	}
	out = append(out, contributors)

	at := r.ApprovalTimes
	if at.AverageHours > 0 {
		out = append(out, Table{
			Name:   "Approval Times",
			Banner: "APPROVAL TIME METRICS",
			Header: []string{"Metric", "Hours"},
			Rows: [][]any{
				{"Average", at.AverageHours},
				{"Median", at.MedianHours},
				{"Fastest", at.FastestHours},
				{"Slowest", at.SlowestHours},
			},
		})
		if len(at.ByMonth) > 0 {
			byMonth := Table{Name: "Approval Time by Month", Header: []string{"Month", "Average Approval Time (hours)"}}
			for _, m := range at.ByMonth {
				byMonth.Rows = append(byMonth.Rows, []any{m.Month, m.AverageHours})
			}
			out = append(out, byMonth)
		}
	}

	if len(r.RejectionReasons) > 0 {
		reasons := Table{Name: "Rejection Reasons", Header: []string{"Reason", "Count", "Percentage"}}
		for _, rr := range r.RejectionReasons {
			reasons.Rows = append(reasons.Rows, []any{rr.Reason, rr.Count, strconv.FormatFloat(rr.Percentage, 'f', 2, 64) + "%"})
		}
		out = append(out, reasons)
	}
	return out
}

func HotelsTable(hs []domain.Hotel) Table {
	t := Table{Name: "Hotels", Header: []string{"ID", "Name", "Atoll", "Type", "Staff Count", "Status", "Created At", "Updated At"}}
	for _, h := range hs {
		staff := ""
		if h.StaffCount != nil {
			staff = strconv.Itoa(*h.StaffCount)
		}
		t.Rows = append(t.Rows, []any{h.ID, h.Name, h.Atoll, string(h.Type), staff, string(h.Status), stamp(h.CreatedAt), stamp(h.UpdatedAt)})
	}
	return t
}

func SubmissionsTable(subs []domain.SubmissionWithHotel) Table {
	t := Table{Name: "Submissions", Header: []string{
		"ID", "Hotel", "Atoll", "Month", "Year", "USD Amount", "MVR Amount", "Position",
		"Status", "Submitter Email", "Rejection Reason", "Proof URL", "Submitted At", "Reviewed At",
	}}
	for _, s := range subs {
		t.Rows = append(t.Rows, []any{
			s.ID, s.Hotel.Name, s.Hotel.Atoll, s.Month, s.Year, s.USDAmount, optFloat(s.MVRAmount), s.Position,
			string(s.Status), s.SubmitterEmail, optStr(s.RejectionReason), optStr(s.ProofURL), stamp(s.CreatedAt), optTime(s.ReviewedAt),
		})
	}
	return t
}

func RecordsTable(recs []domain.RecordWithHotel) Table {
	t := Table{Name: "Records", Header: []string{
		"Hotel", "Atoll", "Type", "Month", "Year", "USD Amount", "MVR Amount", "Total USD",
		"Verification Status", "Verification Count", "Verified At",
	}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []any{
			r.Hotel.Name, r.Hotel.Atoll, string(r.Hotel.Type), r.Month, r.Year, r.USDAmount, optFloat(r.MVRAmount), r.TotalUSD,
			r.VerificationStatus, r.VerificationCount, optTime(r.VerifiedAt),
		})
	}
	return t
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return stamp(*t)
}

func optStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optFloat keeps absent amounts blank rather than 0.00.
func optFloat(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}
