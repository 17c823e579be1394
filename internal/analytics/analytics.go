// Package analytics aggregates moderation activity and verified records into
// the admin dashboard report. Every function is pure; fetching is done by the
// caller.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"scwatch/internal/domain"
)

const (
	trendPeriods     = 12
	patternDays      = 30
	topContributors  = 10
	approvalMonths   = 12
	unknownEmail     = "Unknown"
	unknownRejection = "Unknown"
)

var monthAbbr = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type Stats struct {
	TotalSubmissions    int     `json:"totalSubmissions"`
	TotalApproved       int     `json:"totalApproved"`
	TotalRejected       int     `json:"totalRejected"`
	TotalPending        int     `json:"totalPending"`
	TotalHotels         int     `json:"totalHotels"`
	TotalUsers          int     `json:"totalUsers"`
	AverageApprovalTime float64 `json:"averageApprovalTime"`
}

type TrendPoint struct {
	Month        string  `json:"month"` // "Jan 2025"
	Year         int     `json:"year"`
	MonthNum     int     `json:"monthNum"`
	AverageSC    float64 `json:"averageSC"`
	TotalHotels  int     `json:"totalHotels"`
	TotalRecords int     `json:"totalRecords"`
	HighestSC    float64 `json:"highestSC"`
	LowestSC     float64 `json:"lowestSC"`
}

type DayPattern struct {
	Date     string `json:"date"` // YYYY-MM-DD, UTC
	Count    int    `json:"count"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Pending  int    `json:"pending"`
}

type Contributor struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	TotalSubmissions int    `json:"totalSubmissions"`
	ApprovedCount    int    `json:"approvedCount"`
	RejectedCount    int    `json:"rejectedCount"`
	PendingCount     int    `json:"pendingCount"`
}

type MonthlyApproval struct {
	Month        string  `json:"month"` // YYYY-MM
	AverageHours float64 `json:"averageHours"`
}

type ApprovalTimes struct {
	AverageHours float64           `json:"averageHours"`
	MedianHours  float64           `json:"medianHours"`
	FastestHours float64           `json:"fastestHours"`
	SlowestHours float64           `json:"slowestHours"`
	ByMonth      []MonthlyApproval `json:"byMonth"`
}

type ReasonShare struct {
	Reason     string  `json:"reason"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Report is the full analytics payload served to admins and exported.
type Report struct {
	Stats              Stats         `json:"stats"`
	IndustryTrends     []TrendPoint  `json:"industryTrends"`
	SubmissionPatterns []DayPattern  `json:"submissionPatterns"`
	TopContributors    []Contributor `json:"topContributors"`
	ApprovalTimes      ApprovalTimes `json:"approvalTimes"`
	RejectionReasons   []ReasonShare `json:"rejectionReasons"`
}

// Input is everything Build needs, fetched by the caller.
type Input struct {
	Activity     []domain.SubmissionActivity
	Totals       []domain.RecordTotal
	ActiveHotels int
	Now          time.Time
}

func Build(in Input) Report {
	return Report{
		Stats:              ComputeStats(in.Activity, in.ActiveHotels),
		IndustryTrends:     IndustryTrends(in.Totals),
		SubmissionPatterns: SubmissionPatterns(in.Activity, in.Now),
		TopContributors:    TopContributors(in.Activity),
		ApprovalTimes:      ComputeApprovalTimes(in.Activity),
		RejectionReasons:   RejectionReasons(in.Activity),
	}
}

func ComputeStats(acts []domain.SubmissionActivity, activeHotels int) Stats {
	st := Stats{TotalSubmissions: len(acts), TotalHotels: activeHotels}
	users := map[string]struct{}{}
	for _, a := range acts {
		switch a.Status {
		case domain.StatusApproved:
			st.TotalApproved++
		case domain.StatusRejected:
			st.TotalRejected++
		case domain.StatusPending:
			st.TotalPending++
		}
		if a.SubmitterUserID != "" {
			users[a.SubmitterUserID] = struct{}{}
		}
	}
	st.TotalUsers = len(users)
	if hours := approvalHours(acts); len(hours) > 0 {
		st.AverageApprovalTime = mean(hours)
	}
	return st
}

// IndustryTrends groups verified totals by period, oldest first, keeping the
// most recent twelve periods.
func IndustryTrends(totals []domain.RecordTotal) []TrendPoint {
	type bucket struct {
		year, month int
		values      []float64
	}
	byKey := map[int]*bucket{}
	for _, t := range totals {
		if t.Month < 1 || t.Month > 12 {
			continue
		}
		k := t.Year*100 + t.Month
		b, ok := byKey[k]
		if !ok {
			b = &bucket{year: t.Year, month: t.Month}
			byKey[k] = b
		}
		b.values = append(b.values, t.TotalUSD)
	}
	keys := make([]int, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	if len(keys) > trendPeriods {
		keys = keys[len(keys)-trendPeriods:]
	}

	out := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		b := byKey[k]
		lo, hi := minMax(b.values)
		out = append(out, TrendPoint{
			Month:        fmt.Sprintf("%s %d", monthAbbr[b.month-1], b.year),
			Year:         b.year,
			MonthNum:     b.month,
			AverageSC:    mean(b.values),
			TotalHotels:  len(b.values),
			TotalRecords: len(b.values),
			HighestSC:    hi,
			LowestSC:     lo,
		})
	}
	return out
}

// SubmissionPatterns counts submissions per UTC day over the thirty days
// ending at now. Days without submissions are omitted.
func SubmissionPatterns(acts []domain.SubmissionActivity, now time.Time) []DayPattern {
	today := now.UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(patternDays - 1))

	byDate := map[string]*DayPattern{}
	for _, a := range acts {
		created := a.CreatedAt.UTC()
		if created.Before(from) || !created.Before(today.AddDate(0, 0, 1)) {
			continue
		}
		date := created.Format("2006-01-02")
		p, ok := byDate[date]
		if !ok {
			p = &DayPattern{Date: date}
			byDate[date] = p
		}
		p.Count++
		switch a.Status {
		case domain.StatusApproved:
			p.Approved++
		case domain.StatusRejected:
			p.Rejected++
		case domain.StatusPending:
			p.Pending++
		}
	}
	out := make([]DayPattern, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TopContributors ranks submitters by submission count.
func TopContributors(acts []domain.SubmissionActivity) []Contributor {
	byUser := map[string]*Contributor{}
	for _, a := range acts {
		if a.SubmitterUserID == "" {
			continue
		}
		c, ok := byUser[a.SubmitterUserID]
		if !ok {
			c = &Contributor{UserID: a.SubmitterUserID, Email: unknownEmail}
			byUser[a.SubmitterUserID] = c
		}
		if a.SubmitterEmail != "" {
			c.Email = a.SubmitterEmail
		}
		c.TotalSubmissions++
		switch a.Status {
		case domain.StatusApproved:
			c.ApprovedCount++
		case domain.StatusRejected:
			c.RejectedCount++
		case domain.StatusPending:
			c.PendingCount++
		}
	}
	out := make([]Contributor, 0, len(byUser))
	for _, c := range byUser {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSubmissions != out[j].TotalSubmissions {
			return out[i].TotalSubmissions > out[j].TotalSubmissions
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > topContributors {
		out = out[:topContributors]
	}
	return out
}

// ComputeApprovalTimes summarizes hours from creation to review of approved
// submissions. The median is the element at index n/2 of the sorted values.
func ComputeApprovalTimes(acts []domain.SubmissionActivity) ApprovalTimes {
	hours := approvalHours(acts)
	if len(hours) == 0 {
		return ApprovalTimes{ByMonth: []MonthlyApproval{}}
	}
	sorted := append([]float64(nil), hours...)
	sort.Float64s(sorted)

	byMonth := map[string][]float64{}
	for _, a := range acts {
		if a.Status != domain.StatusApproved || a.ReviewedAt == nil {
			continue
		}
		m := a.ReviewedAt.UTC().Format("2006-01")
		byMonth[m] = append(byMonth[m], a.ReviewedAt.Sub(a.CreatedAt).Hours())
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > approvalMonths {
		months = months[len(months)-approvalMonths:]
	}
	monthly := make([]MonthlyApproval, 0, len(months))
	for _, m := range months {
		monthly = append(monthly, MonthlyApproval{Month: m, AverageHours: mean(byMonth[m])})
	}

	return ApprovalTimes{
		AverageHours: mean(sorted),
		MedianHours:  sorted[len(sorted)/2],
		FastestHours: sorted[0],
		SlowestHours: sorted[len(sorted)-1],
		ByMonth:      monthly,
	}
}

// RejectionReasons is the frequency distribution of reasons, most common first.
func RejectionReasons(acts []domain.SubmissionActivity) []ReasonShare {
	counts := map[string]int{}
	total := 0
	for _, a := range acts {
		if a.Status != domain.StatusRejected || a.RejectionReason == nil {
			continue
		}
		reason := *a.RejectionReason
		if reason == "" {
			reason = unknownRejection
		}
		counts[reason]++
		total++
	}
	out := make([]ReasonShare, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonShare{
			Reason:     reason,
			Count:      n,
			Percentage: float64(n) / float64(total) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func approvalHours(acts []domain.SubmissionActivity) []float64 {
	var hours []float64
	for _, a := range acts {
		if a.Status == domain.StatusApproved && a.ReviewedAt != nil {
			hours = append(hours, a.ReviewedAt.Sub(a.CreatedAt).Hours())
		}
	}
	return hours
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func minMax(vs []float64) (lo, hi float64) {
	for i, v := range vs {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}
