package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Rate providers disagree on shape; the first non-empty path wins.
var rateAliases = map[string][]string{
	"usd_mvr": {
		"quotes.USDMVR",
		"rates.MVR",
		"conversion_rates.MVR",
		"data.MVR",
		"data.MVR.value",
		"usd_to_mvr",
		"rate",
		"result",
	},
	"date":   {"date", "historical_date"},
	"source": {"source_name", "provider"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

// getFloatFlexible: number from several paths (float64/int/string like "15,42").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

/********** rate mapper **********/

// mapRate extracts the USD->MVR rate for day from a provider payload. ok is
// false when no plausible rate is present.
func mapRate(day time.Time, p map[string]any, fallbackSource string) (domain.ExchangeRate, bool) {
	rate := getFloatFlexible(p, rateAliases["usd_mvr"]...)
	if rate == nil || *rate <= 0 || *rate > 1000 {
		log.Debug().Str("date", day.Format("2006-01-02")).Msg("no usable MVR rate in payload")
		return domain.ExchangeRate{}, false
	}

	date := day.UTC().Truncate(24 * time.Hour)
	if s := firstNonEmptyAlias(p, rateAliases, "date"); s != nil {
		if t, err := time.Parse("2006-01-02", *s); err == nil {
			date = t
		}
	}
	source := fallbackSource
	if s := firstNonEmptyAlias(p, rateAliases, "source"); s != nil {
		source = *s
	}
	return domain.ExchangeRate{
		ID:       newID(),
		Date:     date,
		USDToMVR: *rate,
		Source:   &source,
	}, true
}
