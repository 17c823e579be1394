package httpserver

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
	"scwatch/internal/export"
)

const (
	analyticsTitle = "Service Charge Watch - Analytics Data Export"
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// export serves analytics, hotels, submissions or records as csv (default), xlsx or json.
func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" && format != "json" {
		verr := &domain.ValidationError{}
		verr.Add("format", "must be csv, xlsx or json")
		writeError(w, r, verr)
		return
	}

	var (
		raw    any
		tables []export.Table
	)
	ctx := r.Context()
	switch kind {
	case "analytics":
		rep, err := h.Analytics.Report(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw, tables = rep, export.AnalyticsTables(rep)
	case "hotels":
		out, err := h.Hotels.List(ctx, domain.HotelsQuery{})
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw, tables = out.Hotels, []export.Table{export.HotelsTable(out.Hotels)}
	case "submissions":
		subs, err := h.Queries.SubmissionsForExport(ctx, r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw, tables = subs, []export.Table{export.SubmissionsTable(subs)}
	case "records":
		recs, err := h.Queries.RecordsForExport(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		raw, tables = recs, []export.Table{export.RecordsTable(recs)}
	default:
		writeMsg(w, http.StatusNotFound, "Unknown export type")
		return
	}

	now := h.now()
	var (
		buf   bytes.Buffer
		err   error
		ctype string
	)
	switch format {
	case "json":
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, "json", now)+`"`)
		writeJSON(w, http.StatusOK, raw)
		return
	case "xlsx":
		ctype = xlsxType
		err = export.WriteXLSX(&buf, tables)
	default:
		ctype = "text/csv; charset=utf-8"
		if kind == "analytics" {
			err = export.WriteSectionedCSV(&buf, analyticsTitle, now, tables)
		} else {
			err = export.WriteCSV(&buf, tables[0])
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(kind, format, now)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("failed to write export")
	}
}
