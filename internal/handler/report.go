package handler

import (
	"net/http"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/export"
	"beerzone-pos/internal/report"
	"beerzone-pos/internal/service"
	"beerzone-pos/internal/session"
	"beerzone-pos/pkg/response"
)

// ReportHandler serves sales summaries and workbook exports.
type ReportHandler struct {
	sales    *service.SalesService
	sessions *session.Registry
}

// NewReportHandler creates a new report handler. sessions may be nil.
func NewReportHandler(sales *service.SalesService, sessions *session.Registry) *ReportHandler {
	return &ReportHandler{sales: sales, sessions: sessions}
}

// filter reads the report filter from the query. With a sessionId and no
// period, the session's last filter is reused; the resolved filter is then
// stored back on the session.
func (h *ReportHandler) filter(r *http.Request) (service.ReportFilter, error) {
	q := r.URL.Query()
	f := session.Filter{
		Period:      clock.Period(q.Get("period")),
		From:        q.Get("from"),
		To:          q.Get("to"),
		Granularity: report.Granularity(q.Get("granularity")),
	}

	if id := q.Get("sessionId"); id != "" && h.sessions != nil {
		sc, err := h.sessions.Get(id)
		if err != nil {
			return service.ReportFilter{}, err
		}
		if f.Period == "" {
			saved := sc.Filter()
			if f.Granularity == "" {
				f.Granularity = saved.Granularity
			}
			f.Period, f.From, f.To = saved.Period, saved.From, saved.To
		}
		sc.SetFilter(f)
	}

	return service.ReportFilter{
		Period:      f.Period,
		From:        f.From,
		To:          f.To,
		Granularity: f.Granularity,
	}, nil
}

// Summary handles GET /api/v1/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	summary, _, err := h.sales.Summary(r.Context(), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, summary)
}

// Export handles GET /api/v1/reports/export
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	file, err := h.sales.Export(r.Context(), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	if file.Location != "" {
		w.Header().Set("X-Export-Location", file.Location)
	}
	response.Attachment(w, export.ContentType, file.Name, file.Data)
}
