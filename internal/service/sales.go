package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/export"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/report"
	"beerzone-pos/internal/repository"
)

// ReportFilter selects the sales a report covers.
type ReportFilter struct {
	Period      clock.Period
	From        string
	To          string
	Granularity report.Granularity
}

// ExportFile is a built workbook.
type ExportFile struct {
	Name string
	Data []byte
	// Location is where the archive sink stored the file, if any.
	Location string
}

// SalesService reads sale records and builds reports.
type SalesService struct {
	sales     repository.SaleRepository
	clock     *clock.Reporting
	sink      export.Sink
	storeName string
	currency  string
	logger    *zap.Logger
}

// SalesConfig configures a SalesService.
type SalesConfig struct {
	StoreName string
	Currency  string
	// Sink archives exported workbooks. Optional.
	Sink export.Sink
}

// NewSalesService creates a new sales service.
func NewSalesService(sales repository.SaleRepository, clk *clock.Reporting, cfg SalesConfig, logger *zap.Logger) *SalesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesService{
		sales:     sales,
		clock:     clk,
		sink:      cfg.Sink,
		storeName: cfg.StoreName,
		currency:  cfg.Currency,
		logger:    logger.Named("sales"),
	}
}

// List returns sales with from <= date <= to. Empty bounds are open.
func (s *SalesService) List(ctx context.Context, from, to string) ([]model.Sale, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := s.clock.ParseDate(d); err != nil {
			return nil, model.Validation("INVALID_DATE", err.Error())
		}
	}
	if from != "" && to != "" && from > to {
		return nil, model.Validation("INVALID_RANGE", "range start is after end")
	}

	sales, err := s.sales.ListSales(ctx, from, to)
	if err != nil {
		return nil, model.StoreFailure("SALES_READ_FAILURE", "failed to list sales", err)
	}
	return sales, nil
}

// Get returns one sale.
func (s *SalesService) Get(ctx context.Context, id string) (model.Sale, error) {
	sale, err := s.sales.GetSale(ctx, id)
	if err != nil {
		return model.Sale{}, classify(err, "SALES_READ_FAILURE", "failed to read sale")
	}
	return sale, nil
}

// Delete removes a sale record. Inventory is not restored.
func (s *SalesService) Delete(ctx context.Context, id string) error {
	if err := s.sales.DeleteSale(ctx, id); err != nil {
		return classify(err, "SALES_WRITE_FAILURE", "failed to delete sale")
	}
	s.logger.Info("sale deleted", zap.String("sale_id", id))
	return nil
}

// Summary folds the sales selected by f.
func (s *SalesService) Summary(ctx context.Context, f ReportFilter) (report.Summary, []model.Sale, error) {
	r, err := s.clock.Range(f.Period, f.From, f.To)
	if err != nil {
		return report.Summary{}, nil, model.Validation("INVALID_RANGE", err.Error())
	}
	if _, err := f.Granularity.KeyFunc(); err != nil {
		return report.Summary{}, nil, model.Validation("INVALID_GRANULARITY", err.Error())
	}

	sales, err := s.sales.ListSales(ctx, r.From, r.To)
	if err != nil {
		return report.Summary{}, nil, model.StoreFailure("SALES_READ_FAILURE", "failed to list sales", err)
	}

	summary, err := report.Summarize(sales, r, f.Granularity)
	if err != nil {
		return report.Summary{}, nil, model.Validation("INVALID_GRANULARITY", err.Error())
	}
	return summary, sales, nil
}

// Export builds the summary workbook for f. When an archive sink is set the
// workbook is also saved there; a failed save is logged, not returned.
func (s *SalesService) Export(ctx context.Context, f ReportFilter) (ExportFile, error) {
	summary, sales, err := s.Summary(ctx, f)
	if err != nil {
		return ExportFile{}, err
	}

	data, err := export.Build(export.SummarySheets(s.storeName, s.currency, summary, sales)...)
	if err != nil {
		return ExportFile{}, model.StoreFailure("EXPORT_FAILURE", "failed to build workbook", err)
	}
	file := ExportFile{
		Name: export.Filename(s.storeName, summary.Granularity, summary.Range, s.clock.Now()),
		Data: data,
	}

	if s.sink != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		loc, err := s.sink.Save(saveCtx, file.Name, data)
		if err != nil {
			s.logger.Warn("failed to archive export", zap.String("file", file.Name), zap.Error(err))
		} else {
			file.Location = loc
		}
	}
	return file, nil
}
