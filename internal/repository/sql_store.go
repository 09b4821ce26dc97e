package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"beerzone-pos/internal/model"
	"beerzone-pos/pkg/uid"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLStore implements ProductRepository and SaleRepository on a SQL database.
// Dialects: sqlite, mysql, postgres.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite only supports 1 writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	s := NewSQLStore(db, driver, logger)
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("document store initialized", zap.String("driver", driver))
	return s, nil
}

// NewSQLStore wraps an existing connection without touching the schema.
func NewSQLStore(db *sqlx.DB, driver string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, driver: driver, logger: logger}
}

func (s *SQLStore) migrate(ctx context.Context) error {
	var stmts []string
	switch s.driver {
	case "mysql":
		stmts = mysqlSchema
	case "postgres":
		stmts = postgresSchema
	default:
		stmts = sqliteSchema
	}
	if s.driver == "sqlite" {
		stmts = append([]string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"}, stmts...)
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		barcode TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		order_no TEXT NOT NULL,
		items_json TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		sale_time TEXT NOT NULL,
		timestamp_ms INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp_ms)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		barcode VARCHAR(128) NOT NULL DEFAULT '',
		image TEXT NOT NULL,
		created_at_ms BIGINT NOT NULL,
		INDEX idx_products_barcode (barcode)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id VARCHAR(64) PRIMARY KEY,
		order_no VARCHAR(16) NOT NULL,
		items_json JSON NOT NULL,
		payment_method VARCHAR(16) NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		sale_date CHAR(10) NOT NULL,
		sale_time CHAR(8) NOT NULL,
		timestamp_ms BIGINT NOT NULL,
		INDEX idx_sales_date (sale_date),
		INDEX idx_sales_timestamp (timestamp_ms)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		barcode TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_at_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		order_no TEXT NOT NULL,
		items_json TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		sale_date CHAR(10) NOT NULL,
		sale_time CHAR(8) NOT NULL,
		timestamp_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp_ms)`,
}

type productRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	Barcode     string          `db:"barcode"`
	Image       string          `db:"image"`
	CreatedAtMs int64           `db:"created_at_ms"`
}

func (r productRow) toModel() model.Product {
	return model.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Barcode:   r.Barcode,
		Image:     r.Image,
		CreatedAt: time.UnixMilli(r.CreatedAtMs),
	}
}

type saleRow struct {
	ID            string          `db:"id"`
	OrderNo       string          `db:"order_no"`
	ItemsJSON     string          `db:"items_json"`
	PaymentMethod string          `db:"payment_method"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Date          string          `db:"sale_date"`
	Time          string          `db:"sale_time"`
	TimestampMs   int64           `db:"timestamp_ms"`
}

func (r saleRow) toModel() (model.Sale, error) {
	var items []model.SaleItem
	if err := json.Unmarshal([]byte(r.ItemsJSON), &items); err != nil {
		return model.Sale{}, fmt.Errorf("failed to decode items of sale %s: %w", r.ID, err)
	}
	return model.Sale{
		ID:            r.ID,
		OrderNo:       r.OrderNo,
		Items:         items,
		PaymentMethod: model.PaymentMethod(r.PaymentMethod),
		TotalAmount:   r.TotalAmount,
		Date:          r.Date,
		Time:          r.Time,
		Timestamp:     time.UnixMilli(r.TimestampMs),
	}, nil
}

const productColumns = `id, name, price, barcode, image, created_at_ms`
const saleColumns = `id, order_no, items_json, payment_method, total_amount, sale_date, sale_time, timestamp_ms`

// ListProducts returns every product, newest first.
func (s *SQLStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at_ms DESC, name`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	out := make([]model.Product, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// GetProduct returns a product by id.
func (s *SQLStore) GetProduct(ctx context.Context, id string) (model.Product, error) {
	var row productRow
	query := s.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Product{}, model.ErrProductNotFound
		}
		return model.Product{}, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return row.toModel(), nil
}

// CreateProduct stores p under a new id.
func (s *SQLStore) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = uid.New()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.Price = p.Price.Round(2)

	query := s.db.Rebind(`INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Price.StringFixed(2), p.Barcode, p.Image, p.CreatedAt.UnixMilli())
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

// DeleteProduct removes a product by id.
func (s *SQLStore) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "products", id, model.ErrProductNotFound)
}

// InsertSale stores a sale under a new id.
func (s *SQLStore) InsertSale(ctx context.Context, sale model.Sale) (model.Sale, error) {
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return model.Sale{}, fmt.Errorf("failed to encode sale items: %w", err)
	}
	sale.ID = uid.New()

	query := s.db.Rebind(`INSERT INTO sales (` + saleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		sale.ID, sale.OrderNo, string(items), string(sale.PaymentMethod),
		sale.TotalAmount.StringFixed(2), sale.Date, sale.Time, sale.Timestamp.UnixMilli())
	if err != nil {
		return model.Sale{}, fmt.Errorf("failed to insert sale: %w", err)
	}
	return sale, nil
}

// LatestSale returns the most recent sale by timestamp, or nil.
func (s *SQLStore) LatestSale(ctx context.Context) (*model.Sale, error) {
	var row saleRow
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY timestamp_ms DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest sale: %w", err)
	}

	sale, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns sales within [from, to] by date.
func (s *SQLStore) ListSales(ctx context.Context, from, to string) ([]model.Sale, error) {
	var (
		where []string
		args  []interface{}
	)
	if from != "" {
		where = append(where, "sale_date >= ?")
		args = append(args, from)
	}
	if to != "" {
		where = append(where, "sale_date <= ?")
		args = append(args, to)
	}

	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY sale_date, timestamp_ms`

	var rows []saleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	out := make([]model.Sale, 0, len(rows))
	for _, r := range rows {
		sale, err := r.toModel()
		if err != nil {
			s.logger.Warn("skipping unreadable sale", zap.String("sale_id", r.ID), zap.Error(err))
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

// GetSale returns a sale by id.
func (s *SQLStore) GetSale(ctx context.Context, id string) (model.Sale, error) {
	var row saleRow
	query := s.db.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Sale{}, model.ErrSaleNotFound
		}
		return model.Sale{}, fmt.Errorf("failed to get sale %s: %w", id, err)
	}
	return row.toModel()
}

// DeleteSale removes a sale by id. Inventory is not touched.
func (s *SQLStore) DeleteSale(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "sales", id, model.ErrSaleNotFound)
}

func (s *SQLStore) deleteByID(ctx context.Context, table, id string, notFound error) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Stats returns row counts for the admin dashboard.
func (s *SQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"driver": s.driver}

	var products, sales int64
	if err := s.db.GetContext(ctx, &products, "SELECT COUNT(*) FROM products"); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := s.db.GetContext(ctx, &sales, "SELECT COUNT(*) FROM sales"); err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}
	stats["products"] = products
	stats["sales"] = sales
	return stats, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ensure SQLStore implements both repositories
var (
	_ ProductRepository = (*SQLStore)(nil)
	_ SaleRepository    = (*SQLStore)(nil)
)
