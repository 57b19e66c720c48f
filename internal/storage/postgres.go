package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/almazgeobur/sales-analyzer/internal/config"
	"github.com/almazgeobur/sales-analyzer/internal/model"
)

// Storage wraps the Postgres connection used by both the pipeline writer and
// the read API.
type Storage struct {
	db *sql.DB
}

// New opens the database connection and ensures the schema exists.
func New(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// NewWithDB wraps an existing connection without touching the schema. Used
// by tests.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sales_analyses (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			analysis_report TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price NUMERIC(12, 2) NOT NULL,
			category TEXT NOT NULL,
			sales_date DATE NOT NULL,
			sales_analysis_id INTEGER NOT NULL REFERENCES sales_analyses(id) ON DELETE CASCADE
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveAnalysis writes the report row and all of its line items in one
// transaction. Either everything is committed or nothing is.
func (s *Storage) SaveAnalysis(ctx context.Context, date, report string, items []model.LineItem) (*model.AnalysisReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	analysis := &model.AnalysisReport{Date: date, Report: report}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales_analyses (date, analysis_report)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		date, report).Scan(&analysis.ID, &analysis.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sales analysis: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (product_id, name, quantity, price, category, sales_date, sales_analysis_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ExternalProductID, item.Name, item.Quantity, item.UnitPrice,
			item.Category, item.SalesDate, analysis.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert product %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return analysis, nil
}

// ListAnalyses returns reports newest first, optionally filtered by date.
// Line items are not included in the listing.
func (s *Storage) ListAnalyses(ctx context.Context, date string) ([]model.AnalysisReport, error) {
	query := `SELECT id, date, analysis_report, created_at FROM sales_analyses`
	var args []any
	if date != "" {
		query += ` WHERE date = $1`
		args = append(args, date)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]model.AnalysisReport, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// GetAnalysis returns one report with its line items, or sql.ErrNoRows.
func (s *Storage) GetAnalysis(ctx context.Context, id int64) (*model.AnalysisReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, analysis_report, created_at
		FROM sales_analyses WHERE id = $1`, id)

	a, err := scanAnalysis(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, quantity, price, category, sales_date, sales_analysis_id
		FROM products WHERE sales_analysis_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	a.Products = make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		a.Products = append(a.Products, p)
	}
	return &a, rows.Err()
}

// ProductFilter narrows the product listing. Zero values mean "no filter";
// name and category match as case-insensitive substrings.
type ProductFilter struct {
	SalesDate   string
	Name        string
	Category    string
	MinQuantity *int
	MaxQuantity *int
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

// ListProducts returns line items newest sales date first, applying the
// filter.
func (s *Storage) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.SalesDate != "" {
		add("sales_date = $%d", f.SalesDate)
	}
	if f.Name != "" {
		add("name ILIKE $%d", "%"+f.Name+"%")
	}
	if f.Category != "" {
		add("category ILIKE $%d", "%"+f.Category+"%")
	}
	if f.MinQuantity != nil {
		add("quantity >= $%d", *f.MinQuantity)
	}
	if f.MaxQuantity != nil {
		add("quantity <= $%d", *f.MaxQuantity)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}

	query := `SELECT id, product_id, name, quantity, price, category, sales_date, sales_analysis_id FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sales_date DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns one line item, or sql.ErrNoRows.
func (s *Storage) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, name, quantity, price, category, sales_date, sales_analysis_id
		FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (model.AnalysisReport, error) {
	var a model.AnalysisReport
	var date time.Time
	if err := row.Scan(&a.ID, &date, &a.Report, &a.CreatedAt); err != nil {
		return a, err
	}
	a.Date = date.Format(time.DateOnly)
	return a, nil
}

func scanProduct(row rowScanner) (model.Product, error) {
	var p model.Product
	var salesDate time.Time
	if err := row.Scan(&p.ID, &p.ExternalProductID, &p.Name, &p.Quantity,
		&p.UnitPrice, &p.Category, &salesDate, &p.AnalysisID); err != nil {
		return p, err
	}
	p.SalesDate = salesDate.Format(time.DateOnly)
	return p, nil
}
