package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	productColumns  = []string{"code", "name", "status", "cost_price", "selling_price", "reorder_level", "lead_time_days"}
	productDefaults = map[string]string{"status": "active", "reorder_level": "0", "lead_time_days": "7"}
)

func seedMaster(ctx context.Context, tx *sql.Tx, dataDir string) error {
	if err := seedTable(ctx, tx, "products", "code", productColumns, productDefaults, filepath.Join(dataDir, "products.csv")); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

func seedHistory(ctx context.Context, tx *sql.Tx, dataDir string) error {
	productIDs, err := loadProductIDs(ctx, tx)
	if err != nil {
		return err
	}
	if err := seedSales(ctx, tx, productIDs, filepath.Join(dataDir, "sales.csv")); err != nil {
		return fmt.Errorf("failed to seed sales: %w", err)
	}
	if err := seedInventory(ctx, tx, productIDs, filepath.Join(dataDir, "inventory.csv")); err != nil {
		return fmt.Errorf("failed to seed inventory: %w", err)
	}
	if err := seedEvents(ctx, tx, filepath.Join(dataDir, "marketing_events.csv")); err != nil {
		return fmt.Errorf("failed to seed marketing events: %w", err)
	}
	return nil
}

// csvFile reads records by header name.
type csvFile struct {
	file   *os.File
	reader *csv.Reader
	index  map[string]int
}

func openCSV(path string, required ...string) (*csvFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}

	index, err := headerIndex(header, required)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &csvFile{file: file, reader: reader, index: index}, nil
}

func headerIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("column '%s' not found in header: %v", col, header)
		}
	}
	return index, nil
}

// next returns the following record, or io.EOF.
func (f *csvFile) next() ([]string, error) {
	return f.reader.Read()
}

func (f *csvFile) get(record []string, col string) string {
	i, ok := f.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (f *csvFile) Close() error {
	return f.file.Close()
}

// seedTable upserts every row of a CSV whose header names the columns. Empty
// cells take the value in defaults, or NULL.
func seedTable(ctx context.Context, tx *sql.Tx, tableName, conflictColumn string, columns []string, defaults map[string]string, filePath string) error {
	log.Printf("Seeding %s from %s\n", tableName, filePath)

	f, err := openCSV(filePath, conflictColumn)
	if err != nil {
		return err
	}
	defer f.Close()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(tableName, conflictColumn, columns))
	if err != nil {
		return fmt.Errorf("failed to prepare %s statement: %w", tableName, err)
	}
	defer stmt.Close()

	rowCount := 0
	for {
		record, err := f.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, col := range columns {
			value := f.get(record, col)
			if value == "" {
				value = defaults[col]
			}
			args[i] = nullIfEmpty(value)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rowCount+1, err)
		}
		rowCount++
	}

	log.Printf("Successfully seeded %s (%d records)\n", tableName, rowCount)
	return nil
}

func upsertQuery(tableName, conflictColumn string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		`"`+strings.Join(columns, `", "`)+`"`,
		strings.Join(placeholders, ", "),
		conflictColumn,
		buildUpdateClause(columns, conflictColumn),
	)
}

func buildUpdateClause(columns []string, conflictColumn string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != conflictColumn {
			updates = append(updates, fmt.Sprintf(`"%s" = EXCLUDED."%s"`, col, col))
		}
	}
	return strings.Join(updates, ", ")
}

func loadProductIDs(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT code, id FROM products")
	if err != nil {
		return nil, fmt.Errorf("failed to load product ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			code string
			id   int64
		)
		if err := rows.Scan(&code, &id); err != nil {
			return nil, fmt.Errorf("failed to scan product ids: %w", err)
		}
		result[code] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product ids: %w", err)
	}
	return result, nil
}

func seedSales(ctx context.Context, tx *sql.Tx, productIDs map[string]int64, path string) error {
	log.Printf("Seeding sales_transactions from %s\n", path)

	f, err := openCSV(path, "product_code", "transaction_date", "quantity", "unit_price")
	if err != nil {
		return err
	}
	defer f.Close()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales_transactions (
			product_id, customer_id, transaction_date, quantity, unit_price, total_amount
		) VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sales statement: %w", err)
	}
	defer stmt.Close()

	rowCount := 0
	for {
		record, err := f.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		code := f.get(record, "product_code")
		productID, ok := productIDs[code]
		if !ok {
			return fmt.Errorf("product code %s not found", code)
		}
		quantity, price, total, err := lineAmounts(f.get(record, "quantity"), f.get(record, "unit_price"))
		if err != nil {
			return fmt.Errorf("sale %d for %s: %w", rowCount+1, code, err)
		}

		if _, err := stmt.ExecContext(ctx,
			productID,
			nullIfEmpty(f.get(record, "customer_id")),
			f.get(record, "transaction_date"),
			quantity.String(),
			price.String(),
			total.String(),
		); err != nil {
			return fmt.Errorf("failed to insert sale for %s: %w", code, err)
		}

		rowCount++
		if rowCount%5000 == 0 {
			log.Printf("Seeded %d sales...", rowCount)
		}
	}

	log.Printf("Successfully seeded sales_transactions (%d records)\n", rowCount)
	return nil
}

// seedInventory replaces stock on hand with the file's contents.
func seedInventory(ctx context.Context, tx *sql.Tx, productIDs map[string]int64, path string) error {
	log.Printf("Seeding inventory_stock from %s\n", path)

	f, err := openCSV(path, "product_code", "quantity")
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM inventory_stock"); err != nil {
		return fmt.Errorf("failed to clear inventory: %w", err)
	}

	rowCount := 0
	for {
		record, err := f.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		code := f.get(record, "product_code")
		productID, ok := productIDs[code]
		if !ok {
			return fmt.Errorf("product code %s not found", code)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO inventory_stock (product_id, quantity, expiry_date) VALUES ($1, $2, $3)",
			productID, f.get(record, "quantity"), nullIfEmpty(f.get(record, "expiry_date")),
		); err != nil {
			return fmt.Errorf("failed to insert stock for %s: %w", code, err)
		}
		rowCount++
	}

	log.Printf("Successfully seeded inventory_stock (%d records)\n", rowCount)
	return nil
}

func seedEvents(ctx context.Context, tx *sql.Tx, path string) error {
	log.Printf("Seeding marketing_events from %s\n", path)

	f, err := openCSV(path, "campaign_name", "event_type", "start_date", "end_date")
	if err != nil {
		return err
	}
	defer f.Close()

	rowCount := 0
	for {
		record, err := f.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}

		status := strings.ToLower(f.get(record, "status"))
		if status == "" {
			status = "planned"
		}
		customers, err := parseCustomerIDs(f.get(record, "target_customer_ids"))
		if err != nil {
			return fmt.Errorf("event %s: %w", f.get(record, "campaign_name"), err)
		}
		var targets interface{}
		if len(customers) > 0 {
			targets = pq.Array(customers)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO marketing_events (
				campaign_name, event_type, start_date, end_date, budget, target_customer_ids, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			f.get(record, "campaign_name"),
			strings.ToLower(f.get(record, "event_type")),
			f.get(record, "start_date"),
			f.get(record, "end_date"),
			nullIfEmpty(f.get(record, "budget")),
			targets,
			status,
		); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		rowCount++
	}

	log.Printf("Successfully seeded marketing_events (%d records)\n", rowCount)
	return nil
}

// lineAmounts parses a sale's quantity and unit price and returns them with
// the line total.
func lineAmounts(rawQty, rawPrice string) (qty, price, total decimal.Decimal, err error) {
	qty, err = decimal.NewFromString(strings.ReplaceAll(rawQty, ",", ""))
	if err != nil {
		return qty, price, total, fmt.Errorf("invalid quantity %q: %w", rawQty, err)
	}
	price, err = decimal.NewFromString(strings.ReplaceAll(rawPrice, ",", ""))
	if err != nil {
		return qty, price, total, fmt.Errorf("invalid unit price %q: %w", rawPrice, err)
	}
	return qty, price, qty.Mul(price).Round(2), nil
}

// parseCustomerIDs reads a pipe separated id list such as "4|8|15".
func parseCustomerIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid customer id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// nullIfEmpty returns NULL if the string is empty, otherwise returns the string
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
