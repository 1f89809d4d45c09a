// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlcatalog is a database-backed search backend. One table per
// domain, one column per slot key, so the same code serves laptops on
// SQLite in development and books on Postgres or MySQL in production.
// The driver is picked from the DSN.
package sqlcatalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/search"
)

// baseColumns are shared by every domain table; slot columns follow.
var baseColumns = []string{
	"id", "name", "brand", "price_cents", "currency", "image_url",
	"available", "rating", "reviews_count", "description",
}

// Backend serves one domain from one table.
type Backend struct {
	db     *sql.DB
	domain catalog.Domain
	driver string
	table  string
	// attrColumns are the slot keys stored as dedicated columns, in a
	// fixed order for deterministic SQL.
	attrColumns []string
	// priceSlot names the slot that maps to price_cents instead of a
	// column of its own.
	priceSlot string
	// intColumns marks attr columns compared with >= instead of =.
	intColumns map[string]bool
}

// Open connects to the DSN and builds a backend for the domain. Slots
// drive the column layout: price slots map to price_cents, brand to the
// brand column, everything else to a column named after the slot key.
func Open(domain catalog.Domain, dsn string, slots []catalog.Slot) (*Backend, error) {
	driver, cleaned := detectDriver(dsn)
	db, err := sql.Open(driver, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	b := &Backend{
		db:         db,
		domain:     domain,
		driver:     driver,
		table:      domain.String(),
		intColumns: make(map[string]bool),
	}
	for _, s := range slots {
		switch {
		case s.ValueType == catalog.ValuePriceRange:
			b.priceSlot = s.Key
		case s.Key == "brand":
			// brand is a base column
		default:
			b.attrColumns = append(b.attrColumns, s.Key)
			if s.ValueType == catalog.ValueInteger {
				b.intColumns[s.Key] = true
			}
		}
	}
	return b, nil
}

// detectDriver picks the sql driver from the DSN shape.
func detectDriver(dsn string) (driver, cleaned string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql", strings.TrimPrefix(dsn, "mysql://")
	case strings.Contains(dsn, "@tcp("):
		return "mysql", dsn
	default:
		return "sqlite3", strings.TrimPrefix(dsn, "sqlite://")
	}
}

// Migrate creates the domain table if missing and seeds it when empty.
func (b *Backend) Migrate(ctx context.Context, seedItems []search.ProductSummary) error {
	cols := make([]string, 0, len(baseColumns)+len(b.attrColumns))
	cols = append(cols,
		"id TEXT PRIMARY KEY",
		"name TEXT NOT NULL",
		"brand TEXT NOT NULL DEFAULT ''",
		"price_cents BIGINT NOT NULL",
		"currency TEXT NOT NULL DEFAULT 'USD'",
		"image_url TEXT NOT NULL DEFAULT ''",
		"available BOOLEAN NOT NULL DEFAULT TRUE",
		"rating DOUBLE PRECISION NOT NULL DEFAULT 0",
		"reviews_count INTEGER NOT NULL DEFAULT 0",
		"description TEXT NOT NULL DEFAULT ''",
	)
	for _, c := range b.attrColumns {
		if b.intColumns[c] {
			cols = append(cols, fmt.Sprintf("%s BIGINT", c))
		} else {
			cols = append(cols, fmt.Sprintf("%s TEXT", c))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", b.table, strings.Join(cols, ", "))
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s table: %w", b.table, err)
	}

	var count int
	if err := b.db.QueryRowContext(ctx, b.rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s", b.table))).Scan(&count); err != nil {
		return fmt.Errorf("failed to count %s rows: %w", b.table, err)
	}
	if count > 0 || len(seedItems) == 0 {
		return nil
	}

	slog.Info("Seeding catalog table", "table", b.table, "items", len(seedItems))
	for _, p := range seedItems {
		if err := b.insert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) insert(ctx context.Context, p search.ProductSummary) error {
	cols := append([]string{}, baseColumns...)
	args := []interface{}{
		p.ID, p.Name, p.Brand, p.Price, p.Currency, p.ImageURL,
		p.Available, p.Rating, p.ReviewsCount, p.Description,
	}
	for _, c := range b.attrColumns {
		cols = append(cols, c)
		args = append(args, p.Attributes[c])
	}

	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := b.db.ExecContext(ctx, b.rebind(q), args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", p.ID, err)
	}
	return nil
}

// Search runs the filters as a WHERE clause, ranks in SQL by rating, and
// applies soft-preference re-ranking in memory.
func (b *Backend) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	where, args := b.whereClause(q.Filters)

	limit := q.Limit
	if limit <= 0 {
		limit = 60
	}

	cols := append(append([]string{}, baseColumns...), b.attrColumns...)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY rating DESC, price_cents ASC LIMIT %d",
		strings.Join(cols, ", "), b.table, where, limit)

	rows, err := b.db.QueryContext(ctx, b.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s query failed: %v", search.ErrBackendUnavailable, b.table, err)
	}
	defer rows.Close()

	var candidates []search.ProductSummary
	for rows.Next() {
		p, err := b.scan(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s rows failed: %v", search.ErrBackendUnavailable, b.table, err)
	}

	search.RankCandidates(candidates, q.Soft)
	return &search.Result{
		Candidates: candidates,
		Provenance: fmt.Sprintf("%s:%s", b.driver, b.table),
	}, nil
}

func (b *Backend) whereClause(filters catalog.Filters) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	clauses = append(clauses, "available = TRUE")
	for _, key := range filters.Keys() {
		v := filters[key]
		switch {
		case key == b.priceSlot:
			clauses = append(clauses, "price_cents <= ?")
			args = append(args, v.Int)
		case key == "brand":
			clauses = append(clauses, "LOWER(brand) = LOWER(?)")
			args = append(args, v.Text)
		case b.intColumns[key]:
			clauses = append(clauses, fmt.Sprintf("%s >= ?", key))
			args = append(args, v.Int)
		case b.hasColumn(key):
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) = LOWER(?)", key))
			args = append(args, v.Text)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Backend) hasColumn(key string) bool {
	for _, c := range b.attrColumns {
		if c == key {
			return true
		}
	}
	return false
}

func (b *Backend) scan(rows *sql.Rows) (search.ProductSummary, error) {
	p := search.ProductSummary{ProductType: strings.TrimSuffix(b.table, "s")}

	attrValues := make([]sql.NullString, len(b.attrColumns))
	dest := []interface{}{
		&p.ID, &p.Name, &p.Brand, &p.Price, &p.Currency, &p.ImageURL,
		&p.Available, &p.Rating, &p.ReviewsCount, &p.Description,
	}
	for i := range attrValues {
		dest = append(dest, &attrValues[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return p, fmt.Errorf("failed to scan %s row: %w", b.table, err)
	}

	p.Attributes = make(map[string]string, len(b.attrColumns))
	for i, c := range b.attrColumns {
		if attrValues[i].Valid {
			p.Attributes[c] = attrValues[i].String
		}
	}
	return p, nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (b *Backend) rebind(query string) string {
	if b.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Healthy pings the database.
func (b *Backend) Healthy(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %s ping failed: %v", search.ErrBackendUnavailable, b.table, err)
	}
	return nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}

var _ search.Backend = (*Backend)(nil)
