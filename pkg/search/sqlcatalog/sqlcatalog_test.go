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

package sqlcatalog

import (
	"testing"

	"github.com/kadirpekel/concierge/pkg/catalog"
)

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		dsn         string
		wantDriver  string
		wantCleaned string
	}{
		{"postgres://user:pw@localhost/catalog", "postgres", "postgres://user:pw@localhost/catalog"},
		{"postgresql://localhost/catalog", "postgres", "postgresql://localhost/catalog"},
		{"mysql://user:pw@tcp(localhost:3306)/catalog", "mysql", "user:pw@tcp(localhost:3306)/catalog"},
		{"user:pw@tcp(localhost:3306)/catalog", "mysql", "user:pw@tcp(localhost:3306)/catalog"},
		{"sqlite:///tmp/catalog.db", "sqlite3", "/tmp/catalog.db"},
		{"/tmp/catalog.db", "sqlite3", "/tmp/catalog.db"},
		{":memory:", "sqlite3", ":memory:"},
	}
	for _, tt := range tests {
		driver, cleaned := detectDriver(tt.dsn)
		if driver != tt.wantDriver || cleaned != tt.wantCleaned {
			t.Errorf("detectDriver(%q) = (%q, %q), want (%q, %q)",
				tt.dsn, driver, cleaned, tt.wantDriver, tt.wantCleaned)
		}
	}
}

func testBackend(driver string) *Backend {
	return &Backend{
		domain:      catalog.DomainLaptops,
		driver:      driver,
		table:       "laptops",
		attrColumns: []string{"use_case", "screen_size", "gpu_vendor", "ram_gb"},
		priceSlot:   "budget",
		intColumns:  map[string]bool{"ram_gb": true},
	}
}

func TestWhereClause(t *testing.T) {
	b := testBackend("sqlite3")
	filters := catalog.Filters{
		"budget":   catalog.PriceValue(150000),
		"brand":    catalog.TextValue(catalog.ValueCategorical, "Dell"),
		"use_case": catalog.TextValue(catalog.ValueCategorical, "gaming"),
		"ram_gb":   catalog.IntValue(16),
	}

	// Filter keys iterate in sorted order: brand, budget, ram_gb, use_case.
	where, args := b.whereClause(filters)
	want := " WHERE available = TRUE AND LOWER(brand) = LOWER(?) AND price_cents <= ? AND ram_gb >= ? AND LOWER(use_case) = LOWER(?)"
	if where != want {
		t.Errorf("where = %q\nwant    %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
	if args[0] != "Dell" || args[3] != "gaming" {
		t.Errorf("text args = %v", args)
	}
	if args[1] != int64(150000) {
		t.Errorf("price arg = %v", args[1])
	}
	if args[2] != int64(16) {
		t.Errorf("ram arg = %v", args[2])
	}
}

func TestWhereClause_SkipsUnknownColumns(t *testing.T) {
	b := testBackend("sqlite3")
	filters := catalog.Filters{
		"color": catalog.TextValue(catalog.ValueCategorical, "red"),
	}

	where, args := b.whereClause(filters)
	if where != " WHERE available = TRUE" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v", args)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM laptops WHERE price_cents <= ? AND LOWER(brand) = LOWER(?)"

	if got := testBackend("sqlite3").rebind(q); got != q {
		t.Errorf("sqlite3 rebind changed the query: %q", got)
	}
	if got := testBackend("mysql").rebind(q); got != q {
		t.Errorf("mysql rebind changed the query: %q", got)
	}

	want := "SELECT id FROM laptops WHERE price_cents <= $1 AND LOWER(brand) = LOWER($2)"
	if got := testBackend("postgres").rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}
