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

// Package seed ships a small demo catalog for each domain. It backs the
// in-memory backends when no external store is configured, bootstraps the
// vehicles vector index, and feeds the tests.
package seed

import "github.com/kadirpekel/concierge/pkg/search"

// Laptops returns the demo laptop catalog.
func Laptops() []search.ProductSummary {
	return []search.ProductSummary{
		laptop("lap-001", "MacBook Air 13", "Apple", 1099_00, 4.8, 2841, "Fanless everyday ultraportable with all-day battery.",
			"everyday", "13\"", "Apple", "16"),
		laptop("lap-002", "MacBook Pro 16", "Apple", 2499_00, 4.7, 1932, "Creator workhorse with a bright XDR display.",
			"creative", "16\"", "Apple", "36"),
		laptop("lap-003", "XPS 13", "Dell", 1199_00, 4.5, 1544, "Compact premium ultrabook with a near-borderless screen.",
			"work", "13\"", "Intel", "16"),
		laptop("lap-004", "XPS 15", "Dell", 1749_00, 4.4, 987, "Larger XPS with discrete graphics for light creative work.",
			"creative", "15\"", "NVIDIA", "32"),
		laptop("lap-005", "ThinkPad X1 Carbon", "Lenovo", 1599_00, 4.6, 2210, "Business classic, famous keyboard, feather weight.",
			"work", "14\"", "Intel", "16"),
		laptop("lap-006", "Legion Pro 5", "Lenovo", 1399_00, 4.5, 1120, "High-refresh gaming laptop that stays cool under load.",
			"gaming", "16\"", "NVIDIA", "32"),
		laptop("lap-007", "Spectre x360", "HP", 1349_00, 4.4, 840, "Convertible 2-in-1 with a gem-cut chassis.",
			"everyday", "14\"", "Intel", "16"),
		laptop("lap-008", "Victus 15", "HP", 799_00, 4.1, 630, "Entry gaming on a budget.",
			"gaming", "15\"", "NVIDIA", "16"),
		laptop("lap-009", "ROG Zephyrus G14", "ASUS", 1649_00, 4.6, 1485, "Compact gaming powerhouse with AMD graphics.",
			"gaming", "14\"", "AMD", "32"),
		laptop("lap-010", "Zenbook 14 OLED", "ASUS", 899_00, 4.4, 1010, "OLED screen at a midrange price.",
			"student", "14\"", "Intel", "16"),
		laptop("lap-011", "Aspire 5", "Acer", 549_00, 4.0, 2310, "Reliable budget all-rounder for school and browsing.",
			"student", "15\"", "Intel", "8"),
		laptop("lap-012", "Predator Helios 16", "Acer", 1899_00, 4.3, 540, "Desktop-class gaming with a mini-LED panel.",
			"gaming", "16\"", "NVIDIA", "32"),
		laptop("lap-013", "Katana 15", "MSI", 1099_00, 4.2, 720, "Midrange gaming with a full RGB keyboard.",
			"gaming", "15\"", "NVIDIA", "16"),
		laptop("lap-014", "Blade 14", "Razer", 2199_00, 4.5, 410, "Premium thin gaming chassis in anodized aluminum.",
			"gaming", "14\"", "NVIDIA", "32"),
	}
}

// Books returns the demo book catalog.
func Books() []search.ProductSummary {
	return []search.ProductSummary{
		book("book-001", "The Silent Patient", "Celadon", 14_99, 4.5, 120543, "A psychotherapist unravels why a painter shot her husband and never spoke again.",
			"thriller", "paperback", "medium"),
		book("book-002", "Project Hail Mary", "Ballantine", 18_99, 4.8, 98231, "A lone astronaut wakes up with amnesia and a mission to save Earth.",
			"sci-fi", "hardcover", "long"),
		book("book-003", "The Thursday Murder Club", "Penguin", 12_99, 4.3, 65780, "Four retirees meet weekly to solve cold cases, then a fresh one lands at their door.",
			"mystery", "paperback", "medium"),
		book("book-004", "Dune", "Ace", 10_99, 4.7, 154002, "The spice must flow. The desert-planet epic that defined a genre.",
			"sci-fi", "paperback", "long"),
		book("book-005", "The Name of the Wind", "DAW", 11_99, 4.7, 88450, "A gifted orphan talks his way into a university of magic.",
			"fantasy", "paperback", "long"),
		book("book-006", "It Ends with Us", "Atria", 13_49, 4.4, 201334, "A florist's new romance forces her to confront her past.",
			"romance", "paperback", "medium"),
		book("book-007", "Educated", "Random House", 15_99, 4.7, 132870, "A memoir of leaving a survivalist family for a PhD.",
			"biography", "hardcover", "medium"),
		book("book-008", "Sapiens", "Harper", 17_99, 4.6, 174220, "A brief history of humankind, from foragers to algorithms.",
			"history", "paperback", "long"),
		book("book-009", "Atomic Habits", "Avery", 16_20, 4.8, 210984, "Small habits, remarkable results. The compound interest of self-improvement.",
			"self-help", "hardcover", "medium"),
		book("book-010", "The Big Sleep", "Vintage", 9_99, 4.3, 23410, "Philip Marlowe takes a blackmail case that spirals.",
			"mystery", "paperback", "short"),
		book("book-011", "The Martian", "Crown", 9_49, 4.7, 160238, "Stranded on Mars with potatoes, duct tape and math.",
			"sci-fi", "ebook", "medium"),
		book("book-012", "Gone Girl", "Crown", 12_00, 4.2, 145220, "A marriage curdles into a national news story.",
			"thriller", "ebook", "medium"),
		book("book-013", "The Hobbit", "Mariner", 8_99, 4.7, 190334, "There and back again.",
			"fantasy", "paperback", "medium"),
		book("book-014", "Steve Jobs", "Simon & Schuster", 19_99, 4.5, 76540, "The authorized biography, from garage to Infinite Loop.",
			"biography", "hardcover", "long"),
	}
}

// Vehicles returns the demo vehicle fleet.
func Vehicles() []search.ProductSummary {
	return []search.ProductSummary{
		vehicle("veh-001", "Camry SE", "Toyota", 28_400_00, 4.6, 1840, "Dependable midsize sedan with standard hybrid option.",
			"sedan", "hybrid", "silver"),
		vehicle("veh-002", "RAV4 XLE", "Toyota", 31_900_00, 4.5, 2210, "Best-selling compact SUV with all-wheel drive.",
			"suv", "gas", "blue"),
		vehicle("veh-003", "Civic Sport", "Honda", 25_100_00, 4.6, 1975, "Sharp-handling compact with a refined interior.",
			"sedan", "gas", "gray"),
		vehicle("veh-004", "CR-V EX-L", "Honda", 33_400_00, 4.5, 1630, "Roomy family SUV with hands-free tailgate.",
			"suv", "hybrid", "white"),
		vehicle("veh-005", "F-150 XLT", "Ford", 45_300_00, 4.4, 2540, "America's truck. Configurable to a fault.",
			"truck", "gas", "black"),
		vehicle("veh-006", "Mustang Mach-E", "Ford", 42_900_00, 4.3, 890, "Electric crossover with pony-car styling cues.",
			"suv", "electric", "red"),
		vehicle("veh-007", "Silverado LT", "Chevrolet", 43_800_00, 4.2, 1320, "Full-size work truck with a big tow rating.",
			"truck", "diesel", "white"),
		vehicle("veh-008", "330i", "BMW", 46_700_00, 4.5, 760, "The benchmark sport sedan.",
			"sedan", "gas", "black"),
		vehicle("veh-009", "GLC 300", "Mercedes-Benz", 49_900_00, 4.4, 540, "Lux compact SUV with a plush cabin.",
			"suv", "gas", "silver"),
		vehicle("veh-010", "Model 3", "Tesla", 40_200_00, 4.4, 3120, "Minimalist electric sedan with the Supercharger network.",
			"sedan", "electric", "white"),
		vehicle("veh-011", "Model Y", "Tesla", 47_700_00, 4.3, 2870, "The Model 3's taller, roomier sibling.",
			"suv", "electric", "gray"),
		vehicle("veh-012", "Elantra SEL", "Hyundai", 22_800_00, 4.3, 1430, "A lot of sedan for the money, with a long warranty.",
			"sedan", "gas", "blue"),
		vehicle("veh-013", "Telluride EX", "Kia", 39_600_00, 4.7, 1210, "Three-row family SUV that punches above its price.",
			"suv", "gas", "green"),
		vehicle("veh-014", "Outback Premium", "Subaru", 31_400_00, 4.5, 1550, "Rugged wagon with standard all-wheel drive.",
			"wagon", "gas", "gray"),
		vehicle("veh-015", "Sienna LE", "Toyota", 38_500_00, 4.4, 980, "Hybrid-only minivan for the long haul.",
			"minivan", "hybrid", "silver"),
		vehicle("veh-016", "Corolla Hatchback", "Toyota", 23_800_00, 4.4, 1110, "Practical hatch with sharp looks.",
			"hatchback", "gas", "red"),
	}
}

func laptop(id, name, brand string, cents int64, rating float64, reviews int, desc, useCase, screen, gpu, ram string) search.ProductSummary {
	return search.ProductSummary{
		ID: id, ProductType: "laptop", Name: name, Brand: brand,
		Price: cents, Currency: "USD", Available: true,
		Rating: rating, ReviewsCount: reviews, Description: desc,
		Attributes: map[string]string{
			"use_case":    useCase,
			"screen_size": screen,
			"gpu_vendor":  gpu,
			"ram_gb":      ram,
		},
	}
}

func book(id, name, brand string, cents int64, rating float64, reviews int, desc, genre, format, length string) search.ProductSummary {
	return search.ProductSummary{
		ID: id, ProductType: "book", Name: name, Brand: brand,
		Price: cents, Currency: "USD", Available: true,
		Rating: rating, ReviewsCount: reviews, Description: desc,
		Attributes: map[string]string{
			"genre":  genre,
			"format": format,
			"length": length,
		},
	}
}

func vehicle(id, name, brand string, cents int64, rating float64, reviews int, desc, body, fuel, color string) search.ProductSummary {
	return search.ProductSummary{
		ID: id, ProductType: "vehicle", Name: name, Brand: brand,
		Price: cents, Currency: "USD", Available: true,
		Rating: rating, ReviewsCount: reviews, Description: desc,
		Attributes: map[string]string{
			"body_style": body,
			"fuel_type":  fuel,
			"color":      color,
		},
	}
}
