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

// Package validate screens user input before the pipeline runs: price
// patterns pass, greetings short-circuit to a domain picker, gibberish is
// rejected, and near-miss domain words are fuzzy-corrected.
package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// Verdict classifies a message.
type Verdict int

const (
	// Valid input proceeds to the pipeline.
	Valid Verdict = iota
	// Greeting short-circuits to a domain-selection response.
	Greeting
	// Invalid input gets a scripted clarification.
	Invalid
)

// Result is the validator's output.
type Result struct {
	Verdict Verdict
	// Intent is set for pattern matches ("price").
	Intent string
	// Corrected is the message after fuzzy domain-keyword substitution;
	// equal to the input when nothing was corrected.
	Corrected string
}

var (
	pricePattern = regexp.MustCompile(`(?i)(\$\s*\d[\d,]*(\.\d+)?)|(\d[\d,]*(\.\d+)?\s*(dollars|bucks|k\b|usd))|(under|below|less than|over|above|between)\s*\$?\s*\d`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	punctOnly    = regexp.MustCompile(`^[\p{P}\p{S}\s]+$`)
)

var defaultGreetings = []string{
	"hi", "hello", "hey", "yo", "sup", "hiya", "howdy",
	"good morning", "good afternoon", "good evening",
}

// domainKeywords are fuzzy-correction targets. Keys are canonical words
// substituted into the message.
var domainKeywords = []string{
	"book", "books", "laptop", "laptops", "vehicle", "vehicles",
	"car", "cars", "computer", "novel",
}

// Validator screens raw chat messages.
type Validator struct {
	greetings []string
}

// New creates a validator with the default greeting set.
func New() *Validator {
	return &Validator{greetings: defaultGreetings}
}

// WithGreetings overrides the greeting set.
func (v *Validator) WithGreetings(greetings []string) *Validator {
	v.greetings = greetings
	return v
}

// Check classifies the message, applying checks in order: price pattern,
// greeting, length/digits/punctuation, vowel-ratio gibberish heuristic.
func (v *Validator) Check(message string) Result {
	trimmed := strings.TrimSpace(message)

	if pricePattern.MatchString(trimmed) {
		return Result{Verdict: Valid, Intent: "price", Corrected: v.correct(trimmed)}
	}

	lower := strings.ToLower(trimmed)
	for _, g := range v.greetings {
		if lower == g || lower == g+"!" || lower == g+"." {
			return Result{Verdict: Greeting, Corrected: trimmed}
		}
	}

	if len(trimmed) < 2 || digitsOnly.MatchString(trimmed) || punctOnly.MatchString(trimmed) {
		return Result{Verdict: Invalid, Corrected: trimmed}
	}

	if isGibberish(trimmed) {
		return Result{Verdict: Invalid, Corrected: trimmed}
	}

	return Result{Verdict: Valid, Corrected: v.correct(trimmed)}
}

// isGibberish flags text whose vowel ratio falls outside [0.2, 0.7] after
// extracting alphabetic characters only.
func isGibberish(s string) bool {
	var letters, vowels int
	for _, r := range strings.ToLower(s) {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch r {
		case 'a', 'e', 'i', 'o', 'u', 'y':
			vowels++
		}
	}
	if letters == 0 {
		return true
	}
	ratio := float64(vowels) / float64(letters)
	return ratio < 0.2 || ratio > 0.7
}

// correct substitutes near-miss domain keywords using Levenshtein distance
// with a length-indexed tolerance and a 60% similarity floor.
func (v *Validator) correct(message string) string {
	words := strings.Fields(message)
	changed := false

	for i, word := range words {
		stripped := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if stripped == "" {
			continue
		}
		if best, ok := matchKeyword(stripped); ok && best != stripped {
			words[i] = best
			changed = true
		}
	}

	if !changed {
		return message
	}
	return strings.Join(words, " ")
}

func matchKeyword(word string) (string, bool) {
	// Exact matches need no correction.
	for _, kw := range domainKeywords {
		if word == kw {
			return word, true
		}
	}

	tolerance := toleranceFor(len(word))
	if tolerance == 0 {
		return "", false
	}

	best := ""
	bestDist := tolerance + 1
	for _, kw := range domainKeywords {
		d := levenshteinDistance(word, kw)
		if d > tolerance || d >= bestDist {
			continue
		}
		longer := len(word)
		if len(kw) > longer {
			longer = len(kw)
		}
		similarity := 1 - float64(d)/float64(longer)
		if similarity < 0.6 {
			continue
		}
		best = kw
		bestDist = d
	}
	return best, best != ""
}

// toleranceFor maps word length to the allowed edit distance:
// 3-5 chars: 2, 6-8: 3, 9+: 3. Shorter words are never corrected.
func toleranceFor(length int) int {
	switch {
	case length < 3:
		return 0
	case length <= 5:
		return 2
	default:
		return 3
	}
}

func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
