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

// Package cart applies favorite and cart mutations to a session. Products
// are referenced by id and resolved against the session's last shown
// results; the cart itself is just ids and quantities.
package cart

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/concierge/pkg/session"
)

// Action is a cart mutation verb.
type Action string

const (
	ActionFavorite   Action = "favorite"
	ActionUnfavorite Action = "unfavorite"
	ActionAdd        Action = "add"
	ActionRemove     Action = "remove"
	ActionCheckout   Action = "checkout"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionFavorite:
		return ActionFavorite, nil
	case ActionUnfavorite:
		return ActionUnfavorite, nil
	case ActionAdd:
		return ActionAdd, nil
	case ActionRemove:
		return ActionRemove, nil
	case ActionCheckout:
		return ActionCheckout, nil
	}
	return "", fmt.Errorf("unknown cart action: %q", s)
}

// Apply mutates the session per the action and returns a user-facing
// confirmation. Unknown product ids are reported, not fatal. Checkout
// moves the session to the CHECKOUT stage.
func Apply(s *session.State, action Action, ids []string) (string, error) {
	switch action {
	case ActionFavorite, ActionUnfavorite:
		return applyFavorites(s, action == ActionFavorite, ids)
	case ActionAdd, ActionRemove:
		return applyCart(s, action == ActionAdd, ids)
	case ActionCheckout:
		return applyCheckout(s)
	}
	return "", fmt.Errorf("unknown cart action: %q", action)
}

func applyFavorites(s *session.State, favorite bool, ids []string) (string, error) {
	if len(ids) == 0 {
		return "Which product did you mean? You can pick one from the results above.", nil
	}
	if s.Favorites == nil {
		s.Favorites = make(map[string]bool)
	}

	var named, missing []string
	for _, id := range ids {
		p, ok := s.FindResult(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		if favorite {
			s.Favorites[id] = true
		} else {
			delete(s.Favorites, id)
		}
		named = append(named, p.Name)
	}

	if len(named) == 0 {
		return "I couldn't find those products in the current results.", nil
	}
	verb := "Saved"
	if !favorite {
		verb = "Removed"
	}
	msg := fmt.Sprintf("%s %s.", verb, humanList(named))
	if len(missing) > 0 {
		msg += fmt.Sprintf(" (couldn't find: %s)", strings.Join(missing, ", "))
	}
	return msg, nil
}

func applyCart(s *session.State, add bool, ids []string) (string, error) {
	if len(ids) == 0 {
		return "Which product should I update in your cart?", nil
	}
	if s.Cart == nil {
		s.Cart = make(map[string]int)
	}

	var named, missing []string
	for _, id := range ids {
		p, ok := s.FindResult(id)
		if !ok {
			// Removal by id works even after the results scrolled away.
			if !add && s.Cart[id] > 0 {
				delete(s.Cart, id)
				named = append(named, id)
				continue
			}
			missing = append(missing, id)
			continue
		}
		if add {
			s.Cart[id]++
		} else {
			delete(s.Cart, id)
		}
		named = append(named, p.Name)
	}

	if len(named) == 0 {
		return "I couldn't find those products in the current results.", nil
	}
	verb := "Added"
	tail := "to your cart"
	if !add {
		verb = "Removed"
		tail = "from your cart"
	}
	msg := fmt.Sprintf("%s %s %s.", verb, humanList(named), tail)
	if len(missing) > 0 {
		msg += fmt.Sprintf(" (couldn't find: %s)", strings.Join(missing, ", "))
	}
	return msg, nil
}

func applyCheckout(s *session.State) (string, error) {
	if len(s.CartIDs()) == 0 && len(s.FavoriteIDs()) == 0 {
		return "Your cart is empty. Add a product first and I'll take you to checkout.", nil
	}
	s.Stage = session.StageCheckout
	var names []string
	for _, id := range s.CartIDs() {
		if p, ok := s.FindResult(id); ok {
			names = append(names, p.Name)
		} else {
			names = append(names, id)
		}
	}
	if len(names) == 0 {
		return "Heading to checkout with your saved favorites.", nil
	}
	return fmt.Sprintf("Heading to checkout with %s.", humanList(names)), nil
}

// Total sums the cart in smallest currency units, skipping products no
// longer resolvable from the last results.
func Total(s *session.State) int64 {
	var total int64
	for id, qty := range s.Cart {
		if p, ok := s.FindResult(id); ok {
			total += p.Price * int64(qty)
		}
	}
	return total
}

func humanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
