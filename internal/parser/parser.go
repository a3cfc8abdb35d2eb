// Package parser turns raw order messages into aggregated SKU quantities.
//
// Grammar: the ORDER keyword followed by whitespace-separated item tokens,
// each either SKU (quantity 1) or SKU=QTY. Parsing stops at the first error.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ulixes-8/orderflow/internal/entities"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

// Item is one parsed line: a canonical SKU and its aggregated quantity.
// Items keep first-seen SKU order.
type Item struct {
	SKU string
	Qty int
}

// Parse tokenizes and validates an order message. The token count limit is
// enforced before any per-token work so oversized input is rejected cheaply.
// SKU existence is not checked here; unknown SKUs are the service's concern.
func Parse(message string, maxItems, maxQty int) ([]Item, error) {
	// Fields splits on any unicode whitespace, so a blank message of any
	// flavor ("", "\r", "\v") yields zero tokens.
	tokens := strings.Fields(message)
	if len(tokens) == 0 {
		return nil, entities.NewErrorWithDetails(
			entities.CodeParseError, "Empty message.", map[string]any{"token": ""})
	}

	if !strings.EqualFold(tokens[0], "ORDER") {
		return nil, entities.NewError(entities.CodeParseError, "Message must start with ORDER.")
	}

	itemTokens := tokens[1:]
	if len(itemTokens) == 0 {
		return nil, entities.NewError(entities.CodeParseError, "Message must include at least one item.")
	}
	if len(itemTokens) > maxItems {
		return nil, entities.NewErrorWithDetails(
			entities.CodeTooManyItems,
			fmt.Sprintf("Message contains more than %d items.", maxItems),
			map[string]any{"max_items": maxItems},
		)
	}

	items := make([]Item, 0, len(itemTokens))
	index := make(map[string]int, len(itemTokens))
	for _, token := range itemTokens {
		skuPart, qtyPart, hasQty := strings.Cut(token, "=")
		if !skuPattern.MatchString(skuPart) {
			return nil, entities.NewErrorWithDetails(
				entities.CodeParseError, "Invalid SKU token.", map[string]any{"token": token})
		}

		qty := 1
		if hasQty {
			var err error
			qty, err = parseQty(qtyPart, maxQty, token)
			if err != nil {
				return nil, err
			}
		}

		sku := strings.ToUpper(skuPart)
		i, seen := index[sku]
		if !seen {
			i = len(items)
			index[sku] = i
			items = append(items, Item{SKU: sku})
		}
		items[i].Qty += qty
		if items[i].Qty > maxQty {
			return nil, entities.NewErrorWithDetails(
				entities.CodeInvalidQuantity,
				"Aggregated quantity exceeds allowed maximum.",
				map[string]any{"token": token},
			)
		}
	}
	return items, nil
}

func parseQty(qtyPart string, maxQty int, token string) (int, error) {
	if qtyPart == "" || !isDigits(qtyPart) {
		return 0, entities.NewErrorWithDetails(
			entities.CodeInvalidQuantity, "Quantity must be numeric.", map[string]any{"token": token})
	}
	qty, err := strconv.Atoi(qtyPart)
	if err != nil || qty < 1 || qty > maxQty {
		return 0, entities.NewErrorWithDetails(
			entities.CodeInvalidQuantity, "Quantity is out of allowed range.", map[string]any{"token": token})
	}
	return qty, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
