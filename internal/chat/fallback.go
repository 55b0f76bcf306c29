package chat

import (
	"context"
	"strings"
)

// KeywordProvider serves canned answers when no language model is available.
// It scans the latest user message for known topics.
type KeywordProvider struct{}

var cannedReplies = []struct {
	keywords []string
	reply    string
}{
	{
		keywords: []string{"stock", "inventory", "quantity"},
		reply:    "You can check current stock on the Products page. Items at or below their minimum level are highlighted in the low-stock report.",
	},
	{
		keywords: []string{"sale", "sell", "checkout", "receipt"},
		reply:    "To record a sale, add products to the cart on the POS screen, pick cash or card, and confirm. The receipt is sent automatically after the sale completes.",
	},
	{
		keywords: []string{"price", "margin", "vat"},
		reply:    "Product prices are edited on the product form. Changing cost, VAT, or margin recalculates the sell price automatically; editing the price directly recalculates the margin.",
	},
	{
		keywords: []string{"supplier", "delivery", "order"},
		reply:    "Suppliers are managed on the Suppliers page. Each product can be linked to a supplier for reordering.",
	},
	{
		keywords: []string{"discount"},
		reply:    "Per-line discounts are applied in the cart as a flat amount before VAT. Use the line's edit control on the POS screen.",
	},
}

const defaultReply = "I can help with questions about products, stock, sales, pricing and suppliers. What would you like to know?"

// Reply never fails; unknown topics get a generic pointer.
func (KeywordProvider) Reply(_ context.Context, messages []Message) (string, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = strings.ToLower(messages[i].Content)
			break
		}
	}
	for _, canned := range cannedReplies {
		for _, kw := range canned.keywords {
			if strings.Contains(last, kw) {
				return canned.reply, nil
			}
		}
	}
	return defaultReply, nil
}
