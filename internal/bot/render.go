package bot

import (
	"fmt"
	"strconv"
	"strings"

	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/service"
	"storefront/storebot/internal/telegram"
)

const (
	textChooseProduct   = "Please choose:"
	textGenericFailure  = "Sorry, something went wrong. Please try again later."
	textStartHint       = "Send /start to open the catalog."
	textEmptyCart       = "Your cart is empty."
	textAskEmail        = "Please send your email address and we will contact you to confirm the order."
	textInvalidEmail    = "That does not look like an email address. Please try again."
	textAddFailed       = "Sorry, this product cannot be added to your cart."
	textProductGone     = "Sorry, this product is no longer available."
	textInactiveButton  = "This button is no longer active."
	textUnknownAction   = "Unknown action."
	textItemAlreadyGone = "This item is no longer in your cart."
	textRemoveFailed    = "Sorry, this item cannot be removed right now."
)

func menuKeyboard(products []commerce.Product) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, telegram.Row(telegram.Button(p.Name, productData(p.ID))))
	}
	rows = append(rows, telegram.Row(telegram.Button("Cart", actionCart)))
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func productKeyboard(productID string, quantity int) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		telegram.Row(
			telegram.Button("-", quantityData(actionDec, productID, quantity)),
			telegram.Button(strconv.Itoa(quantity), quantityData(actionAdd, productID, quantity)),
			telegram.Button("+", quantityData(actionInc, productID, quantity)),
		),
		telegram.Row(telegram.Button("Add to cart", quantityData(actionAdd, productID, quantity))),
		telegram.Row(
			telegram.Button("Cart", actionCart),
			telegram.Button("Back", actionMenu),
		),
	}}
}

func cartKeyboard(snapshot *service.CartSnapshot) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(snapshot.Lines)+2)
	for _, line := range snapshot.Lines {
		rows = append(rows, telegram.Row(telegram.Button("Remove "+line.Name, removeData(line.ItemID))))
	}
	if !snapshot.Empty() {
		rows = append(rows, telegram.Row(telegram.Button("Checkout", actionCheckout)))
	}
	rows = append(rows, telegram.Row(telegram.Button("Menu", actionMenu)))
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func productCaption(d *service.ProductDetail) string {
	var b strings.Builder
	b.WriteString(d.Product.Name)
	if d.Product.Description != "" {
		b.WriteString("\n\n" + d.Product.Description)
	}
	fmt.Fprintf(&b, "\n\n%s\n\n%d pcs available", d.Product.Price, d.Available)
	return b.String()
}

func cartText(snapshot *service.CartSnapshot) string {
	if snapshot.Empty() {
		return textEmptyCart
	}
	var b strings.Builder
	for _, line := range snapshot.Lines {
		fmt.Fprintf(&b, "%s\n%d pcs", line.Name, line.Quantity)
		if line.UnitPrice != "" {
			fmt.Fprintf(&b, " x %s", line.UnitPrice)
		}
		if line.DisplayTotal != "" {
			fmt.Fprintf(&b, " = %s", line.DisplayTotal)
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Total: %s", snapshot.GrandTotal)
	return b.String()
}

func stockLimitText(inCart, available int) string {
	var b strings.Builder
	if inCart > 0 {
		fmt.Fprintf(&b, "You already added %d pcs to your cart.\n\n", inCart)
	}
	fmt.Fprintf(&b, "You can purchase only %d pcs.", available)
	return b.String()
}

func exceedsStockText(inCart, available int) string {
	return fmt.Sprintf("Sorry, you are trying to add too many pcs.\n\nNow in your cart: %d pcs.\nAvailable for order: %d pcs.", inCart, available)
}

func orderPlacedText(out *service.CheckoutOutcome) string {
	return fmt.Sprintf("Thank you! Order %s is placed.\nWe will contact you at %s.", out.Order.ID, out.Order.CustomerEmail)
}
