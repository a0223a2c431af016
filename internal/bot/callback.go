package bot

import (
	"errors"
	"strconv"
	"strings"
)

const (
	actionMenu     = "menu"
	actionCart     = "cart"
	actionCheckout = "checkout"
	actionProduct  = "product"
	actionInc      = "inc"
	actionDec      = "dec"
	actionAdd      = "add"
	actionRemove   = "remove"
)

var errBadCallback = errors.New("malformed callback data")

// callback is decoded inline-button data. Quantity travels in the data
// itself so handlers never read it back from the rendered keyboard.
type callback struct {
	action   string
	id       string
	quantity int
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	cb := callback{action: parts[0]}

	switch cb.action {
	case actionMenu, actionCart, actionCheckout:
		if len(parts) != 1 {
			return callback{}, errBadCallback
		}
	case actionProduct, actionRemove:
		if len(parts) != 2 || parts[1] == "" {
			return callback{}, errBadCallback
		}
		cb.id = parts[1]
	case actionInc, actionDec, actionAdd:
		if len(parts) != 3 || parts[1] == "" {
			return callback{}, errBadCallback
		}
		q, err := strconv.Atoi(parts[2])
		if err != nil || q < 1 {
			return callback{}, errBadCallback
		}
		cb.id = parts[1]
		cb.quantity = q
	default:
		return callback{}, errBadCallback
	}
	return cb, nil
}

func productData(productID string) string {
	return actionProduct + ":" + productID
}

func quantityData(action, productID string, quantity int) string {
	return action + ":" + productID + ":" + strconv.Itoa(quantity)
}

func removeData(itemID string) string {
	return actionRemove + ":" + itemID
}
