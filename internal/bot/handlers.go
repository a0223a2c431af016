package bot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/storebot/internal/service"
)

func (d *Dispatcher) showMenu(ctx context.Context, t *turn) (State, error) {
	products, err := d.catalog.ListProducts(ctx)
	if err != nil {
		return "", err
	}
	if _, err := d.messenger.SendMessage(ctx, t.chatID, textChooseProduct, menuKeyboard(products)); err != nil {
		return "", err
	}
	d.dropCallbackMessage(ctx, t)
	return StateHandleMenu, nil
}

func (d *Dispatcher) showProduct(ctx context.Context, t *turn, productID string) (State, error) {
	detail, err := d.catalog.ProductDetail(ctx, productID)
	if errors.Is(err, service.ErrProductNotFound) {
		t.notice = textProductGone
		return d.showMenu(ctx, t)
	}
	if err != nil {
		return "", err
	}

	caption := productCaption(detail)
	markup := productKeyboard(productID, 1)
	if detail.Product.MainImageURL != "" {
		_, err = d.messenger.SendPhoto(ctx, t.chatID, detail.Product.MainImageURL, caption, markup)
	} else {
		_, err = d.messenger.SendMessage(ctx, t.chatID, caption, markup)
	}
	if err != nil {
		return "", err
	}
	d.dropCallbackMessage(ctx, t)
	return StateHandleDescription, nil
}

// increase bumps the selected quantity while selected plus already in
// cart stays below the available stock.
func (d *Dispatcher) increase(ctx context.Context, t *turn, productID string, selected int) (State, error) {
	var available, inCart int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := d.catalog.Available(gctx, productID)
		available = n
		return err
	})
	g.Go(func() error {
		n, err := d.carts.CurrentQuantity(gctx, t.userID, productID)
		inCart = n
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			t.notice = textProductGone
			return StateHandleDescription, nil
		}
		return "", err
	}

	if selected+inCart < available {
		if err := d.messenger.EditMessageReplyMarkup(ctx, t.chatID, t.callbackMessageID(), productKeyboard(productID, selected+1)); err != nil {
			return "", err
		}
		return StateHandleDescription, nil
	}

	if _, err := d.messenger.SendMessage(ctx, t.chatID, stockLimitText(inCart, available), nil); err != nil {
		return "", err
	}
	return StateHandleDescription, nil
}

func (d *Dispatcher) decrease(ctx context.Context, t *turn, productID string, selected int) (State, error) {
	if selected > 1 {
		if err := d.messenger.EditMessageReplyMarkup(ctx, t.chatID, t.callbackMessageID(), productKeyboard(productID, selected-1)); err != nil {
			return "", err
		}
	}
	return StateHandleDescription, nil
}

func (d *Dispatcher) addToCart(ctx context.Context, t *turn, productID string, quantity int) (State, error) {
	out, err := d.carts.AddToCart(ctx, t.userID, productID, quantity)
	if err != nil {
		return "", err
	}

	switch out.Kind {
	case service.OutcomeAdded:
		t.notice = "Added to cart."
		return StateHandleDescription, nil
	case service.OutcomeQuantityExceedsStock:
		_, err = d.messenger.SendMessage(ctx, t.chatID, exceedsStockText(out.AlreadyInCart, out.Available), nil)
	default:
		d.logger.Warn("add to cart rejected", zap.Int64("chat_id", t.chatID), zap.Error(out.Err))
		_, err = d.messenger.SendMessage(ctx, t.chatID, textAddFailed, nil)
	}
	if err != nil {
		return "", err
	}
	return StateHandleDescription, nil
}

func (d *Dispatcher) showCart(ctx context.Context, t *turn) (State, error) {
	snapshot, err := d.carts.Cart(ctx, t.userID)
	if err != nil {
		return "", err
	}
	if _, err := d.messenger.SendMessage(ctx, t.chatID, cartText(snapshot), cartKeyboard(snapshot)); err != nil {
		return "", err
	}
	d.dropCallbackMessage(ctx, t)
	return StateHandleCart, nil
}

func (d *Dispatcher) removeItem(ctx context.Context, t *turn, itemID string) (State, error) {
	out, err := d.carts.RemoveFromCart(ctx, t.userID, itemID)
	if err != nil {
		return "", err
	}
	switch out.Kind {
	case service.OutcomeRemoved:
		t.notice = "Removed."
	case service.OutcomeItemNotFound:
		t.notice = textItemAlreadyGone
	default:
		t.notice = textRemoveFailed
	}
	return d.showCart(ctx, t)
}

func (d *Dispatcher) askEmail(ctx context.Context, t *turn) (State, error) {
	if _, err := d.messenger.SendMessage(ctx, t.chatID, textAskEmail, nil); err != nil {
		return "", err
	}
	return StateWaitingEmail, nil
}

func (d *Dispatcher) receiveEmail(ctx context.Context, t *turn, email string) (State, error) {
	out, err := d.checkout.Checkout(ctx, t.userID, senderName(t), email)
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		_, err = d.messenger.SendMessage(ctx, t.chatID, textInvalidEmail, nil)
		return StateWaitingEmail, err
	case errors.Is(err, service.ErrEmptyCart):
		if _, err := d.messenger.SendMessage(ctx, t.chatID, textEmptyCart, nil); err != nil {
			return "", err
		}
		return d.showMenu(ctx, t)
	case err != nil:
		return "", err
	}

	if _, err := d.messenger.SendMessage(ctx, t.chatID, orderPlacedText(out), nil); err != nil {
		return "", err
	}
	return d.showMenu(ctx, t)
}

func senderName(t *turn) string {
	msg := t.update.Message
	if msg == nil || msg.From == nil {
		return ""
	}
	return strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
}
