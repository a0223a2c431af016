package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront/storebot/internal/metrics"
	"storefront/storebot/internal/repository"
	"storefront/storebot/internal/service"
	"storefront/storebot/internal/telegram"
	"storefront/storebot/pkg/keylock"
)

// Messenger is the outbound side of the messaging platform.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, markup *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	EditMessageReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Dispatcher drives the per-chat conversation. Updates of one chat are
// handled one at a time; different chats proceed concurrently.
type Dispatcher struct {
	messenger Messenger
	catalog   service.CatalogService
	carts     service.CartService
	checkout  service.CheckoutService
	states    stateRepo
	locks     *keylock.Locker
	logger    *zap.Logger
}

func NewDispatcher(
	messenger Messenger,
	catalog service.CatalogService,
	carts service.CartService,
	checkout service.CheckoutService,
	store repository.StateStore,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		messenger: messenger,
		catalog:   catalog,
		carts:     carts,
		checkout:  checkout,
		states:    stateRepo{store: store},
		locks:     keylock.New(),
		logger:    logger.Named("bot"),
	}
}

// turn carries one update through the handlers.
type turn struct {
	chatID   int64
	userID   string
	update   telegram.Update
	callback *telegram.CallbackQuery
	// notice is shown as the callback answer toast.
	notice string
}

// callbackMessageID returns the message the pressed button belongs to, or 0.
func (t *turn) callbackMessageID() int {
	if t.callback == nil || t.callback.Message == nil {
		return 0
	}
	return t.callback.Message.MessageID
}

func (d *Dispatcher) Handle(ctx context.Context, update telegram.Update) {
	chatID := update.ChatID()
	if chatID == 0 {
		d.logger.Debug("ignoring update without chat", zap.Int64("update_id", update.UpdateID))
		return
	}

	unlock := d.locks.Lock(strconv.FormatInt(chatID, 10))
	defer unlock()

	t := &turn{
		chatID:   chatID,
		userID:   strconv.FormatInt(chatID, 10),
		update:   update,
		callback: update.CallbackQuery,
	}

	state, err := d.states.load(ctx, chatID)
	if err != nil {
		d.fail(ctx, t, StateStart, err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, t, state, fmt.Errorf("panic: %v", r))
		}
	}()

	next, err := d.route(ctx, t, state)
	if err != nil {
		d.fail(ctx, t, state, err)
		return
	}
	if next != state {
		if err := d.states.save(ctx, chatID, next); err != nil {
			d.fail(ctx, t, state, err)
			return
		}
	}

	d.answer(ctx, t)
	metrics.IncBotUpdate(string(state), "ok")
}

func (d *Dispatcher) route(ctx context.Context, t *turn, state State) (State, error) {
	if msg := t.update.Message; msg != nil {
		text := strings.TrimSpace(msg.Text)
		switch {
		case text == "/start":
			return d.showMenu(ctx, t)
		case state == StateWaitingEmail:
			return d.receiveEmail(ctx, t, text)
		default:
			_, err := d.messenger.SendMessage(ctx, t.chatID, textStartHint, nil)
			return state, err
		}
	}

	if t.callback == nil {
		return state, nil
	}

	cb, err := parseCallback(t.callback.Data)
	if err != nil {
		d.logger.Debug("unparsable callback", zap.String("data", t.callback.Data))
		t.notice = textUnknownAction
		return state, nil
	}
	if !allowed(state, cb.action) {
		t.notice = textInactiveButton
		return state, nil
	}

	switch cb.action {
	case actionMenu:
		return d.showMenu(ctx, t)
	case actionCart:
		return d.showCart(ctx, t)
	case actionProduct:
		return d.showProduct(ctx, t, cb.id)
	case actionInc:
		return d.increase(ctx, t, cb.id, cb.quantity)
	case actionDec:
		return d.decrease(ctx, t, cb.id, cb.quantity)
	case actionAdd:
		return d.addToCart(ctx, t, cb.id, cb.quantity)
	case actionRemove:
		return d.removeItem(ctx, t, cb.id)
	case actionCheckout:
		return d.askEmail(ctx, t)
	}
	return state, nil
}

// allowed gates buttons by state; menu and cart are always reachable.
func allowed(state State, action string) bool {
	switch action {
	case actionMenu, actionCart:
		return true
	case actionProduct:
		return state == StateHandleMenu
	case actionInc, actionDec, actionAdd:
		return state == StateHandleDescription
	case actionRemove, actionCheckout:
		return state == StateHandleCart
	}
	return false
}

func (d *Dispatcher) fail(ctx context.Context, t *turn, state State, err error) {
	d.logger.Error("update handling failed",
		zap.Int64("chat_id", t.chatID),
		zap.String("state", string(state)),
		zap.Error(err),
	)
	metrics.IncBotUpdate(string(state), "error")
	if _, sendErr := d.messenger.SendMessage(ctx, t.chatID, textGenericFailure, nil); sendErr != nil {
		d.logger.Warn("failed to deliver failure message", zap.Int64("chat_id", t.chatID), zap.Error(sendErr))
	}
	d.answer(ctx, t)
}

func (d *Dispatcher) answer(ctx context.Context, t *turn) {
	if t.callback == nil {
		return
	}
	if err := d.messenger.AnswerCallbackQuery(ctx, t.callback.ID, t.notice); err != nil {
		d.logger.Debug("answer callback failed", zap.Error(err))
	}
}

// dropCallbackMessage removes the message whose button was pressed.
func (d *Dispatcher) dropCallbackMessage(ctx context.Context, t *turn) {
	id := t.callbackMessageID()
	if id == 0 {
		return
	}
	if err := d.messenger.DeleteMessage(ctx, t.chatID, id); err != nil {
		d.logger.Debug("delete message failed", zap.Int64("chat_id", t.chatID), zap.Error(err))
	}
}
