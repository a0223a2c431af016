package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"storefront/storebot/internal/repository"
)

// State is a conversation step persisted per chat.
type State string

const (
	StateStart             State = "START"
	StateHandleMenu        State = "HANDLE_MENU"
	StateHandleDescription State = "HANDLE_DESCRIPTION"
	StateHandleCart        State = "HANDLE_CART"
	StateWaitingEmail      State = "WAITING_EMAIL"
)

const stateTTL = 30 * 24 * time.Hour

func stateKey(chatID int64) string {
	return "bot:state:" + strconv.FormatInt(chatID, 10)
}

type stateRepo struct {
	store repository.StateStore
}

// load returns StateStart for chats without a stored state.
func (r stateRepo) load(ctx context.Context, chatID int64) (State, error) {
	raw, err := r.store.Get(ctx, stateKey(chatID))
	if err != nil {
		return "", fmt.Errorf("load chat state: %w", err)
	}
	if len(raw) == 0 {
		return StateStart, nil
	}
	return State(raw), nil
}

func (r stateRepo) save(ctx context.Context, chatID int64, state State) error {
	if err := r.store.Set(ctx, stateKey(chatID), []byte(state), stateTTL); err != nil {
		return fmt.Errorf("save chat state: %w", err)
	}
	return nil
}
