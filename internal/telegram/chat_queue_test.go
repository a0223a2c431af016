package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatUpdate(id, chat int64) Update {
	return Update{UpdateID: id, Message: &Message{MessageID: int(id), Chat: Chat{ID: chat}}}
}

type perChatRecorder struct {
	mu      sync.Mutex
	byChat  map[int64][]int64
	active  map[int64]int
	overlap bool
}

func newPerChatRecorder() *perChatRecorder {
	return &perChatRecorder{byChat: map[int64][]int64{}, active: map[int64]int{}}
}

func (r *perChatRecorder) Handle(_ context.Context, u Update) {
	chat := u.ChatID()
	r.mu.Lock()
	r.active[chat]++
	if r.active[chat] > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(time.Duration(u.UpdateID%3) * 100 * time.Microsecond)

	r.mu.Lock()
	r.active[chat]--
	r.byChat[chat] = append(r.byChat[chat], u.UpdateID)
	r.mu.Unlock()
}

func TestChatQueueKeepsOrderPerChat(t *testing.T) {
	rec := newPerChatRecorder()
	q := NewChatQueue(rec)

	var want1, want2 []int64
	for i := int64(1); i <= 100; i++ {
		chat := int64(1 + i%2)
		q.Submit(context.Background(), chatUpdate(i, chat))
		if chat == 1 {
			want1 = append(want1, i)
		} else {
			want2 = append(want2, i)
		}
	}
	q.Wait()

	assert.False(t, rec.overlap)
	assert.Equal(t, want1, rec.byChat[1])
	assert.Equal(t, want2, rec.byChat[2])
	assert.Empty(t, q.pending)
}

type blockingHandler struct {
	release chan struct{}
	done    chan int64
}

func (h *blockingHandler) Handle(_ context.Context, u Update) {
	if u.ChatID() == 1 {
		<-h.release
	}
	h.done <- u.ChatID()
}

func TestChatQueueChatsRunIndependently(t *testing.T) {
	h := &blockingHandler{release: make(chan struct{}), done: make(chan int64, 2)}
	q := NewChatQueue(h)

	q.Submit(context.Background(), chatUpdate(1, 1))
	q.Submit(context.Background(), chatUpdate(2, 2))

	select {
	case chat := <-h.done:
		assert.Equal(t, int64(2), chat)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "chat 2 was blocked by chat 1")
	}

	close(h.release)
	q.Wait()
	assert.Equal(t, int64(1), <-h.done)
}
