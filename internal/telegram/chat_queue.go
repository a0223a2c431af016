package telegram

import (
	"context"
	"sync"
)

type queuedUpdate struct {
	ctx    context.Context
	update Update
}

// ChatQueue runs updates of one chat strictly in submission order, one at a
// time. Different chats proceed in parallel. A chat's worker goroutine exits
// once its backlog is empty.
type ChatQueue struct {
	handler UpdateHandler

	mu      sync.Mutex
	pending map[int64][]queuedUpdate
	wg      sync.WaitGroup
}

func NewChatQueue(handler UpdateHandler) *ChatQueue {
	return &ChatQueue{
		handler: handler,
		pending: make(map[int64][]queuedUpdate),
	}
}

// Submit enqueues the update and returns without waiting for it.
func (q *ChatQueue) Submit(ctx context.Context, update Update) {
	chat := update.ChatID()

	q.mu.Lock()
	defer q.mu.Unlock()

	backlog, running := q.pending[chat]
	q.pending[chat] = append(backlog, queuedUpdate{ctx: ctx, update: update})
	if !running {
		q.wg.Add(1)
		go q.drain(chat)
	}
}

func (q *ChatQueue) drain(chat int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		backlog := q.pending[chat]
		if len(backlog) == 0 {
			delete(q.pending, chat)
			q.mu.Unlock()
			return
		}
		next := backlog[0]
		backlog[0] = queuedUpdate{}
		q.pending[chat] = backlog[1:]
		q.mu.Unlock()

		q.handler.Handle(next.ctx, next.update)
	}
}

// Wait blocks until every submitted update has been handled.
func (q *ChatQueue) Wait() {
	q.wg.Wait()
}
