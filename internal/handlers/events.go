package handlers

import (
	"net/http"
	"time"

	"ogmp3/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	sendQueue = 64
)

// subscriber is one websocket client. Events are queued on send and written
// by the client's own goroutine, so a slow client never blocks a broadcast.
type subscriber struct {
	conn *websocket.Conn
	send chan models.ProgressEvent
}

// events streams every job progress and artifact deletion event to the client
// until it disconnects.
func (a *App) events(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan models.ProgressEvent, sendQueue)}
	a.subscribe(sub)
	go a.writeEvents(sub)

	for _, job := range a.jobs.Active() {
		a.enqueue(sub, models.ProgressEvent{ID: job.ID, URL: job.URL, Status: job.Status, Progress: job.Progress})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.unsubscribe(sub)
}

func (a *App) subscribe(sub *subscriber) {
	a.mu.Lock()
	a.subs[sub] = struct{}{}
	a.mu.Unlock()
}

// broadcast queues evt for every subscriber. Clients whose queue is full are
// disconnected.
func (a *App) broadcast(evt models.ProgressEvent) {
	var slow []*subscriber
	a.mu.RLock()
	for sub := range a.subs {
		select {
		case sub.send <- evt:
		default:
			slow = append(slow, sub)
		}
	}
	a.mu.RUnlock()

	for _, sub := range slow {
		a.logger.Warn("dropping slow event subscriber", "remote", sub.conn.RemoteAddr().String())
		a.unsubscribe(sub)
	}
}

func (a *App) enqueue(sub *subscriber, evt models.ProgressEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.subs[sub]; !ok {
		return
	}
	select {
	case sub.send <- evt:
	default:
	}
}

func (a *App) writeEvents(sub *subscriber) {
	for evt := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(evt); err != nil {
			a.unsubscribe(sub)
			return
		}
	}
}

// unsubscribe is safe to call more than once.
func (a *App) unsubscribe(sub *subscriber) {
	a.mu.Lock()
	_, ok := a.subs[sub]
	if ok {
		delete(a.subs, sub)
		close(sub.send)
	}
	a.mu.Unlock()
	if ok {
		_ = sub.conn.Close()
	}
}

func (a *App) closeSubscribers() {
	a.mu.RLock()
	subs := make([]*subscriber, 0, len(a.subs))
	for sub := range a.subs {
		subs = append(subs, sub)
	}
	a.mu.RUnlock()

	for _, sub := range subs {
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
			time.Now().Add(time.Second))
		a.unsubscribe(sub)
	}
}

// subscribers reports the number of connected event clients.
func (a *App) subscribers() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.subs)
}
