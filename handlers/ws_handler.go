package handlers

import (
	"context"
	"log"
	"sync"

	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type wsAuth struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsCommand struct {
	Type          string `json:"type"`
	CounterpartID string `json:"counterpart_id"`
	MessageID     string `json:"message_id"`
	Text          string `json:"text"`
}

// wsSession owns every subscription opened for one socket and releases all
// of them when the socket goes away.
type wsSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	userID uuid.UUID
	conn   *websocket.Conn
	out    chan fiber.Map
	wg     sync.WaitGroup

	mu          sync.Mutex
	thread      *services.ThreadSubscription
	counterpart uuid.UUID
	unread      *services.UnreadSubscription
	subs        []*realtime.Subscription
}

// ServeWs streams unread counts, appointment changes, toasts and the open
// thread to the client. The first frame must be {"type":"auth","token":…}.
func ServeWs(c *websocket.Conn) {
	var auth wsAuth
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}
	userID, _, err := services.VerifyToken(auth.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSession{ctx: ctx, cancel: cancel, userID: userID, conn: c, out: make(chan fiber.Map, 32)}
	defer s.close()

	if _, err := services.Resolve(ctx, userID); err != nil {
		_ = c.WriteJSON(fiber.Map{"type": "signed_out", "error": services.HumanizeAuthError(err)})
		return
	}

	s.wg.Add(1)
	go s.writer()
	if err := s.start(); err != nil {
		s.send(fiber.Map{"type": "error", "error": err.Error()})
		return
	}
	s.send(fiber.Map{"type": "ready"})

	for {
		var cmd wsCommand
		if err := c.ReadJSON(&cmd); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s", userID)
			} else if s.ctx.Err() == nil {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			return
		}
		s.handle(cmd)
	}
}

func (s *wsSession) start() error {
	unread, err := services.SubscribeUnreadCount(s.ctx, s.userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.unread = unread
	s.subs = append(s.subs,
		realtime.Default.Subscribe(s.userID, realtime.AppointmentsTopic(s.userID)),
		realtime.Default.Subscribe(s.userID, realtime.ToastTopic(s.userID)),
	)
	subs := append([]*realtime.Subscription(nil), s.subs...)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for n := range unread.Counts() {
			s.send(fiber.Map{"type": "unread", "count": n})
		}
		// Released from outside, e.g. by sign-out on another request.
		if s.ctx.Err() == nil {
			s.send(fiber.Map{"type": "signed_out"})
			s.cancel()
		}
	}()
	for _, sub := range subs {
		s.wg.Add(1)
		go s.forward(sub)
	}
	return nil
}

func (s *wsSession) forward(sub *realtime.Subscription) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.Events():
			s.send(fiber.Map{"type": ev.Type, "topic": ev.Topic, "payload": ev.Payload})
		}
	}
}

func (s *wsSession) send(msg fiber.Map) {
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

func (s *wsSession) writer() {
	defer s.wg.Done()
	write := func(msg fiber.Map) bool {
		if err := s.conn.WriteJSON(msg); err != nil {
			log.Printf("WebSocket write failed for client %s: %v", s.userID, err)
			return false
		}
		return true
	}
	for {
		select {
		case msg := <-s.out:
			if !write(msg) {
				s.cancel()
				s.conn.Close()
				return
			}
		case <-s.ctx.Done():
			for {
				select {
				case msg := <-s.out:
					if !write(msg) {
						s.conn.Close()
						return
					}
				default:
					// Unblocks the read loop when the session ends first.
					s.conn.Close()
					return
				}
			}
		}
	}
}

func (s *wsSession) handle(cmd wsCommand) {
	switch cmd.Type {
	case "ping":
		s.send(fiber.Map{"type": "pong"})
		return
	case "close_thread":
		s.closeThread()
		return
	}

	counterpart, err := uuid.Parse(cmd.CounterpartID)
	if err != nil && cmd.Type != "edit" && cmd.Type != "delete" {
		s.send(fiber.Map{"type": "error", "error": "Invalid counterpart ID"})
		return
	}
	key := services.PairKey(s.userID, counterpart)

	switch cmd.Type {
	case "open_thread":
		err = s.openThread(counterpart, key)
	case "send":
		_, err = services.SendMessage(s.ctx, key, s.userID, counterpart, cmd.Text)
	case "read":
		_, err = services.MarkThreadRead(s.ctx, key, s.userID)
	case "edit", "delete":
		messageID, perr := uuid.Parse(cmd.MessageID)
		if perr != nil {
			s.send(fiber.Map{"type": "error", "error": "Invalid message ID"})
			return
		}
		if cmd.Type == "edit" {
			_, err = services.EditMessage(s.ctx, s.userID, messageID, cmd.Text)
		} else {
			err = services.DeleteMessage(s.ctx, s.userID, messageID)
		}
	default:
		s.send(fiber.Map{"type": "error", "error": "Unknown command " + cmd.Type})
		return
	}
	if err != nil {
		s.send(fiber.Map{"type": "error", "command": cmd.Type, "error": err.Error(), "status": statusFor(err)})
	}
}

// openThread detaches the previous thread before subscribing to the new one.
func (s *wsSession) openThread(counterpart uuid.UUID, key string) error {
	s.closeThread()

	thread, err := services.SubscribeToThread(s.ctx, s.userID, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.thread = thread
	s.counterpart = counterpart
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for update := range thread.Updates() {
			s.send(fiber.Map{"type": "thread", "counterpart_id": counterpart, "pair_key": key, "update": update})
		}
	}()

	_, err = services.MarkThreadRead(s.ctx, key, s.userID)
	return err
}

func (s *wsSession) closeThread() {
	s.mu.Lock()
	thread := s.thread
	s.thread = nil
	s.counterpart = uuid.Nil
	s.mu.Unlock()
	if thread != nil {
		thread.Release()
	}
}

func (s *wsSession) close() {
	s.cancel()
	s.closeThread()
	s.mu.Lock()
	if s.unread != nil {
		s.unread.Release()
	}
	for _, sub := range s.subs {
		sub.Release()
	}
	s.subs = nil
	s.mu.Unlock()
	s.wg.Wait()
	s.conn.Close()
}
