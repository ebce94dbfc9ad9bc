package services

import (
	"context"
	"encoding/json"
	"sort"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/metrics"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/google/uuid"
)

const pairSeparator = "_"

// threadLocks serializes writers of one thread so that stamping, storing and
// publishing a message happen in the same order for everyone.
var threadLocks sync.Map

func lockThread(pairKey string) func() {
	v, _ := threadLocks.LoadOrStore(pairKey, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// PairKey names the thread between two users. Both sides derive the same key.
func PairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, pairSeparator)
}

func pairMembers(pairKey string) (uuid.UUID, uuid.UUID, error) {
	parts := strings.Split(pairKey, pairSeparator)
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, invalid("pair_key", "malformed conversation key")
	}
	a, errA := uuid.Parse(parts[0])
	b, errB := uuid.Parse(parts[1])
	if errA != nil || errB != nil {
		return uuid.Nil, uuid.Nil, invalid("pair_key", "malformed conversation key")
	}
	return a, b, nil
}

func requireMember(pairKey string, userID uuid.UUID) error {
	a, b, err := pairMembers(pairKey)
	if err != nil {
		return err
	}
	if userID != a && userID != b {
		return &PermissionError{Message: "not a participant of this conversation"}
	}
	return nil
}

// contactIDs returns the distinct counterparts of userID across confirmed
// appointments. Pending and rejected requests do not unlock messaging.
func contactIDs(ctx context.Context, userID uuid.UUID, role models.Role) ([]uuid.UUID, error) {
	var column, counterpart string
	switch role {
	case models.RoleStudent:
		column, counterpart = "student_id", "teacher_id"
	case models.RoleTeacher:
		column, counterpart = "teacher_id", "student_id"
	default:
		return []uuid.UUID{}, nil
	}

	var ids []uuid.UUID
	err := database.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where(column+" = ? AND status = ?", userID, models.StatusUpcoming).
		Distinct(counterpart).Pluck(counterpart, &ids).Error
	if err != nil {
		return nil, storeErr("load contacts", "", err)
	}
	return ids, nil
}

func DeriveContacts(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.User, error) {
	ids, err := contactIDs(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	contacts := []models.User{}
	if len(ids) == 0 {
		return contacts, nil
	}
	err = database.DB.WithContext(ctx).Where("id IN ?", ids).
		Order("full_name ASC").Order("surname ASC").Find(&contacts).Error
	if err != nil {
		return nil, storeErr("load contacts", "", err)
	}
	return contacts, nil
}

// AreContacts reports whether a and b share a confirmed appointment.
func AreContacts(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where("status = ?", models.StatusUpcoming).
		Where("(student_id = ? AND teacher_id = ?) OR (student_id = ? AND teacher_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, storeErr("check contacts", "", err)
	}
	return count > 0, nil
}

type ContactSummary struct {
	Contact       models.User `json:"contact"`
	PairKey       string      `json:"pair_key"`
	LastMessage   *string     `json:"last_message"`
	LastMessageAt *time.Time  `json:"last_message_at"`
	Unread        int64       `json:"unread"`
}

// ContactSummaries lists contacts with the latest message and the unread
// count of each thread, most recently active first.
func ContactSummaries(ctx context.Context, userID uuid.UUID, role models.Role) ([]ContactSummary, error) {
	contacts, err := DeriveContacts(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	summaries := make([]ContactSummary, 0, len(contacts))
	for _, contact := range contacts {
		key := PairKey(userID, contact.ID)
		summary := ContactSummary{Contact: contact, PairKey: key}

		var last []models.Message
		if err := database.DB.WithContext(ctx).Where("pair_key = ?", key).
			Order("created_at DESC").Limit(1).Find(&last).Error; err != nil {
			return nil, storeErr("load last message", "", err)
		}
		if len(last) == 1 {
			summary.LastMessage = &last[0].Text
			summary.LastMessageAt = &last[0].CreatedAt
		}

		if err := database.DB.WithContext(ctx).Model(&models.Message{}).
			Where("pair_key = ? AND recipient_id = ? AND read = ?", key, userID, false).
			Count(&summary.Unread).Error; err != nil {
			return nil, storeErr("count unread", "", err)
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return summaries, nil
}

// ListThread returns the messages of a thread, oldest first.
func ListThread(ctx context.Context, pairKey string) ([]models.Message, error) {
	messages := []models.Message{}
	err := database.DB.WithContext(ctx).Where("pair_key = ?", pairKey).
		Order("created_at ASC").Find(&messages).Error
	if err != nil {
		return nil, storeErr("load thread", "", err)
	}
	return messages, nil
}

// SendMessage stores a message. Blank text is ignored and yields (nil, nil).
func SendMessage(ctx context.Context, pairKey string, senderID, recipientID uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if senderID == recipientID {
		return nil, invalid("recipient", "cannot message yourself")
	}
	if pairKey != PairKey(senderID, recipientID) {
		return nil, invalid("pair_key", "conversation key does not match the participants")
	}
	ok, err := AreContacts(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &PermissionError{Message: "messaging is available once an appointment is confirmed"}
	}

	unlock := lockThread(pairKey)
	defer unlock()

	message := models.Message{
		PairKey:     pairKey,
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   database.ServerTimestamp(),
	}
	if err := database.DB.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, storeErr("send message", "", err)
	}

	metrics.MessagesSent.Inc()
	realtime.Default.Publish(realtime.ThreadTopic(pairKey), EventMessageCreated, message)
	realtime.Default.Publish(realtime.UnreadTopic(recipientID), EventUnreadChanged, nil)
	return &message, nil
}

// MarkThreadRead marks every unread message addressed to viewerID in the
// thread as read and returns how many changed.
func MarkThreadRead(ctx context.Context, pairKey string, viewerID uuid.UUID) (int64, error) {
	if err := requireMember(pairKey, viewerID); err != nil {
		return 0, err
	}
	res := database.DB.WithContext(ctx).Model(&models.Message{}).
		Where("pair_key = ? AND recipient_id = ? AND read = ?", pairKey, viewerID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, storeErr("mark thread read", "", res.Error)
	}
	if res.RowsAffected > 0 {
		realtime.Default.Publish(realtime.ThreadTopic(pairKey), EventMessagesRead, readReceipt{ReaderID: viewerID})
		realtime.Default.Publish(realtime.UnreadTopic(viewerID), EventUnreadChanged, nil)
	}
	return res.RowsAffected, nil
}

func loadOwnMessage(ctx context.Context, senderID, messageID uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := database.DB.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		return nil, storeErr("load message", "message", err)
	}
	if message.SenderID != senderID {
		return nil, &PermissionError{Message: "you can only change your own messages"}
	}
	return &message, nil
}

// EditMessage replaces the text of one of the sender's messages. The read
// flag and creation time stay as they were.
func EditMessage(ctx context.Context, senderID, messageID uuid.UUID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text", "message cannot be empty")
	}
	message, err := loadOwnMessage(ctx, senderID, messageID)
	if err != nil {
		return nil, err
	}
	unlock := lockThread(message.PairKey)
	defer unlock()

	err = database.DB.WithContext(ctx).Model(message).
		Updates(map[string]any{"text": text, "edited": true}).Error
	if err != nil {
		return nil, storeErr("edit message", "", err)
	}
	message.Text = text
	message.Edited = true

	realtime.Default.Publish(realtime.ThreadTopic(message.PairKey), EventMessageEdited, message)
	return message, nil
}

func DeleteMessage(ctx context.Context, senderID, messageID uuid.UUID) error {
	message, err := loadOwnMessage(ctx, senderID, messageID)
	if err != nil {
		return err
	}
	unlock := lockThread(message.PairKey)
	defer unlock()

	if err := database.DB.WithContext(ctx).Delete(&models.Message{}, "id = ?", message.ID).Error; err != nil {
		return storeErr("delete message", "", err)
	}

	realtime.Default.Publish(realtime.ThreadTopic(message.PairKey), EventMessageDeleted, deletion{ID: message.ID})
	if !message.Read {
		realtime.Default.Publish(realtime.UnreadTopic(message.RecipientID), EventUnreadChanged, nil)
	}
	return nil
}

func UnreadCountFor(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, storeErr("count unread", "", err)
	}
	return count, nil
}

const (
	EventMessageCreated = "message.created"
	EventMessageEdited  = "message.edited"
	EventMessageDeleted = "message.deleted"
	EventMessagesRead   = "messages.read"
	EventUnreadChanged  = "unread.changed"
)

type readReceipt struct {
	ReaderID uuid.UUID `json:"reader_id"`
}

type deletion struct {
	ID uuid.UUID `json:"id"`
}

// ThreadUpdate is one step of a thread subscription. The first update is
// always a replay carrying the whole thread.
type ThreadUpdate struct {
	Kind      string           `json:"kind"`
	Messages  []models.Message `json:"messages,omitempty"`
	Message   *models.Message  `json:"message,omitempty"`
	MessageID uuid.UUID        `json:"message_id,omitempty"`
	ReaderID  uuid.UUID        `json:"reader_id,omitempty"`
}

const UpdateReplay = "replay"

type ThreadSubscription struct {
	pairKey string
	sub     *realtime.Subscription
	updates chan ThreadUpdate
}

func (s *ThreadSubscription) Updates() <-chan ThreadUpdate { return s.updates }

// Release stops delivery. Updates is closed shortly after.
func (s *ThreadSubscription) Release() { s.sub.Release() }

// SubscribeToThread streams a thread to owner: a replay of the stored
// messages followed by every change in write order. The subscription lives
// until Release, ctx ends, or the owner's subscriptions are released.
func SubscribeToThread(ctx context.Context, owner uuid.UUID, pairKey string) (*ThreadSubscription, error) {
	if err := requireMember(pairKey, owner); err != nil {
		return nil, err
	}

	// Subscribe before the snapshot so nothing written in between is lost.
	sub := realtime.Default.Subscribe(owner, realtime.ThreadTopic(pairKey))
	snapshot, err := ListThread(ctx, pairKey)
	if err != nil {
		sub.Release()
		return nil, err
	}

	ts := &ThreadSubscription{pairKey: pairKey, sub: sub, updates: make(chan ThreadUpdate, 16)}
	go ts.run(ctx, snapshot)
	return ts, nil
}

func (s *ThreadSubscription) run(ctx context.Context, snapshot []models.Message) {
	defer close(s.updates)
	defer s.sub.Release()

	var seen map[uuid.UUID]bool
	replay := func(snapshot []models.Message) bool {
		seen = make(map[uuid.UUID]bool, len(snapshot))
		for _, m := range snapshot {
			seen[m.ID] = true
		}
		return s.emit(ctx, ThreadUpdate{Kind: UpdateReplay, Messages: snapshot})
	}
	if !replay(snapshot) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.sub.Done():
			return
		case <-s.sub.Lagged():
			// Events were dropped; start over from the store.
			snapshot, err := s.resync(ctx)
			if err != nil {
				log.Printf("🔥 Failed to resync thread %s: %v", s.pairKey, err)
				return
			}
			if !replay(snapshot) {
				return
			}
		case ev := <-s.sub.Events():
			select {
			case <-s.sub.Done():
				return
			default:
			}
			update, ok := decodeThreadEvent(ev)
			if !ok {
				continue
			}
			if update.Kind == EventMessageCreated {
				if seen[update.Message.ID] {
					continue
				}
				seen[update.Message.ID] = true
			}
			if !s.emit(ctx, update) {
				return
			}
		}
	}
}

// resync discards buffered events and reloads the thread. Anything published
// after the drain is either in the snapshot or still queued, and queued
// creations already in the snapshot are skipped as seen.
func (s *ThreadSubscription) resync(ctx context.Context) ([]models.Message, error) {
drain:
	for {
		select {
		case <-s.sub.Events():
		default:
			break drain
		}
	}
	return ListThread(ctx, s.pairKey)
}

func (s *ThreadSubscription) emit(ctx context.Context, update ThreadUpdate) bool {
	select {
	case s.updates <- update:
		return true
	case <-ctx.Done():
		return false
	case <-s.sub.Done():
		return false
	}
}

func decodeThreadEvent(ev realtime.Event) (ThreadUpdate, bool) {
	update := ThreadUpdate{Kind: ev.Type}
	switch ev.Type {
	case EventMessageCreated, EventMessageEdited:
		var m models.Message
		if err := json.Unmarshal(ev.Payload, &m); err != nil {
			return update, false
		}
		update.Message = &m
	case EventMessageDeleted:
		var d deletion
		if err := json.Unmarshal(ev.Payload, &d); err != nil {
			return update, false
		}
		update.MessageID = d.ID
	case EventMessagesRead:
		var r readReceipt
		if err := json.Unmarshal(ev.Payload, &r); err != nil {
			return update, false
		}
		update.ReaderID = r.ReaderID
	default:
		return update, false
	}
	return update, true
}

// UnreadSubscription pushes the unread total of one user whenever it may
// have changed.
type UnreadSubscription struct {
	sub    *realtime.Subscription
	counts chan int64
}

func (s *UnreadSubscription) Counts() <-chan int64 { return s.counts }
func (s *UnreadSubscription) Release() { s.sub.Release() }

func SubscribeUnreadCount(ctx context.Context, userID uuid.UUID) (*UnreadSubscription, error) {
	sub := realtime.Default.Subscribe(userID, realtime.UnreadTopic(userID))
	initial, err := UnreadCountFor(ctx, userID)
	if err != nil {
		sub.Release()
		return nil, err
	}

	us := &UnreadSubscription{sub: sub, counts: make(chan int64, 1)}
	go func() {
		defer close(us.counts)
		defer sub.Release()

		send := func(n int64) bool {
			select {
			case us.counts <- n:
				return true
			case <-ctx.Done():
			case <-sub.Done():
			}
			return false
		}
		if !send(initial) {
			return
		}
		last := initial
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case <-sub.Events():
				n, err := UnreadCountFor(ctx, userID)
				if err != nil || n == last {
					continue
				}
				last = n
				if !send(n) {
					return
				}
			}
		}
	}()
	return us, nil
}
