// Package session owns the conversation store for one signed-in user. A single
// goroutine applies every event, so handlers and UI calls never race on state.
package session

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
	"messenger-client/internal/push"
	"messenger-client/internal/receipts"
	"messenger-client/internal/router"
	"messenger-client/internal/store"
)

var (
	ErrClosed         = errors.New("session closed")
	ErrSessionPending = errors.New("session user is still being fetched")
	ErrNoSession      = errors.New("no session user")
)

const (
	defaultQueueSize     = 64
	defaultEffectTimeout = 10 * time.Second
)

// API is the REST side of the backend.
type API interface {
	SaveMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error)
	MarkConversationRead(ctx context.Context, conversationID int) error
	FetchConversations(ctx context.Context) ([]models.Conversation, error)
	Logout(ctx context.Context, userID int) error
}

// SnapshotCache keeps the last loaded conversation list per user.
type SnapshotCache interface {
	Save(ctx context.Context, userID int, convs []models.Conversation) error
	Load(ctx context.Context, userID int) ([]models.Conversation, error)
}

// Auditor records failures for later inspection.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

// Deps wires a Session. Cache and Audit are optional.
type Deps struct {
	User          models.SessionUser
	API           API
	Push          push.Channel
	Cache         SnapshotCache
	Audit         Auditor
	Logger        *zap.Logger
	QueueSize     int
	EffectTimeout time.Duration
}

type command struct {
	ev        store.Event
	requestID string
	traceID   string
	reply     chan outcome
}

type outcome struct {
	state store.State
	flush receipts.Flush
}

type journalEntry struct {
	name    string
	payload observability.EventEnvelope
	headers map[string]string
}

type Session struct {
	user          models.SessionUser
	api           API
	push          push.Channel
	cache         SnapshotCache
	audit         Auditor
	log           *zap.Logger
	router        *router.Router
	effectTimeout time.Duration

	state   atomic.Pointer[store.State]
	cmds    chan command
	journal chan journalEntry
	done    chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	effects   sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan store.State
	nextSub int
}

// New builds a session. Nothing is subscribed until Run starts.
func New(deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	queue := deps.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	timeout := deps.EffectTimeout
	if timeout <= 0 {
		timeout = defaultEffectTimeout
	}

	s := &Session{
		user:          deps.User,
		api:           deps.API,
		push:          deps.Push,
		cache:         deps.Cache,
		audit:         deps.Audit,
		log:           log.With(zap.Int("user_id", deps.User.ID)),
		effectTimeout: timeout,
		cmds:          make(chan command, queue),
		journal:       make(chan journalEntry, queue),
		done:          make(chan struct{}),
		subs:          make(map[int]chan store.State),
	}
	initial := store.New(deps.User.ID)
	s.state.Store(&initial)
	s.router = router.New(deps.Push, s, s.log)
	return s
}

// Run mounts the push router and applies events until ctx is cancelled or the
// session is closed. It closes the session on return.
func (s *Session) Run(ctx context.Context) error {
	s.router.Mount()
	defer s.Close()

	go s.drainJournal()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case cmd := <-s.cmds:
			s.handle(cmd)
		}
	}
}

// Close stops the loop, unsubscribes from the push channel and saves the
// last state to the snapshot cache. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		s.mu.Unlock()

		s.router.Unmount()
		s.effects.Wait()

		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.effectTimeout)
		defer cancel()
		err = s.saveCache(ctx, s.current().Conversations)
		s.log.Info("session closed")
	})
	return err
}

// Deliver queues an event decoded from the push channel. It blocks until the
// event is queued so arrival order is kept.
func (s *Session) Deliver(ev store.Event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.cmds <- command{ev: ev}:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() store.State {
	return s.current().Clone()
}

// Conversations returns a copy of the conversation list.
func (s *Session) Conversations() []models.Conversation {
	return s.Snapshot().Conversations
}

// ActiveConversation returns the selected conversation, if any.
func (s *Session) ActiveConversation() (models.Conversation, bool) {
	st := s.current()
	if st.Active == "" {
		return models.Conversation{}, false
	}
	c, ok := st.FindByUsername(st.Active)
	if !ok {
		return models.Conversation{}, false
	}
	return c.Clone(), true
}

// Subscribe returns a channel that receives the state after every applied
// event. Slow readers only see the latest state. The channel is closed by
// cancel or when the session closes.
func (s *Session) Subscribe() (<-chan store.State, func()) {
	ch := make(chan store.State, 1)

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.isClosed() {
		close(ch)
		return ch, func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	ch <- s.current().Clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
}

func (s *Session) current() store.State {
	return *s.state.Load()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) ready() error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.user.IsFetching {
		return ErrSessionPending
	}
	if s.user.ID == 0 {
		return ErrNoSession
	}
	return nil
}

// dispatch queues ev and waits until the loop has applied it.
func (s *Session) dispatch(ctx context.Context, ev store.Event) (outcome, error) {
	cmd := command{
		ev:        ev,
		requestID: observability.RequestIDFromContext(ctx),
		traceID:   observability.TraceIDFromContext(ctx),
		reply:     make(chan outcome, 1),
	}
	select {
	case <-s.done:
		return outcome{}, ErrClosed
	default:
	}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return outcome{}, ErrClosed
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
	select {
	case out := <-cmd.reply:
		return out, nil
	case <-s.done:
		return outcome{}, ErrClosed
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// sync waits until every command queued before it has been applied.
func (s *Session) sync(ctx context.Context) error {
	_, err := s.dispatch(ctx, nil)
	return err
}

func (s *Session) handle(cmd command) {
	if cmd.ev == nil {
		if cmd.reply != nil {
			cmd.reply <- outcome{state: s.current()}
		}
		return
	}

	before := s.current()
	ev := cmd.ev
	var out outcome
	var seen *store.MessageReceived

	switch e := ev.(type) {
	case store.MessageReceived:
		d := receipts.Inbound(before, e.Message, e.Sender)
		e.Seen = d.Seen
		ev = e
		if d.Notify {
			seen = &e
		}
	case store.ConversationActivated:
		out.flush = receipts.Activation(before, e.Username)
	}

	after := store.Reduce(before, ev)
	s.state.Store(&after)
	out.state = after

	observability.IncDispatched(ev.Name())
	observability.SetUnread(unreadTotal(after))
	s.broadcast(after)
	s.record(ev, cmd.requestID, cmd.traceID)

	if seen != nil {
		s.notifySeen(*seen)
	}
	if cmd.reply != nil {
		cmd.reply <- out
	}
}

func (s *Session) broadcast(st store.State) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st.Clone()
	}
}

func (s *Session) record(ev store.Event, requestID, traceID string) {
	entry := journalEntry{
		name: ev.Name(),
		payload: observability.EventEnvelope{
			EventType: "client_event",
			EventName: ev.Name(),
			Payload:   ev,
		},
		headers: observability.BuildHeaders(requestID, traceID),
	}
	select {
	case s.journal <- entry:
	default:
		s.log.Warn("event journal full, dropping entry", zap.String("event", entry.name))
	}
}

func (s *Session) drainJournal() {
	for {
		select {
		case <-s.done:
			return
		case entry := <-s.journal:
			ctx, cancel := context.WithTimeout(context.Background(), s.effectTimeout)
			if err := observability.PublishEvent(ctx, observability.JournalKey(entry.name), entry.payload, entry.headers); err != nil {
				s.log.Warn("journal publish failed", zap.String("event", entry.name), zap.Error(err))
			}
			cancel()
		}
	}
}

// spawn runs an effect off the loop. Effects started after Close are dropped.
func (s *Session) spawn(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.effects.Add(1)
	go func() {
		defer s.effects.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.effectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.fail(ctx, name, err)
		}
	}()
}

func (s *Session) notifySeen(ev store.MessageReceived) {
	receipt := ev.Receipt
	receipt.HasBeenRead = true
	conversationID := ev.Message.ConversationID

	s.spawn("mark_read", func(ctx context.Context) error {
		s.emit(ctx, models.EventReadMessage, models.ReadMessageEvent{
			MessageRead:    &receipt,
			ConversationID: conversationID,
		})
		return s.api.MarkConversationRead(ctx, conversationID)
	})
}

// emit sends a push event. Failures are logged only; the REST call is what
// persists state.
func (s *Session) emit(ctx context.Context, event string, payload any) {
	if s.isClosed() {
		return
	}
	if err := s.push.Emit(ctx, event, payload); err != nil {
		s.log.Warn("push emit failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *Session) fail(ctx context.Context, op string, err error) {
	s.log.Error("backend call failed", zap.String("op", op), zap.Error(err))
	if s.audit == nil {
		return
	}
	uid := strconv.Itoa(s.user.ID)
	s.audit.Emit(ctx, "ERROR", op+": "+err.Error(), observability.RequestIDFromContext(ctx), &uid)
}

func (s *Session) saveCache(ctx context.Context, convs []models.Conversation) error {
	if s.cache == nil || s.user.ID == 0 {
		return nil
	}
	if err := s.cache.Save(ctx, s.user.ID, convs); err != nil {
		s.log.Warn("snapshot save failed", zap.Error(err))
		return errors.Wrap(err, "save snapshot")
	}
	return nil
}

func unreadTotal(st store.State) int {
	n := 0
	for _, c := range st.Conversations {
		n += c.NumUnread
	}
	return n
}
