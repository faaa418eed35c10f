// Package controller ties the cursor, the role set and the sync channel
// together for one peer.
//
// All state is owned by the goroutine running Run. Actions from the view
// arrive through Submit, socket events through the transport's event
// channel, and timer expiries through an internal channel; they are handled
// one at a time so no locking is needed.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/config"
	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/navigation"
	"github.com/nrdvana/slidelink/internal/roles"
	"github.com/nrdvana/slidelink/internal/syncchan"
)

var (
	// ErrUnknownAction is returned by Dispatch for an action it does not handle
	ErrUnknownAction = errors.New("unknown action")
	// ErrActionPanicked wraps a panic recovered at the dispatch boundary
	ErrActionPanicked = errors.New("action panicked")
	// ErrStopped is returned by Submit once Run has exited
	ErrStopped = errors.New("controller stopped")
)

const (
	actionBuffer       = 16
	timerBuffer        = 8
	connectedNoticeTTL = 1500 * time.Millisecond
)

// Transport is the part of syncchan.Channel the controller uses
type Transport interface {
	Connect(ctx context.Context) (uint64, error)
	Send(msg syncchan.Outbound) error
	Events() <-chan syncchan.Event
	State() syncchan.State
	Gen() uint64
	URL() string
}

// Options configures a Controller
type Options struct {
	// Mode is config.ModePresenter or config.ModeObserver
	Mode string
	// Reconnect enables automatic reconnects when MaxAttempts > 0
	Reconnect syncchan.BackoffConfig
	Rand      *rand.Rand
}

// Subscriber receives a snapshot after every state change. It runs on the
// controller goroutine and must not block.
type Subscriber func(Snapshot)

type notice struct {
	id   uint64
	text string
}

type noticeExpired struct{ id uint64 }

type reconnectDue struct{ gen uint64 }

// Controller is the state machine of one presentation peer
type Controller struct {
	pres      *models.Presentation
	cursor    *navigation.Cursor
	roles     roles.Set
	shared    models.SharedState
	transport Transport
	mode      string
	backoff   *syncchan.Backoff
	log       zerolog.Logger

	ctx         context.Context
	notice      notice
	noticeSeq   uint64
	subscribers []Subscriber

	actions chan Action
	timers  chan any
	done    chan struct{}
	once    sync.Once

	// after schedules fn once d has elapsed
	after func(d time.Duration, fn func())
}

// New creates a controller for pres that syncs through t
func New(pres *models.Presentation, t Transport, opts Options, logger zerolog.Logger) (*Controller, error) {
	cursor, err := navigation.NewCursor(pres)
	if err != nil {
		return nil, fmt.Errorf("failed to create cursor: %w", err)
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeObserver
	}
	c := &Controller{
		pres:      pres,
		cursor:    cursor,
		transport: t,
		mode:      opts.Mode,
		log:       logger.With().Str("component", "controller").Str("mode", opts.Mode).Logger(),
		ctx:       context.Background(),
		actions:   make(chan Action, actionBuffer),
		timers:    make(chan any, timerBuffer),
		done:      make(chan struct{}),
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
	if opts.Reconnect.MaxAttempts > 0 {
		c.backoff = syncchan.NewBackoff(opts.Reconnect, opts.Rand)
	}
	return c, nil
}

// Subscribe registers a view. Call it before Run.
func (c *Controller) Subscribe(fn Subscriber) {
	c.subscribers = append(c.subscribers, fn)
}

// Start shows the first step of the first slide and opens the connection
func (c *Controller) Start(ctx context.Context) error {
	c.ctx = ctx
	c.cursor.GoToSlide(1, Step(1))
	err := c.connect()
	c.publish()
	return err
}

// Run starts the controller and handles actions and events until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stop()
	if err := c.Start(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-c.actions:
			_ = c.Dispatch(a)
		case ev := <-c.transport.Events():
			c.HandleEvent(ev)
		case m := <-c.timers:
			c.handleTimer(m)
		}
	}
}

func (c *Controller) stop() {
	c.once.Do(func() { close(c.done) })
}

// Submit queues an action for the Run loop. It is safe to call from any
// goroutine.
func (c *Controller) Submit(a Action) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.actions <- a:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

func (c *Controller) post(m any) {
	select {
	case c.timers <- m:
	case <-c.done:
	}
}

// Dispatch applies one action. A failing or panicking action is logged and
// the cursor and roles are put back the way they were.
func (c *Controller) Dispatch(a Action) error {
	err := c.guarded(func() error { return c.apply(a) })
	if err != nil {
		c.log.Error().Err(err).Stringer("action", a).Msg("action failed")
	}
	return err
}

// HandleEvent reacts to one channel event. Events from a replaced socket
// are dropped.
func (c *Controller) HandleEvent(ev syncchan.Event) {
	if ev.Gen != c.transport.Gen() {
		c.log.Debug().Uint64("gen", ev.Gen).Stringer("kind", ev.Kind).Msg("dropping stale event")
		return
	}
	err := c.guarded(func() error {
		c.handleEvent(ev)
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Stringer("kind", ev.Kind).Msg("event handler failed")
	}
}

func (c *Controller) guarded(fn func() error) (err error) {
	pres, cursor := c.pres, c.cursor
	saved := cursor.Snapshot()
	set := c.roles.Clone()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanicked, r)
		}
		if err != nil {
			c.pres, c.cursor = pres, cursor
			cursor.Restore(saved)
			c.roles = set
		}
		c.publish()
	}()
	return fn()
}

func (c *Controller) apply(a Action) error {
	switch a := a.(type) {
	case NavNext:
		c.roles.EnableFollow(false)
		c.moved(c.cursor.Next())
	case NavPrev:
		c.roles.EnableFollow(false)
		c.moved(c.cursor.Prev())
	case NavStep:
		c.roles.EnableFollow(false)
		c.moved(c.cursor.Step(1))
	case StepBy:
		c.moved(c.cursor.Step(a.Offset))
	case GoTo:
		c.moved(c.cursor.GoToSlide(a.Slide, a.Step))
	case SetLead:
		return c.roles.EnableLead(a.Enable)
	case SetFollow:
		c.roles.EnableFollow(a.Enable)
		if a.Enable {
			c.catchUp()
		}
	case SetNavigate:
		c.roles.EnableNavigate(a.Enable)
	case SetNotes:
		c.roles.EnableNotes(a.Enable)
	case LoadDeck:
		return c.loadDeck(a.Presentation)
	case Reconnect:
		if c.backoff != nil {
			c.backoff.Reset()
		}
		return c.connect()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	return nil
}

func (c *Controller) handleEvent(ev syncchan.Event) {
	switch ev.Kind {
	case syncchan.EventOpen:
		if c.backoff != nil {
			c.backoff.Reset()
		}
		c.notify("Connected", connectedNoticeTTL)
		if c.mode == config.ModeObserver {
			c.roles.EnableFollow(true)
			c.catchUp()
		}
	case syncchan.EventMessage:
		if st := ev.Message.State; st != nil {
			c.shared = *st
			if c.roles.Follow {
				c.catchUp()
			}
		}
		if ev.Message.Roles != nil {
			c.roles.ReplaceGrants(roles.NewGrants(ev.Message.Roles))
			c.log.Info().Strs("roles", c.roles.Grants().Names()).Msg("roles granted")
		}
	case syncchan.EventClose:
		c.notify("Lost connection", 0)
		c.scheduleReconnect()
	}
}

// moved broadcasts a cursor change while leading
func (c *Controller) moved(pos models.Position, changed bool) {
	if !changed {
		return
	}
	c.log.Debug().Stringer("pos", pos).Msg("cursor moved")
	if !c.roles.Lead {
		return
	}
	msg := syncchan.Outbound{SlideNum: pos.SlideNum, StepNum: pos.StepNum}
	if err := c.transport.Send(msg); err != nil {
		c.log.Warn().Err(err).Stringer("pos", pos).Msg("can't send update")
	}
}

// loadDeck swaps in a new presentation and stays as close to the current
// position, and to every slide's last-visited step, as the new deck allows
func (c *Controller) loadDeck(pres *models.Presentation) error {
	cursor, err := navigation.NewCursor(pres)
	if err != nil {
		return fmt.Errorf("failed to load deck: %w", err)
	}
	cursor.CarryOver(c.cursor)
	old := c.cursor.Position()
	step := old.StepNum
	pos, _ := cursor.GoToSlide(old.SlideNum, &step)
	c.pres, c.cursor = pres, cursor
	c.log.Info().Int("slides", pres.Len()).Stringer("pos", pos).Msg("deck reloaded")
	c.moved(pos, pos != old)
	return nil
}

// catchUp moves to the leader's last known position, if there is one
func (c *Controller) catchUp() {
	if !c.shared.Known() {
		return
	}
	step := c.shared.StepNum
	c.moved(c.cursor.GoToSlide(c.shared.SlideNum, &step))
}

func (c *Controller) connect() error {
	c.notify("Connecting...", 0)
	gen, err := c.transport.Connect(c.ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.log.Debug().Uint64("gen", gen).Msg("connect requested")
	return nil
}

func (c *Controller) scheduleReconnect() {
	if c.backoff == nil {
		return
	}
	delay, ok := c.backoff.Next()
	if !ok {
		c.log.Warn().Int("attempts", c.backoff.Attempts()).Msg("giving up on reconnect")
		return
	}
	gen := c.transport.Gen()
	c.log.Info().Dur("delay", delay).Int("attempt", c.backoff.Attempts()).Msg("reconnect scheduled")
	c.after(delay, func() { c.post(reconnectDue{gen: gen}) })
}

// notify replaces the current notice. A ttl of zero keeps it until the
// next one.
func (c *Controller) notify(text string, ttl time.Duration) {
	c.noticeSeq++
	id := c.noticeSeq
	c.notice = notice{id: id, text: text}
	if ttl > 0 {
		c.after(ttl, func() { c.post(noticeExpired{id: id}) })
	}
}

func (c *Controller) handleTimer(m any) {
	switch m := m.(type) {
	case noticeExpired:
		if c.notice.id != m.id {
			return
		}
		c.notice = notice{}
		c.publish()
	case reconnectDue:
		// a manual reconnect got there first
		if m.gen != c.transport.Gen() || c.transport.State() != syncchan.Disconnected {
			return
		}
		if err := c.connect(); err != nil {
			c.log.Error().Err(err).Msg("reconnect failed")
		}
		c.publish()
	}
}

func (c *Controller) publish() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range c.subscribers {
		fn(snap)
	}
}
