// Package engine runs the builder simulation on a single goroutine. It owns
// every session, the batch executor and the zone list; transports talk to it
// through channels only.
package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"onistone.build/internal/config"
	"onistone.build/internal/persistence/blueprint"
	"onistone.build/internal/protocol"
	"onistone.build/internal/sim/batch"
	"onistone.build/internal/sim/session"
	"onistone.build/internal/sim/voxel"
	"onistone.build/internal/sim/zones"
)

type Options struct {
	Config     config.Config
	Worlds     voxel.Dimensions
	Zones      *zones.Manager
	Blueprints *blueprint.Store
	Notifier   batch.Notifier
	Journal    Journal
	Log        logrus.FieldLogger
	Now        func() time.Time
}

// Envelope is one command from a connected actor. Resp receives exactly one
// result and should be buffered.
type Envelope struct {
	ActorID string
	Cmd     protocol.CommandMsg
	Resp    chan<- protocol.ResultMsg
}

type JoinRequest struct {
	ActorID   string
	Name      string
	Dimension string
	Resp      chan protocol.WelcomeMsg
}

// LeaveRequest ends one connection. A leave whose SessionID no longer matches
// the actor's session belongs to a replaced connection and is ignored.
type LeaveRequest struct {
	ActorID   string
	SessionID string
}

type call struct {
	fn   func()
	done chan struct{}
}

type Engine struct {
	cfg config.Config
	log logrus.FieldLogger
	now func() time.Time

	worlds     voxel.Dimensions
	sessions   *session.Registry
	exec       *batch.Executor
	zones      *zones.Manager
	blueprints *blueprint.Store
	notify     batch.Notifier
	journal    Journal

	inbox chan Envelope
	join  chan JoinRequest
	leave chan LeaveRequest
	calls chan call
	stop  chan struct{}

	stopOnce sync.Once
	tick     atomic.Uint64
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	n := opts.Notifier
	if n == nil {
		n = batch.NopNotifier{}
	}
	j := opts.Journal
	if j == nil {
		j = nopJournal{}
	}
	zm := opts.Zones
	if zm == nil {
		zm = zones.NewManager(now)
	}
	log = log.WithField("component", "engine")
	return &Engine{
		cfg:        opts.Config,
		log:        log,
		now:        now,
		worlds:     opts.Worlds,
		sessions:   session.NewRegistry(opts.Config.Limits.ClipboardLimit, opts.Config.Limits.UndoDepth),
		exec:       batch.NewExecutor(opts.Config.Performance.BatchSize, n, log),
		zones:      zm,
		blueprints: opts.Blueprints,
		notify:     n,
		journal:    j,

		inbox: make(chan Envelope, 1024),
		join:  make(chan JoinRequest, 64),
		leave: make(chan LeaveRequest, 64),
		calls: make(chan call, 64),
		stop:  make(chan struct{}),
	}
}

func (e *Engine) Inbox() chan<- Envelope     { return e.inbox }
func (e *Engine) Join() chan<- JoinRequest   { return e.join }
func (e *Engine) Leave() chan<- LeaveRequest { return e.leave }

func (e *Engine) CurrentTick() uint64 { return e.tick.Load() }

func (e *Engine) Stop() { e.stopOnce.Do(func() { close(e.stop) }) }

// Run drives the engine until ctx is cancelled or Stop is called. Joins,
// commands and leaves are buffered and applied in that order on each tick.
func (e *Engine) Run(ctx context.Context) error {
	hz := e.cfg.Performance.TickRateHz
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingCmds []Envelope
	var pendingLeaves []LeaveRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case req := <-e.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-e.leave:
			pendingLeaves = append(pendingLeaves, req)
		case c := <-e.calls:
			c.fn()
			close(c.done)
		case env := <-e.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			e.step(pendingJoins, pendingCmds, pendingLeaves)
			pendingJoins = pendingJoins[:0]
			pendingCmds = pendingCmds[:0]
			pendingLeaves = pendingLeaves[:0]
		}
	}
}

func (e *Engine) step(joins []JoinRequest, cmds []Envelope, leaves []LeaveRequest) {
	for _, req := range joins {
		w := e.Connect(req.ActorID, req.Name, req.Dimension)
		select {
		case req.Resp <- w:
		default:
		}
	}
	for _, env := range cmds {
		res := e.Handle(env.ActorID, env.Cmd)
		if env.Resp == nil {
			continue
		}
		select {
		case env.Resp <- res:
		default:
			e.log.WithField("actor", env.ActorID).Warn("result dropped")
		}
	}
	e.Step()
	for _, req := range leaves {
		e.Disconnect(req.ActorID, req.SessionID)
	}
}

// Do runs fn on the engine goroutine and waits for it. It is how other
// goroutines read engine state.
func (e *Engine) Do(ctx context.Context, fn func(*Engine)) error {
	c := call{fn: func() { fn(e) }, done: make(chan struct{})}
	select {
	case e.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect creates or refreshes the actor's session and issues a new session
// id. Leaves carrying an older id no longer evict it.
func (e *Engine) Connect(actorID, name, dim string) protocol.WelcomeMsg {
	s := e.sessions.Ensure(actorID, name)
	s.SessionID = uuid.NewString()
	if dim != "" {
		s.Dimension = dim
	}
	if s.Dimension == "" && len(e.cfg.World.Dimensions) > 0 {
		s.Dimension = e.cfg.World.Dimensions[0]
	}
	s.Bypass = e.cfg.IsAdmin(s.Name) || e.cfg.IsAdmin(actorID)
	e.log.WithFields(logrus.Fields{"actor": actorID, "name": s.Name, "bypass": s.Bypass}).Info("actor joined")

	l := e.cfg.Limits
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.SessionID,
		ActorID:         actorID,
		Limits: protocol.LimitsInfo{
			MaxSelectionVolume: l.MaxSelectionVolume,
			MaxPasteVolume:     l.MaxPasteVolume,
			ConfirmThreshold:   l.ConfirmThreshold,
			UndoDepth:          l.UndoDepth,
			ClipboardLimit:     l.ClipboardLimit,
			BatchSize:          e.exec.BatchSize(),
		},
		Dimensions: append([]string(nil), e.cfg.World.Dimensions...),
		Commands:   commandNames(),
	}
}

// Disconnect evicts the session. An operation in flight keeps running; its
// notifications and history are dropped. An empty sessionID matches any
// session.
func (e *Engine) Disconnect(actorID, sessionID string) {
	s, ok := e.sessions.Get(actorID)
	if !ok {
		return
	}
	if sessionID != "" && s.SessionID != sessionID {
		e.log.WithField("actor", actorID).Debug("stale leave ignored")
		return
	}
	if e.sessions.Evict(actorID) {
		e.log.WithField("actor", actorID).Info("actor left")
	}
}

// Step advances the executor by one tick and settles completed operations.
func (e *Engine) Step() {
	tick := e.tick.Add(1)
	for _, op := range e.exec.Tick(e.worlds) {
		e.finish(op, false)
		e.notify.Notify(op.Actor, completionText(op))
	}
	if every := e.cfg.Zones.SweepEveryTicks; every > 0 && tick%uint64(every) == 0 {
		for _, z := range e.zones.Sweep() {
			e.log.WithFields(logrus.Fields{"zone": z.Name, "owner": z.Owner}).Info("zone expired")
		}
	}
}

// Handle runs one command for a joined actor.
func (e *Engine) Handle(actorID string, cmd protocol.CommandMsg) protocol.ResultMsg {
	s, ok := e.sessions.Get(actorID)
	if !ok {
		return protocol.NewError(cmd.ID, protocol.ErrBadRequest, ErrNotJoined.Error())
	}
	h, ok := handlers[cmd.Cmd]
	if !ok {
		return protocol.NewError(cmd.ID, protocol.ErrUnknownCommand, "unknown command "+cmd.Cmd)
	}
	data, err := h(e, s, cmd)
	if err != nil {
		code := Code(err)
		f := e.log.WithFields(logrus.Fields{"actor": actorID, "cmd": cmd.Cmd, "code": code})
		if code == protocol.ErrInternal {
			f.WithError(err).Error("command failed")
		} else {
			f.WithError(err).Debug("command rejected")
		}
		return protocol.NewError(cmd.ID, code, err.Error())
	}
	return protocol.NewResult(cmd.ID, data)
}

// ActiveOperations is safe only on the engine goroutine; use Do.
func (e *Engine) ActiveOperations() []batch.View { return e.exec.Snapshot() }

func (e *Engine) Zones() []zones.Zone { return e.zones.All() }

func (e *Engine) Actors() []string { return e.sessions.Actors() }

func commandNames() []string {
	out := make([]string, 0, len(handlers))
	for k := range handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
