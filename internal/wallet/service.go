package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/secure_wallet/internal/audit"
	"github.com/congo-pay/secure_wallet/internal/boundary"
	"github.com/congo-pay/secure_wallet/internal/dispatch"
	"github.com/congo-pay/secure_wallet/internal/ledger"
)

// ErrBadState indicates a lifecycle hook or command arrived while the
// component was not in the state it requires.
var ErrBadState = errors.New("component not available")

// Component is the protected side of the wallet. It owns the wallet state
// from Create until Destroy and serves commands for open sessions.
type Component struct {
	mu         sync.RWMutex
	state      State
	engine     *ledger.Engine
	dispatcher *dispatch.Dispatcher

	sessions       Repository
	journal        audit.Journal
	logger         *slog.Logger
	initialBalance int64
}

// Option configures a Component.
type Option func(*Component)

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Component) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJournal sets where boundary call outcomes are recorded.
func WithJournal(journal audit.Journal) Option {
	return func(c *Component) {
		c.journal = journal
	}
}

// WithInitialBalance sets the balance the wallet starts with at Create.
func WithInitialBalance(amount int64) Option {
	return func(c *Component) {
		c.initialBalance = amount
	}
}

// WithRepository replaces the in-memory session registry.
func WithRepository(repo Repository) Option {
	return func(c *Component) {
		if repo != nil {
			c.sessions = repo
		}
	}
}

// NewComponent builds an inert component. Nothing can be served until Create.
func NewComponent(opts ...Option) *Component {
	c := &Component{
		state:          StateInert,
		sessions:       NewMemoryRepository(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		initialBalance: ledger.DefaultInitialBalance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the lifecycle stage.
func (c *Component) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Create builds the wallet state. It may be called once.
func (c *Component) Create(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInert {
		state := c.state
		c.mu.Unlock()
		return c.badState("create", state)
	}
	c.engine = ledger.NewEngine(
		ledger.WithInitialBalance(c.initialBalance),
		ledger.WithLogger(c.logger.With(slog.String("component", "ledger"))),
	)
	c.dispatcher = dispatch.New(c.engine)
	c.state = StateCreated
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "component created", slog.Int64("initial_balance", c.initialBalance))
	c.record(ctx, audit.Entry{Kind: audit.KindLifecycle, Operation: "create"})
	return nil
}

// Destroy closes every session and drops the wallet state.
func (c *Component) Destroy(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateCreated {
		state := c.state
		c.mu.Unlock()
		return c.badState("destroy", state)
	}
	closed := c.sessions.Clear(ctx)
	c.engine = nil
	c.dispatcher = nil
	c.state = StateDestroyed
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "component destroyed", slog.Int("sessions_closed", closed))
	c.record(ctx, audit.Entry{Kind: audit.KindLifecycle, Operation: "destroy"})
	return nil
}

// OpenSession registers a new caller session. Opening takes no parameters;
// any populated slot is rejected with BadParameters.
func (c *Component) OpenSession(ctx context.Context, params boundary.Bundle) (Session, error) {
	entry := audit.Entry{Kind: audit.KindLifecycle, Operation: "open_session", ParamTypes: params.Shape().Pack()}

	session, err := c.openSession(ctx, params)
	entry.SessionID = session.ID
	c.finish(ctx, entry, err)
	if err != nil {
		return Session{}, err
	}

	c.logger.InfoContext(ctx, "session opened", slog.String("session_id", session.ID))
	return session, nil
}

func (c *Component) openSession(ctx context.Context, params boundary.Bundle) (Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateCreated {
		return Session{}, c.badState("open session", c.state)
	}
	if err := boundary.Expect(&params, boundary.Shape{}); err != nil {
		return Session{}, fmt.Errorf("open session: %w", err)
	}

	session := Session{ID: uuid.NewString(), OpenedAt: time.Now().UTC()}
	if err := c.sessions.Create(ctx, session); err != nil {
		return Session{}, boundary.Wrap(boundary.CodeGeneric, fmt.Errorf("open session: %w", err))
	}
	return session, nil
}

// CloseSession ends a session. Unknown identifiers yield ItemNotFound.
func (c *Component) CloseSession(ctx context.Context, id string) error {
	err := c.closeSession(ctx, id)
	c.finish(ctx, audit.Entry{Kind: audit.KindLifecycle, Operation: "close_session", SessionID: id}, err)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	return nil
}

func (c *Component) closeSession(ctx context.Context, id string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateCreated {
		return c.badState("close session", c.state)
	}
	if err := c.sessions.Delete(ctx, id); err != nil {
		return boundary.Wrap(boundary.CodeItemNotFound, err)
	}
	return nil
}

// Invoke runs cmd for the session identified by sessionID. The returned
// bundle carries the command's output parameters.
func (c *Component) Invoke(ctx context.Context, sessionID string, cmd dispatch.CommandID, params boundary.Bundle) (boundary.Bundle, error) {
	out, err := c.invoke(ctx, sessionID, cmd, params)
	c.finish(ctx, audit.Entry{
		Kind:       audit.KindCommand,
		SessionID:  sessionID,
		Operation:  cmd.String(),
		ParamTypes: params.Shape().Pack(),
	}, err)
	return out, err
}

func (c *Component) invoke(ctx context.Context, sessionID string, cmd dispatch.CommandID, params boundary.Bundle) (boundary.Bundle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateCreated {
		return params, c.badState("invoke", c.state)
	}
	if _, err := c.sessions.Get(ctx, sessionID); err != nil {
		return params, boundary.Wrap(boundary.CodeItemNotFound, err)
	}
	return c.dispatcher.Dispatch(ctx, cmd, params)
}

func (c *Component) badState(op string, state State) error {
	return boundary.Errorf(boundary.CodeBadState, "%w: %s while %s", ErrBadState, op, state)
}

func (c *Component) finish(ctx context.Context, entry audit.Entry, err error) {
	entry.Code = uint32(boundary.CodeOf(err))
	if err != nil {
		entry.Detail = err.Error()
	}
	c.record(ctx, entry)
}

func (c *Component) record(ctx context.Context, entry audit.Entry) {
	if c.journal == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if err := c.journal.Record(ctx, entry); err != nil {
		c.logger.WarnContext(ctx, "journal write failed", slog.String("operation", entry.Operation), slog.Any("error", err))
	}
}
