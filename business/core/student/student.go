// Package student provides the core business API for the student register
// view. It owns the view state (phase, cached roster, total, search result,
// loading and error flags) and sequences the calls against the ledger in
// response to user actions.
package student

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/register/business/sys/metrics"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/web"
	"go.uber.org/zap"
)

// Ledger is the set of contract operations the view depends on. Writes
// return once the transaction has been confirmed.
type Ledger interface {
	Account() string
	Contract() string
	TotalStudents(ctx context.Context) (uint64, error)
	AllStudents(ctx context.Context) ([]Student, error)
	StudentByID(ctx context.Context, id uint64) (Student, error)
	RegisterStudent(ctx context.Context, name string) error
	RemoveStudent(ctx context.Context, id uint64) error
}

// Connector requests access to the wallet and binds the contract, returning
// the ledger to use for every later call.
type Connector func(ctx context.Context) (Ledger, error)

// Core manages the set of APIs for the student register view.
type Core struct {
	log     *zap.SugaredLogger
	connect Connector
	evts    *events.Events[Event]

	mu     sync.Mutex
	ledger Ledger
	state  State
}

// NewCore constructs a core for the view. The events value is optional.
func NewCore(log *zap.SugaredLogger, connect Connector, evts *events.Events[Event]) *Core {
	return &Core{
		log:     log,
		connect: connect,
		evts:    evts,
		state: State{
			Phase: PhaseLoading,
		},
	}
}

// Snapshot returns a copy of the current view state.
func (c *Core) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.copy()
}

// Ready reports whether initialization completed successfully.
func (c *Core) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Phase == PhaseReady
}

// Initialize requests wallet access, binds the contract, and loads the total
// and the initial roster. Any failure moves the view into the terminal
// error phase.
func (c *Core) Initialize(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	phase := c.state.Phase
	c.mu.Unlock()

	switch phase {
	case PhaseReady:
		return nil
	case PhaseError:
		return ErrNotReady
	}

	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	var ledger Ledger
	err := c.observe(OpConnect, func() error {
		var err error
		ledger, err = c.connect(ctx)
		return err
	})
	if err != nil {
		return c.terminal(ctx, &ConnectionError{Err: err})
	}

	total, students, err := c.load(ctx, ledger)
	if err != nil {
		return c.terminal(ctx, &ConnectionError{Err: err})
	}

	c.mu.Lock()
	{
		c.ledger = ledger
		c.state.Phase = PhaseReady
		c.state.Total = total
		c.state.Students = students
		c.state.Loaded = true
		c.state.Account = ledger.Account()
		c.state.Contract = ledger.Contract()
	}
	c.mu.Unlock()

	c.log.Infow("initialize", "traceid", web.GetTraceID(ctx), "account", ledger.Account(), "contract", ledger.Contract(), "total", total)

	return nil
}

// Register adds a student with the specified name, waits for the
// transaction to be confirmed, and reloads the total and the roster. An
// empty name performs no remote call.
func (c *Core) Register(ctx context.Context, name string) error {
	ctx = context.WithoutCancel(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	ledger, err := c.readyLedger()
	if err != nil {
		return err
	}

	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	before := c.state.Students
	c.mu.Unlock()

	err = c.observe(OpRegister, func() error {
		return ledger.RegisterStudent(ctx, name)
	})
	if err != nil {
		return c.fail(ctx, &CallError{Op: OpRegister, Err: err})
	}

	total, students, err := c.load(ctx, ledger)
	if err != nil {
		return c.fail(ctx, &CallError{Op: OpList, Err: err})
	}

	c.mu.Lock()
	{
		c.state.Total = total
		c.state.Students = students
		c.state.Loaded = true
	}
	c.mu.Unlock()

	evt := Event{
		Kind:  EventRegistered,
		Name:  name,
		Total: total,
		Count: len(students),
	}
	if added, ok := newest(before, students); ok {
		evt.ID = added.ID
	}
	c.publish(evt)

	c.log.Infow("register", "traceid", web.GetTraceID(ctx), "name", name, "id", evt.ID, "total", total)

	return nil
}

// Remove deletes the student with the specified id, waits for the
// transaction to be confirmed, and reloads the total and the roster. The id
// is the raw user input; an empty id performs no remote call.
func (c *Core) Remove(ctx context.Context, rawID string) error {
	ctx = context.WithoutCancel(ctx)

	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil
	}

	ledger, err := c.readyLedger()
	if err != nil {
		return err
	}

	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id, err := parseID(rawID)
	if err != nil {
		return c.fail(ctx, &CallError{Op: OpRemove, Err: err})
	}

	err = c.observe(OpRemove, func() error {
		return ledger.RemoveStudent(ctx, id)
	})
	if err != nil {
		return c.fail(ctx, &CallError{Op: OpRemove, Err: err})
	}

	total, students, err := c.load(ctx, ledger)
	if err != nil {
		return c.fail(ctx, &CallError{Op: OpList, Err: err})
	}

	c.mu.Lock()
	{
		c.state.Total = total
		c.state.Students = students
		c.state.Loaded = true
		if c.state.Searched != nil && c.state.Searched.ID == id {
			c.state.Searched = nil
		}
	}
	c.mu.Unlock()

	c.publish(Event{
		Kind:  EventRemoved,
		ID:    id,
		Total: total,
		Count: len(students),
	})

	c.log.Infow("remove", "traceid", web.GetTraceID(ctx), "id", id, "total", total)

	return nil
}

// Search reads the student with the specified id. On failure the previous
// search result is cleared. An empty id performs no remote call.
func (c *Core) Search(ctx context.Context, rawID string) (Student, error) {
	ctx = context.WithoutCancel(ctx)

	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return Student{}, nil
	}

	ledger, err := c.readyLedger()
	if err != nil {
		return Student{}, err
	}

	if err := c.begin(); err != nil {
		return Student{}, err
	}
	defer c.end()

	id, err := parseID(rawID)
	if err != nil {
		c.clearSearch()
		return Student{}, c.fail(ctx, &CallError{Op: OpSearch, Err: err})
	}

	var found Student
	err = c.observe(OpSearch, func() error {
		var err error
		found, err = ledger.StudentByID(ctx, id)
		return err
	})
	if err != nil {
		c.clearSearch()
		return Student{}, c.fail(ctx, &CallError{Op: OpSearch, Err: err})
	}

	c.mu.Lock()
	c.state.Searched = &found
	c.mu.Unlock()

	return found, nil
}

// Reload re-fetches the full roster and overwrites the cached copy.
func (c *Core) Reload(ctx context.Context) ([]Student, error) {
	ctx = context.WithoutCancel(ctx)

	ledger, err := c.readyLedger()
	if err != nil {
		return nil, err
	}

	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	var students []Student
	err = c.observe(OpList, func() error {
		var err error
		students, err = ledger.AllStudents(ctx)
		return err
	})
	if err != nil {
		return nil, c.fail(ctx, &CallError{Op: OpList, Err: err})
	}

	c.mu.Lock()
	{
		c.state.Students = students
		c.state.Loaded = true
	}
	total := c.state.Total
	c.mu.Unlock()

	c.publish(Event{
		Kind:  EventReloaded,
		Total: total,
		Count: len(students),
	})

	out := make([]Student, len(students))
	copy(out, students)

	return out, nil
}

// =============================================================================

// begin marks the start of an in-flight call. Only one action may be in
// flight at any time.
func (c *Core) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Loading {
		return ErrBusy
	}

	c.state.Loading = true
	c.state.Err = ""

	return nil
}

// end marks the completion of the in-flight call.
func (c *Core) end() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Loading = false
}

// readyLedger returns the bound ledger or ErrNotReady.
func (c *Core) readyLedger() (Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseReady || c.ledger == nil {
		return nil, ErrNotReady
	}

	return c.ledger, nil
}

// load reads the total and the roster.
func (c *Core) load(ctx context.Context, ledger Ledger) (uint64, []Student, error) {
	var total uint64
	err := c.observe(OpTotal, func() error {
		var err error
		total, err = ledger.TotalStudents(ctx)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	var students []Student
	err = c.observe(OpList, func() error {
		var err error
		students, err = ledger.AllStudents(ctx)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	return total, students, nil
}

// observe executes the ledger call and records its outcome.
func (c *Core) observe(op string, f func() error) error {
	start := time.Now()
	err := f()

	status := "ok"
	if err != nil {
		status = "error"
	}

	metrics.LedgerCalls.WithLabelValues(op, status).Inc()
	metrics.LedgerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	return err
}

// terminal records a failure that the view can't recover from.
func (c *Core) terminal(ctx context.Context, err *ConnectionError) error {
	c.log.Errorw("initialize", "traceid", web.GetTraceID(ctx), "ERROR", err)

	c.mu.Lock()
	{
		c.state.Phase = PhaseError
		c.state.Err = err.Message()
	}
	c.mu.Unlock()

	return err
}

// fail records a failed action. The view stays ready.
func (c *Core) fail(ctx context.Context, err *CallError) error {
	c.log.Errorw(err.Op, "traceid", web.GetTraceID(ctx), "ERROR", err)

	c.mu.Lock()
	c.state.Err = err.Message()
	c.mu.Unlock()

	return err
}

func (c *Core) clearSearch() {
	c.mu.Lock()
	c.state.Searched = nil
	c.mu.Unlock()
}

func (c *Core) publish(evt Event) {
	if c.evts == nil {
		return
	}

	evt.Time = time.Now().UTC()
	c.evts.Send(evt)
}

// =============================================================================

// parseID converts the user input into a student id.
func parseID(rawID string) (uint64, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid student id %q", rawID)
	}
	return id, nil
}

// newest returns the student present in after that is missing from before
// with the highest id.
func newest(before []Student, after []Student) (Student, bool) {
	seen := make(map[uint64]struct{}, len(before))
	for _, s := range before {
		seen[s.ID] = struct{}{}
	}

	var (
		found Student
		ok    bool
	)
	for _, s := range after {
		if _, exists := seen[s.ID]; exists {
			continue
		}
		if !ok || s.ID > found.ID {
			found, ok = s, true
		}
	}

	return found, ok
}
