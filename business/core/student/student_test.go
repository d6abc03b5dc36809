package student_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/signer"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

// ledger is an in-memory ledger that counts remote calls and can observe
// the loading flag while a call is in flight.
type ledger struct {
	mu       sync.Mutex
	nextID   uint64
	students []student.Student
	calls    int
	fail     error
	during   func()
}

func newLedger(names ...string) *ledger {
	l := ledger{nextID: 1}
	for _, name := range names {
		l.students = append(l.students, student.Student{ID: l.nextID, Name: name})
		l.nextID++
	}
	return &l
}

func (l *ledger) enter() error {
	l.mu.Lock()
	l.calls++
	during := l.during
	err := l.fail
	l.mu.Unlock()

	if during != nil {
		during()
	}

	return err
}

func (l *ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *ledger) Account() string  { return "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4" }
func (l *ledger) Contract() string { return "0x0976E205B6D0F3E6DDA97bE011ce2D4457cdAc39" }

func (l *ledger) TotalStudents(ctx context.Context) (uint64, error) {
	if err := l.enter(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.students)), nil
}

func (l *ledger) AllStudents(ctx context.Context) ([]student.Student, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]student.Student, len(l.students))
	copy(out, l.students)
	return out, nil
}

func (l *ledger) StudentByID(ctx context.Context, id uint64) (student.Student, error) {
	if err := l.enter(); err != nil {
		return student.Student{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.students {
		if s.ID == id {
			return s, nil
		}
	}
	return student.Student{}, errors.New("execution reverted: student not found")
}

func (l *ledger) RegisterStudent(ctx context.Context, name string) error {
	if err := l.enter(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.students = append(l.students, student.Student{ID: l.nextID, Name: name})
	l.nextID++
	return nil
}

func (l *ledger) RemoveStudent(ctx context.Context, id uint64) error {
	if err := l.enter(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.students {
		if s.ID == id {
			l.students = append(l.students[:i], l.students[i+1:]...)
			return nil
		}
	}
	return errors.New("execution reverted: student not found")
}

func newCore(t *testing.T, l *ledger) (*student.Core, *events.Events[student.Event]) {
	evts := events.New[student.Event]()
	connect := func(ctx context.Context) (student.Ledger, error) {
		return l, nil
	}

	core := student.NewCore(zap.NewNop().Sugar(), connect, evts)
	if err := core.Initialize(context.Background()); err != nil {
		t.Fatalf("\t%s\tShould be able to initialize the view: %s", failed, err)
	}

	return core, evts
}

// =============================================================================

func Test_Initialize(t *testing.T) {
	t.Log("Given the need to connect the view to the ledger.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the ledger is reachable.", testID)
		{
			l := newLedger("Alice", "Bob")
			core, _ := newCore(t, l)

			state := core.Snapshot()
			if state.Phase != student.PhaseReady {
				t.Fatalf("\t%s\tTest %d:\tShould be in the ready phase, got %s.", failed, testID, state.Phase)
			}
			t.Logf("\t%s\tTest %d:\tShould be in the ready phase.", success, testID)

			if state.Total != 2 || len(state.Students) != 2 || !state.Loaded {
				t.Logf("\t\tTest %d:\tgot: %+v", testID, state)
				t.Fatalf("\t%s\tTest %d:\tShould load the total and the roster.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould load the total and the roster.", success, testID)

			if state.Loading {
				t.Fatalf("\t%s\tTest %d:\tShould not be loading once initialized.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not be loading once initialized.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen no wallet is configured.", testID)
		{
			connect := func(ctx context.Context) (student.Ledger, error) {
				return nil, fmt.Errorf("loading key: %w", signer.ErrNoWallet)
			}
			core := student.NewCore(zap.NewNop().Sugar(), connect, nil)

			err := core.Initialize(context.Background())
			if !student.IsConnectionError(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get back a connection error, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back a connection error.", success, testID)

			state := core.Snapshot()
			if state.Phase != student.PhaseError || state.Err == "" {
				t.Logf("\t\tTest %d:\tgot: %+v", testID, state)
				t.Fatalf("\t%s\tTest %d:\tShould end in the error phase with a message.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould end in the error phase with a message.", success, testID)

			if err := core.Initialize(context.Background()); !errors.Is(err, student.ErrNotReady) {
				t.Fatalf("\t%s\tTest %d:\tShould never reach ready after a failure, got %v.", failed, testID, err)
			}
			if core.Ready() {
				t.Fatalf("\t%s\tTest %d:\tShould never reach ready after a failure.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould never reach ready after a failure.", success, testID)

			if err := core.Register(context.Background(), "Alice"); !errors.Is(err, student.ErrNotReady) {
				t.Fatalf("\t%s\tTest %d:\tShould reject actions in the error phase, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject actions in the error phase.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the initial load fails.", testID)
		{
			l := newLedger()
			l.fail = errors.New("rpc: connection refused")
			connect := func(ctx context.Context) (student.Ledger, error) {
				return l, nil
			}
			core := student.NewCore(zap.NewNop().Sugar(), connect, nil)

			if err := core.Initialize(context.Background()); !student.IsConnectionError(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get back a connection error, got %v.", failed, testID, err)
			}
			if core.Snapshot().Phase != student.PhaseError {
				t.Fatalf("\t%s\tTest %d:\tShould end in the error phase.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould end in the error phase.", success, testID)
		}
	}
}

func Test_RegisterRemove(t *testing.T) {
	t.Log("Given the need to register and remove students.")
	{
		l := newLedger("Bob")
		core, evts := newCore(t, l)
		ch := evts.Acquire("test")
		ctx := context.Background()

		if err := core.Register(ctx, "Alice"); err != nil {
			t.Fatalf("\t%s\tShould be able to register Alice: %s", failed, err)
		}

		if _, err := core.Reload(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to reload: %s", failed, err)
		}

		state := core.Snapshot()
		if state.Total != 2 {
			t.Logf("\t\tgot: %d", state.Total)
			t.Logf("\t\texp: %d", 2)
			t.Fatalf("\t%s\tShould increase the total by one.", failed)
		}

		var alice []student.Student
		for _, s := range state.Students {
			if s.Name == "Alice" {
				alice = append(alice, s)
			}
		}
		if len(alice) != 1 || alice[0].ID != 2 {
			t.Logf("\t\tgot: %+v", state.Students)
			t.Fatalf("\t%s\tShould hold exactly one new entry for Alice.", failed)
		}
		t.Logf("\t%s\tShould hold exactly one new entry for Alice.", success)

		evt := <-ch
		if evt.Kind != student.EventRegistered || evt.ID != alice[0].ID || evt.Name != "Alice" {
			t.Logf("\t\tgot: %+v", evt)
			t.Fatalf("\t%s\tShould publish the registration with the assigned id.", failed)
		}
		t.Logf("\t%s\tShould publish the registration with the assigned id.", success)

		if err := core.Remove(ctx, fmt.Sprint(alice[0].ID)); err != nil {
			t.Fatalf("\t%s\tShould be able to remove Alice: %s", failed, err)
		}

		state = core.Snapshot()
		if state.Total != 1 || len(state.Students) != 1 || state.Students[0].Name != "Bob" {
			t.Logf("\t\tgot: %+v", state)
			t.Fatalf("\t%s\tShould remove exactly that entry and decrement the total.", failed)
		}
		t.Logf("\t%s\tShould remove exactly that entry and decrement the total.", success)
	}
}

func Test_EmptyInputIsNoop(t *testing.T) {
	l := newLedger("Alice")
	core, _ := newCore(t, l)
	ctx := context.Background()

	calls := l.Calls()

	if err := core.Register(ctx, ""); err != nil {
		t.Fatalf("Should not fail on an empty name: %s", err)
	}
	if err := core.Register(ctx, "   "); err != nil {
		t.Fatalf("Should not fail on a blank name: %s", err)
	}
	if err := core.Remove(ctx, ""); err != nil {
		t.Fatalf("Should not fail on an empty id: %s", err)
	}
	if _, err := core.Search(ctx, ""); err != nil {
		t.Fatalf("Should not fail on an empty search id: %s", err)
	}

	if got := l.Calls(); got != calls {
		t.Logf("got: %d", got)
		t.Logf("exp: %d", calls)
		t.Fatalf("Should perform no remote call for empty input.")
	}
}

func Test_Search(t *testing.T) {
	l := newLedger("Alice", "Bob")
	core, _ := newCore(t, l)
	ctx := context.Background()

	s, err := core.Search(ctx, "2")
	if err != nil {
		t.Fatalf("Should be able to find student 2: %s", err)
	}
	if s.Name != "Bob" {
		t.Logf("got: %s", s.Name)
		t.Logf("exp: %s", "Bob")
		t.Fatalf("Should find the right student.")
	}
	if got := core.Snapshot().Searched; got == nil || got.ID != 2 {
		t.Fatalf("Should hold the search result.")
	}

	_, err = core.Search(ctx, "99")
	if !student.IsCallError(err) {
		t.Fatalf("Should get back a call error for an unknown id, got %v.", err)
	}

	state := core.Snapshot()
	if state.Searched != nil {
		t.Fatalf("Should clear the previous search result.")
	}
	if state.Err == "" {
		t.Fatalf("Should surface an error message.")
	}
	if state.Phase != student.PhaseReady {
		t.Fatalf("Should stay in the ready phase after an action failure.")
	}

	if _, err := core.Search(ctx, "abc"); !student.IsCallError(err) {
		t.Fatalf("Should get back a call error for a non numeric id, got %v.", err)
	}

	if _, err := core.Reload(ctx); err != nil {
		t.Fatalf("Should be able to reload: %s", err)
	}
	if core.Snapshot().Err != "" {
		t.Fatalf("Should clear the error message when the next action starts.")
	}
}

func Test_Failures(t *testing.T) {
	l := newLedger("Alice")
	core, _ := newCore(t, l)
	ctx := context.Background()

	l.mu.Lock()
	l.fail = errors.New("insufficient funds")
	l.mu.Unlock()

	err := core.Register(ctx, "Carol")
	var callErr *student.CallError
	if !errors.As(err, &callErr) || callErr.Op != student.OpRegister {
		t.Fatalf("Should get back a register call error, got %v.", err)
	}

	state := core.Snapshot()
	if state.Err != callErr.Message() {
		t.Logf("got: %s", state.Err)
		t.Logf("exp: %s", callErr.Message())
		t.Fatalf("Should surface the generic message.")
	}
	if state.Total != 1 || len(state.Students) != 1 {
		t.Fatalf("Should leave the cache untouched on failure.")
	}
	if state.Loading {
		t.Fatalf("Should not be loading after a failure.")
	}

	calls := l.Calls()
	if err := core.Remove(ctx, "not-a-number"); !student.IsCallError(err) {
		t.Fatalf("Should get back a call error for a non numeric id, got %v.", err)
	}
	if l.Calls() != calls {
		t.Fatalf("Should not call the ledger for a non numeric id.")
	}
}

func Test_LoadingFlag(t *testing.T) {
	l := newLedger("Alice")
	core, _ := newCore(t, l)
	ctx := context.Background()

	var (
		observed []bool
		busy     []error
	)
	l.mu.Lock()
	l.during = func() {
		observed = append(observed, core.Snapshot().Loading)
		busy = append(busy, core.Register(ctx, "Dave"))
	}
	l.mu.Unlock()

	if err := core.Register(ctx, "Carol"); err != nil {
		t.Fatalf("Should be able to register: %s", err)
	}

	l.mu.Lock()
	l.during = nil
	l.mu.Unlock()

	if len(observed) == 0 {
		t.Fatalf("Should observe the in-flight calls.")
	}
	for i, loading := range observed {
		if !loading {
			t.Fatalf("Should be loading during in-flight call %d.", i)
		}
		if !errors.Is(busy[i], student.ErrBusy) {
			t.Fatalf("Should reject a second action while loading, got %v.", busy[i])
		}
	}

	state := core.Snapshot()
	if state.Loading {
		t.Fatalf("Should not be loading once the call completes.")
	}
	if state.Total != 2 {
		t.Fatalf("Should only register once, got total %d.", state.Total)
	}
}

func Test_Roster(t *testing.T) {
	l := newLedger("Alice", "Bob")
	core, _ := newCore(t, l)

	var buf bytes.Buffer
	if err := core.Roster(&buf); err != nil {
		t.Fatalf("Should be able to write the roster: %s", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Should be able to open the workbook: %s", err)
	}
	defer f.Close()

	rows, err := f.GetRows(student.RosterSheet)
	if err != nil {
		t.Fatalf("Should be able to read the roster sheet: %s", err)
	}

	exp := [][]string{{"ID", "Name"}, {"1", "Alice"}, {"2", "Bob"}}
	if len(rows) != len(exp) {
		t.Logf("got: %v", rows)
		t.Logf("exp: %v", exp)
		t.Fatalf("Should get back a header and one row per student.")
	}
	for i := range exp {
		if rows[i][0] != exp[i][0] || rows[i][1] != exp[i][1] {
			t.Logf("got: %v", rows[i])
			t.Logf("exp: %v", exp[i])
			t.Fatalf("Should get back row %d.", i)
		}
	}
}
