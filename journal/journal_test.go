package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/tether/bridge"
)

func openTemp(t *testing.T, session string) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "j", "crossings.db"), session)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRead(t *testing.T) {
	j := openTemp(t, "s1")
	j.ObserveCrossing(bridge.Crossing{Kind: bridge.CrossConstructor, Function: 3, Self: 10})
	j.ObserveCrossing(bridge.Crossing{
		Kind:     bridge.CrossFunction,
		Function: 4,
		Self:     10,
		Argc:     1,
		Args:     []bridge.ValueType{bridge.TypeNumber},
		Error:    "bad",
		Elapsed:  time.Millisecond,
	})
	j.ObserveCrossing(bridge.Crossing{Kind: bridge.CrossDestructor, Self: 10})

	if j.Failures() != 0 {
		t.Fatalf("Failures = %d", j.Failures())
	}
	n, err := j.Count(Query{})
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	records, err := j.Entries(Query{Session: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("Entries = %d records", len(records))
	}
	if records[0].Kind != bridge.CrossConstructor || records[2].Kind != bridge.CrossDestructor {
		t.Error("entries out of order")
	}
	fn := records[1].Crossing()
	if fn.Error != "bad" || fn.Elapsed != time.Millisecond || len(fn.Args) != 1 {
		t.Errorf("function crossing = %+v", fn)
	}
	if records[1].Session != "s1" {
		t.Errorf("Session = %q", records[1].Session)
	}
}

func TestQueryFilters(t *testing.T) {
	j := openTemp(t, "s2")
	for i := 0; i < 5; i++ {
		c := bridge.Crossing{Kind: bridge.CrossFunction, Function: bridge.FunctionPtr(i)}
		if i%2 == 0 {
			c.Error = "odd failure"
		}
		j.ObserveCrossing(c)
	}
	j.ObserveCrossing(bridge.Crossing{Kind: bridge.CrossScript, Callable: 1})

	if n, _ := j.Count(Query{Kind: bridge.CrossScript}); n != 1 {
		t.Errorf("script crossings = %d", n)
	}
	if n, _ := j.Count(Query{ErrorsOnly: true}); n != 3 {
		t.Errorf("failed crossings = %d", n)
	}
	if n, _ := j.Count(Query{Session: "other"}); n != 0 {
		t.Errorf("other session = %d", n)
	}
	limited, err := j.Entries(Query{Kind: bridge.CrossFunction, Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("limited = %d, %v", len(limited), err)
	}
	if limited[1].Function != 1 {
		t.Errorf("second entry function = %d", limited[1].Function)
	}
}

func TestSessionsShareAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	for _, s := range []string{"first", "second"} {
		j, err := Open(path, s)
		if err != nil {
			t.Fatal(err)
		}
		j.ObserveCrossing(bridge.Crossing{Kind: bridge.CrossDestructor})
		j.Close()
	}

	j, err := Open(path, "reader")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	sessions, err := j.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0] != "first" || sessions[1] != "second" {
		t.Errorf("Sessions = %v", sessions)
	}
}

func TestInMemoryJournal(t *testing.T) {
	j, err := Open(":memory:", "mem")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	j.ObserveCrossing(bridge.Crossing{Kind: bridge.CrossScript})
	if n, _ := j.Count(Query{}); n != 1 {
		t.Errorf("Count = %d", n)
	}
}

func TestJournalAsEngineObserver(t *testing.T) {
	j := openTemp(t, "engine")
	e := bridge.NewEngine(nullHost{}, bridge.WithObserver(j), bridge.WithSessionID("engine"))
	e.SetGlobalFunction("noop", 1, 0)
	if _, err := e.Globals.Call("noop", "a", 2); err != nil {
		t.Fatal(err)
	}

	records, err := j.Entries(Query{Session: e.ID()})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Argc != 2 || records[0].Kind != bridge.CrossFunction {
		t.Errorf("records = %+v", records)
	}
}

type nullHost struct{}

func (nullHost) CallFunction(bridge.FunctionPtr, bridge.HostID, bridge.Pointer, int, int64) {}
func (nullHost) CallConstructor(bridge.FunctionPtr, bridge.Pointer, int, int64) bridge.HostID {
	return 0
}
func (nullHost) CallDestructor(bridge.FunctionPtr, bridge.HostID, int64) {}
