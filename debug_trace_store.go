// debug_trace_store.go - SQLite instruction trace recorder

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

func init() {
	compiledFeatures = append(compiledFeatures, "debug:trace-db")
}

const defaultTraceBatch = 512

const traceSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	program     TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	result      TEXT,
	steps       INTEGER
);
CREATE TABLE IF NOT EXISTS steps (
	run_id  TEXT NOT NULL,
	seq     INTEGER NOT NULL,
	pc      INTEGER NOT NULL,
	opcode  TEXT NOT NULL,
	instr   TEXT NOT NULL,
	next_pc INTEGER NOT NULL,
	regs    TEXT NOT NULL,
	depth   INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS faults (
	run_id TEXT NOT NULL,
	pc     INTEGER NOT NULL,
	instr  TEXT NOT NULL,
	kind   TEXT NOT NULL,
	detail TEXT NOT NULL
);`

type traceRow struct {
	seq    uint64
	pc     uint32
	opcode string
	instr  string
	nextPC uint32
	regs   string
	depth  int
}

// TraceStore records executed instructions to SQLite. Steps are buffered
// and written in one transaction per batch. It implements TraceObserver;
// write errors are kept and reported by EndRun and Close.
type TraceStore struct {
	db      *sql.DB
	path    string
	batch   int
	runID   string
	pending []traceRow
	err     error
}

// OpenTraceStore opens or creates the trace database at path.
func OpenTraceStore(path string, batch int) (*TraceStore, error) {
	if batch <= 0 {
		batch = defaultTraceBatch
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(traceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace tables: %w", err)
	}

	traceLog.Infof("recording trace to %s", path)
	return &TraceStore{
		db:      db,
		path:    path,
		batch:   batch,
		pending: make([]traceRow, 0, batch),
	}, nil
}

// BeginRun starts a new run and returns its ID.
func (s *TraceStore) BeginRun(program string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO runs (id, program, started_at) VALUES (?, ?, ?)`,
		id, program, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	s.runID = id
	s.err = nil
	return id, nil
}

func (s *TraceStore) RunID() string {
	return s.runID
}

func (s *TraceStore) OnStep(ev *StepEvent) {
	if s.runID == "" || s.err != nil {
		return
	}
	s.pending = append(s.pending, traceRow{
		seq:    ev.Seq,
		pc:     ev.Instr.Addr,
		opcode: ev.Instr.Op.String(),
		instr:  ev.Instr.String(),
		nextPC: ev.NextPC,
		regs:   ev.Regs.String(),
		depth:  ev.StackDepth,
	})
	if len(s.pending) >= s.batch {
		s.err = s.flush()
	}
}

func (s *TraceStore) OnFault(instr *Instruction, err error) {
	if s.runID == "" || s.err != nil {
		return
	}
	if s.err = s.flush(); s.err != nil {
		return
	}
	kind := "unknown"
	var fault *CPUFault
	if errors.As(err, &fault) && fault.Kind() != nil {
		kind = fault.Kind().Error()
	}
	_, s.err = s.db.Exec(`INSERT INTO faults (run_id, pc, instr, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		s.runID, instr.Addr, instr.String(), kind, err.Error())
}

func (s *TraceStore) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("trace batch: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO steps (run_id, seq, pc, opcode, instr, next_pc, regs, depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("trace batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range s.pending {
		if _, err := stmt.Exec(s.runID, r.seq, r.pc, r.opcode, r.instr, r.nextPC, r.regs, r.depth); err != nil {
			tx.Rollback()
			return fmt.Errorf("trace step %d: %w", r.seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("trace batch commit: %w", err)
	}
	traceLog.Debugf("wrote %d trace rows", len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// EndRun flushes buffered steps and records the result of the current run.
func (s *TraceStore) EndRun(result RunResult, steps uint64) error {
	if s.runID == "" {
		return nil
	}
	if s.err == nil {
		s.err = s.flush()
	}
	if s.err != nil {
		return s.err
	}
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, result = ?, steps = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), result.String(), steps, s.runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// CountSteps returns how many steps are stored for a run.
func (s *TraceStore) CountSteps(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM steps WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// CountFaults returns how many faults are stored for a run.
func (s *TraceStore) CountFaults(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM faults WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// RunResultFor returns the result recorded by EndRun for a run.
func (s *TraceStore) RunResultFor(runID string) (string, error) {
	var result sql.NullString
	err := s.db.QueryRow(`SELECT result FROM runs WHERE id = ?`, runID).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("run %s not found", runID)
	}
	return result.String, err
}

// Close flushes anything still buffered and closes the database.
func (s *TraceStore) Close() error {
	var flushErr error
	if s.runID != "" && s.err == nil {
		flushErr = s.flush()
	}
	return errors.Join(flushErr, s.db.Close())
}
