// main.go - Main entry point for the Word Engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/tliron/kutil/util"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const (
	exitHalted     = 0
	exitFault      = 1
	exitUsage      = 2
	exitBreakpoint = 3
	exitStopped    = 130
)

func boilerPlate(w io.Writer) {
	fmt.Fprintln(w, "\n\033[38;2;255;20;147mW O R D   E N G I N E\033[0m  \033[38;2;255;140;147mW16 word machine\033[0m")
	fmt.Fprintln(w, "(c) 2024 - 2026 Zayn Otley")
	fmt.Fprintln(w, "https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Fprintln(w, "License: GPLv3 or later")
	fmt.Fprintln(w)
}

// listFlag collects a repeatable flag.
type listFlag []string

func (b *listFlag) String() string {
	return strings.Join(*b, ",")
}

func (b *listFlag) Set(s string) error {
	*b = append(*b, s)
	return nil
}

// main exits through util.Exit so the log file is closed on the way out.
func main() {
	util.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// runMain is main without os.Exit, returning the process exit code.
func runMain(args []string, stdin, stdout, stderr *os.File) int {
	var (
		configPath  string
		debug       bool
		verbosity   int
		logFile     string
		inputScript string
		noEcho      bool
		traceDB     string
		snapIn      string
		snapOut     string
		breaks      listFlag
		breakIf     string
		sets        listFlag
		patches     listFlag
		features    bool
	)

	flagSet := flag.NewFlagSet("word_engine", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&configPath, "config", "", "load configuration from a TOML file")
	flagSet.BoolVar(&debug, "debug", false, "trace every instruction")
	flagSet.IntVar(&verbosity, "v", 0, "log verbosity (0 notice, 1 info, 2 debug)")
	flagSet.StringVar(&logFile, "log", "", "log to file instead of stderr")
	flagSet.StringVar(&inputScript, "input", "", "replay input lines from file before reading the terminal")
	flagSet.BoolVar(&noEcho, "no-echo", false, "do not echo replayed input lines")
	flagSet.StringVar(&traceDB, "trace-db", "", "record executed instructions to a SQLite database")
	flagSet.StringVar(&snapIn, "snapshot-in", "", "restore machine state instead of loading a program")
	flagSet.StringVar(&snapOut, "snapshot-out", "", "save machine state on stop, breakpoint or fault")
	flagSet.Var(&breaks, "break", "breakpoint address, hex ($/0x) or decimal (repeatable)")
	flagSet.StringVar(&breakIf, "break-if", "", `condition for all breakpoints, e.g. "R7!=0"`)
	flagSet.Var(&sets, "set", `set a register after loading, e.g. "R7=25734" (repeatable)`)
	flagSet.Var(&patches, "patch", `store words after loading, e.g. "$0209=21,21" (repeatable)`)
	flagSet.BoolVar(&features, "features", false, "list compiled features and exit")

	flagSet.Usage = func() {
		flagSet.SetOutput(stderr)
		fmt.Fprintln(stderr, "Usage: ./word_engine [flags] program.bin")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
			return exitHalted
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		flagSet.Usage()
		return exitUsage
	}

	if features {
		printFeatures(stdout)
		return exitHalted
	}

	cfg := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		cfg = loaded
	}

	// Explicit flags override the file.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Log.Debug = debug
		case "v":
			cfg.Log.Verbosity = verbosity
		case "log":
			cfg.Log.File = logFile
		case "input":
			cfg.Input.Script = inputScript
		case "no-echo":
			cfg.Input.Echo = !noEcho
		case "trace-db":
			cfg.Trace.Database = traceDB
		case "snapshot-in":
			cfg.Snapshot.Load = snapIn
		case "snapshot-out":
			cfg.Snapshot.Save = snapOut
		case "break":
			cfg.Debug.Breakpoints = breaks
		case "break-if":
			cfg.Debug.Condition = breakIf
		case "set":
			cfg.Debug.Set = sets
		case "patch":
			cfg.Debug.Patch = patches
		}
	})
	if flagSet.NArg() > 1 {
		fmt.Fprintln(stderr, "Error: only one program file may be given")
		flagSet.Usage()
		return exitUsage
	}
	if flagSet.NArg() == 1 {
		cfg.Program = flagSet.Arg(0)
	}
	if cfg.Program == "" && cfg.Snapshot.Load == "" {
		fmt.Fprintln(stderr, "Error: no program file given")
		flagSet.Usage()
		return exitUsage
	}

	configureLogging(cfg.Log.Verbosity, cfg.Log.File)

	if term.IsTerminal(int(stderr.Fd())) {
		boilerPlate(stderr)
	}

	return runEngine(cfg, stdin, stdout, stderr)
}

// runEngine builds the machine described by cfg, runs it to completion and
// reports the outcome.
func runEngine(cfg *EngineConfig, stdin, stdout, stderr *os.File) int {
	var cond *BreakpointCondition
	if cfg.Debug.Condition != "" {
		c, err := ParseCondition(cfg.Debug.Condition)
		if err != nil {
			fmt.Fprintf(stderr, "Error: break condition: %v\n", err)
			return exitUsage
		}
		cond = c
	}
	breakAddrs := make([]uint64, 0, len(cfg.Debug.Breakpoints))
	for _, s := range cfg.Debug.Breakpoints {
		addr, ok := ParseAddress(s)
		if !ok || addr >= W16_ADDRESS_SPACE {
			fmt.Fprintf(stderr, "Error: invalid breakpoint address %q\n", s)
			return exitUsage
		}
		breakAddrs = append(breakAddrs, addr)
	}
	type registerSet struct {
		name  string
		value uint64
	}
	var regSets []registerSet
	for _, s := range cfg.Debug.Set {
		name, value, err := ParseRegisterAssignment(s)
		if err != nil {
			fmt.Fprintf(stderr, "Error: set: %v\n", err)
			return exitUsage
		}
		regSets = append(regSets, registerSet{name, value})
	}
	type patch struct {
		addr  uint64
		words []uint16
	}
	var patchList []patch
	for _, s := range cfg.Debug.Patch {
		addr, words, err := ParsePatch(s)
		if err != nil {
			fmt.Fprintf(stderr, "Error: patch: %v\n", err)
			return exitUsage
		}
		patchList = append(patchList, patch{addr, words})
	}

	console, release, err := OpenTerminal(stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFault
	}
	releaseOnce := func() {
		if release != nil {
			release()
			release = nil
		}
	}
	defer releaseOnce()

	var termCh TerminalChannel = console
	if cfg.Input.Script != "" {
		script, err := OpenInputScript(cfg.Input.Script, console, cfg.Input.Echo)
		if err != nil {
			releaseOnce()
			fmt.Fprintf(stderr, "Error: input script: %v\n", err)
			return exitFault
		}
		termCh = script
	}

	opts := []CPUOption{WithDebug(cfg.Log.Debug)}
	var store *TraceStore
	if cfg.Trace.Database != "" {
		store, err = OpenTraceStore(cfg.Trace.Database, cfg.Trace.Batch)
		if err != nil {
			releaseOnce()
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFault
		}
		defer func() {
			if err := store.Close(); err != nil {
				traceLog.Errorf("closing trace database: %v", err)
			}
		}()
		opts = append(opts, WithTracer(store))
	}

	cpu := NewCPUW16(termCh, opts...)
	source := cfg.Program
	if cfg.Snapshot.Load != "" {
		source = cfg.Snapshot.Load
		snap, err := LoadSnapshotFromFile(cfg.Snapshot.Load)
		if err == nil {
			err = RestoreSnapshot(cpu, snap)
		}
		if err != nil {
			releaseOnce()
			fmt.Fprintf(stderr, "Error: snapshot: %v\n", err)
			return exitFault
		}
	} else if err := cpu.LoadProgram(cfg.Program); err != nil {
		releaseOnce()
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFault
	}

	dbg := NewDebugW16(cpu)
	for _, p := range patchList {
		dbg.WriteMemory(p.addr, p.words)
		mainLog.Infof("patched %d words at %04X", len(p.words), p.addr)
	}
	for _, rs := range regSets {
		if !dbg.SetRegister(rs.name, rs.value) {
			releaseOnce()
			fmt.Fprintf(stderr, "Error: set: cannot set %s to %d\n", rs.name, rs.value)
			return exitUsage
		}
	}
	for _, addr := range breakAddrs {
		if cond == nil {
			dbg.SetBreakpoint(addr)
		} else {
			dbg.SetConditionalBreakpoint(addr, cond)
		}
	}
	if bps := dbg.ListBreakpoints(); len(bps) > 0 {
		mainLog.Infof("%s breakpoints at %s", dbg.CPUName(), formatAddressList(bps))
	}

	runID := uuid.NewString()
	if store != nil {
		if runID, err = store.BeginRun(source); err != nil {
			releaseOnce()
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFault
		}
	}
	status := startRunStatus(source, runID, cpu.InstructionCount)
	mainLog.Infof("run %s: %s", runID, source)

	result, runErr := runWithSignals(cpu, dbg)

	status.finish(result, cpu.InstructionCount)
	if store != nil {
		if err := store.EndRun(result, cpu.InstructionCount); err != nil {
			traceLog.Errorf("recording run result: %v", err)
		}
	}
	if err := FlushTerminal(termCh); err != nil {
		terminalLog.Errorf("flushing output: %v", err)
	}
	releaseOnce()
	mainLog.Info(status.String())

	if result != RunHalted && cfg.Snapshot.Save != "" {
		if err := SaveSnapshotToFile(TakeSnapshot(cpu), cfg.Snapshot.Save); err != nil {
			fmt.Fprintf(stderr, "Error: snapshot: %v\n", err)
		}
	}

	reportRun(stderr, dbg, result, runErr)
	return exitCodeFor(result, runErr)
}

// runWithSignals runs the CPU on one goroutine while another turns SIGINT or
// SIGTERM into a Freeze request.
func runWithSignals(cpu *CPUW16, ctl DebuggableCPU) (RunResult, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		result RunResult
		runErr error
	)
	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		result, runErr = cpu.Run()
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			if cpu.IsRunning() {
				mainLog.Notice("interrupt, stopping after the current instruction")
			}
			ctl.Freeze()
			// A second interrupt gets the default behaviour.
			stop()
		case <-done:
		}
		return nil
	})
	_ = g.Wait()
	return result, runErr
}

// reportRun describes anything but a clean halt on w.
func reportRun(w io.Writer, dbg *DebugW16, result RunResult, runErr error) {
	switch result {
	case RunHalted:
		return
	case RunFaulted:
		fmt.Fprintf(w, "\nFault: %v\n", runErr)
	case RunBreakpoint:
		if hit, ok := dbg.LastHit(); ok {
			fmt.Fprintf(w, "\nBreakpoint at %04X (hit %d)\n", hit.Address, hit.HitCount)
		}
	case RunStopped:
		fmt.Fprintf(w, "\nStopped at PC=%04X\n", dbg.GetPC())
	}

	var sb strings.Builder
	for i, r := range dbg.GetRegisters() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%04X", r.Name, r.Value)
	}
	fmt.Fprintln(w, sb.String())
	fmt.Fprintln(w, "Stack (top first):")
	fmt.Fprint(w, formatBacktrace(backtrace(dbg, 16)))
}

func formatAddressList(addrs []uint64) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("%04X", a)
	}
	return strings.Join(parts, " ")
}

func exitCodeFor(result RunResult, runErr error) int {
	switch result {
	case RunHalted:
		return exitHalted
	case RunBreakpoint:
		return exitBreakpoint
	case RunStopped:
		return exitStopped
	}
	if errors.Is(runErr, ErrInputClosed) {
		return exitStopped
	}
	return exitFault
}
