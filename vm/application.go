package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"go.creack.net/evm/op"
)

// InputFile backs the read and write instructions.
type InputFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type Config struct {
	InputFileName string    // Opened read/write, created if needed, on first use.
	InputFile     InputFile // Used instead of InputFileName when set. Not closed.

	Stdin  io.Reader // consoleRead.
	Stdout io.Writer // consoleWrite.
	Stderr io.Writer // Thread faults.

	Tracer Tracer // Optional.
	Gate   *Gate  // Optional.
}

// Application owns the program, the data memory, the threads and the locks.
type Application struct {
	cfg    Config
	logger commonlog.Logger
	tracer Tracer

	program *BitBuffer
	data    *Memory

	threadsMu sync.RWMutex
	threads   []*Thread // Index is the thread id.
	stopping  bool

	locksMu sync.Mutex
	locks   map[uint64]chan struct{}

	ioMu    sync.Mutex // Console output and input file.
	stdinMu sync.Mutex
	stdin   *bufio.Reader

	fileMu   sync.Mutex
	file     InputFile
	ownsFile bool

	faultsMu sync.Mutex
	faults   []*ThreadError
}

// New creates an application from a validated EVM file.
func New(cfg Config, f *op.File) (*Application, error) {
	return NewFromSections(cfg, f.Code(), f.InitialData(), f.Header.DataSize)
}

// NewFromSections creates an application from raw sections.
func NewFromSections(cfg Config, code, initialData []byte, dataSize uint32) (*Application, error) {
	program := NewBitBuffer(code)
	if _, err := program.Size(); err != nil {
		return nil, err
	}
	data, err := NewMemory(dataSize, initialData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", op.ErrFileParse, err)
	}

	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	return &Application{
		cfg:     cfg,
		logger:  commonlog.GetLogger("evm.vm"),
		tracer:  cfg.Tracer,
		program: program,
		data:    data,
		locks:   map[uint64]chan struct{}{},
		stdin:   bufio.NewReader(cfg.Stdin),
		file:    cfg.InputFile,
	}, nil
}

// Run starts the main thread at address 0.
func (a *Application) Run() error {
	a.threadsMu.Lock()
	if len(a.threads) != 0 {
		a.threadsMu.Unlock()
		return errors.New("application already running")
	}
	t := newThread(a, 0, 0, [op.RegisterCount]uint64{})
	a.threads = append(a.threads, t)
	a.threadsMu.Unlock()

	a.logger.Infof("running %d bytes of code with %d bytes of data", a.program.Len(), a.data.Size())
	t.start()
	return nil
}

// Wait blocks until the main thread terminates, then terminates and joins
// all the other threads. Returns the main thread fault.
func (a *Application) Wait() error {
	main, err := a.Thread(0)
	if err != nil {
		return fmt.Errorf("application not running: %w", err)
	}
	mainErr := main.Join()

	a.Terminate()
	for _, t := range a.Threads() {
		_ = t.Join() // Faults are reported by Faults().
	}
	a.logger.Infof("all threads terminated, %d fault(s)", len(a.Faults()))
	return mainErr
}

// Terminate stops every thread and prevents new ones from being created.
func (a *Application) Terminate() {
	a.threadsMu.Lock()
	a.stopping = true
	a.threadsMu.Unlock()
	for _, t := range a.Threads() {
		t.Terminate()
	}
}

// Close releases the input file if the application opened it.
func (a *Application) Close() error {
	a.fileMu.Lock()
	defer a.fileMu.Unlock()
	if a.file == nil || !a.ownsFile {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// SpawnThread starts a thread at addr with a copy of the caller registers.
// The id is the index in the thread table.
func (a *Application) SpawnThread(caller *Thread, addr uint32) (uint64, error) {
	var registers [op.RegisterCount]uint64
	if caller != nil {
		registers = caller.registers
	}

	a.threadsMu.Lock()
	if a.stopping {
		a.threadsMu.Unlock()
		return 0, errTerminated
	}
	id := uint64(len(a.threads))
	t := newThread(a, id, addr, registers)
	a.threads = append(a.threads, t)
	a.threadsMu.Unlock()

	if caller != nil {
		a.logger.Debugf("thread %d created thread %d at %d", caller.ID, id, addr)
	}
	t.start()
	return id, nil
}

// Thread looks up a thread by id.
func (a *Application) Thread(id uint64) (*Thread, error) {
	a.threadsMu.RLock()
	defer a.threadsMu.RUnlock()
	if id >= uint64(len(a.threads)) {
		return nil, fmt.Errorf("%w: Thread %d doesn't exist", ErrUnknownThread, id)
	}
	return a.threads[id], nil
}

// Threads returns a copy of the thread table.
func (a *Application) Threads() []*Thread {
	a.threadsMu.RLock()
	defer a.threadsMu.RUnlock()
	return append([]*Thread(nil), a.threads...)
}

// JoinThread blocks the caller until thread id terminates.
func (a *Application) JoinThread(caller *Thread, id uint64) error {
	target, err := a.Thread(id)
	if err != nil {
		return err
	}
	var stop <-chan struct{}
	if caller != nil {
		if caller == target {
			return fmt.Errorf("%w: %d", ErrSelfJoin, id)
		}
		stop = caller.stop
	}
	select {
	case <-target.done:
		return nil
	case <-stop:
		return errTerminated
	}
}

// lock returns the named lock, created on first use.
func (a *Application) lock(id uint64, create bool) (chan struct{}, bool) {
	a.locksMu.Lock()
	defer a.locksMu.Unlock()
	l, ok := a.locks[id]
	if !ok && create {
		l = make(chan struct{}, 1)
		a.locks[id] = l
		a.logger.Debugf("created lock %d", id)
		ok = true
	}
	return l, ok
}

// Lock blocks until the named lock is acquired.
func (a *Application) Lock(caller *Thread, id uint64) error {
	l, _ := a.lock(id, true)
	var stop <-chan struct{}
	if caller != nil {
		stop = caller.stop
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-stop:
		return errTerminated
	}
}

// Unlock releases the named lock. Fails if it was never created or is not held.
func (a *Application) Unlock(id uint64) error {
	l, ok := a.lock(id, false)
	if !ok {
		return fmt.Errorf("%w: Lock with id %d doesn't exist", ErrBadLockID, id)
	}
	select {
	case <-l:
		return nil
	default:
		return fmt.Errorf("%w: Lock with id %d is not locked", ErrBadLockID, id)
	}
}

func (a *Application) DataMemory() *Memory { return a.data }

func (a *Application) ProgramMemory() *BitBuffer { return a.program }

// InputFile returns the file used by read and write, opening it if needed.
func (a *Application) InputFile() (InputFile, error) {
	a.fileMu.Lock()
	defer a.fileMu.Unlock()
	if a.file != nil {
		return a.file, nil
	}
	name := a.cfg.InputFileName
	if name == "" {
		return nil, fmt.Errorf("%w: no input file configured", ErrInputFile)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: Input file %s error: %w", ErrInputFile, name, err)
	}
	a.logger.Debugf("opened input file %q", name)
	a.file = f
	a.ownsFile = true
	return f, nil
}

// Faults returns the faults of all the threads so far.
func (a *Application) Faults() []*ThreadError {
	a.faultsMu.Lock()
	defer a.faultsMu.Unlock()
	return append([]*ThreadError(nil), a.faults...)
}

func (a *Application) fault(terr *ThreadError) {
	a.faultsMu.Lock()
	a.faults = append(a.faults, terr)
	a.faultsMu.Unlock()

	a.logger.Errorf("%s", terr)
	a.ioMu.Lock()
	_, _ = fmt.Fprintln(a.cfg.Stderr, terr.Error()) // Best effort.
	a.ioMu.Unlock()
	a.emit(NewEvent(EventFault, terr.ThreadID, terr.PC, terr.Err.Error()))
}

func (a *Application) emit(ev Event) {
	if a.tracer != nil {
		a.tracer.Trace(ev)
	}
}
