package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/keyfold/keyfold/internal/tree"
	"github.com/keyfold/keyfold/internal/validate"
)

// DefaultDebounce is the trailing-edge coalescing window for RequestSave.
const DefaultDebounce = 300 * time.Millisecond

// SaveState is the save pipeline's position for the in-flight save.
type SaveState string

const (
	StateIdle            SaveState = "idle"
	StatePendingDebounce SaveState = "pendingDebounce"
	StateEncoding        SaveState = "encoding"
	StateAwaitingChoice  SaveState = "awaitingConflictChoice"
	StateWriting         SaveState = "writing"
)

// Result reports the outcome of one save cycle.
type Result struct {
	// Err is set on encode or write failure, or when the sentinel tree was
	// submitted. In-memory state is untouched on failure.
	Err error

	// Conflict is true when an external modification was detected; Choice
	// then records how the prompter resolved it.
	Conflict bool
	Choice   Choice

	// Written is true when document bytes reached disk.
	Written bool

	// Errors is the validation result republished by this cycle.
	Errors []validate.Error
}

// Options configures a Store.
type Options struct {
	// Path is the config document location. Required.
	Path string

	// Validator is consulted on every load and save cycle. Defaults to the
	// standard rule set.
	Validator validate.Engine

	// Prompter resolves external-modification conflicts. A nil prompter
	// cancels conflicted saves, the safe default.
	Prompter Prompter

	// Debounce overrides the RequestSave coalescing window.
	Debounce time.Duration

	// OnSave receives the outcome of every asynchronous save cycle. Called
	// from the background worker; must not block for long.
	OnSave func(Result)
}

// Store keeps the in-memory configuration tree synchronized with the
// on-disk document. See the package comment for the concurrency model.
type Store struct {
	path      string
	validator validate.Engine
	prompter  Prompter
	debounce  time.Duration
	onSave    func(Result)

	// saveMu serializes save cycles so a follow-up requested during a
	// write runs strictly after the in-flight one.
	saveMu sync.Mutex

	mu       sync.Mutex
	root     *tree.Node
	checksum string // digest of bytes last read or written; "" before first load
	corrupt  bool   // last load failed to decode
	state    SaveState
	pending  *tree.Node
	timer    *time.Timer
	closed   bool
	errIndex map[string][]validate.Error
	errList  []validate.Error
}

// New creates a store for the document at opts.Path. No I/O happens until
// Load or a save.
func New(opts Options) *Store {
	s := &Store{
		path:      opts.Path,
		validator: opts.Validator,
		prompter:  opts.Prompter,
		debounce:  opts.Debounce,
		onSave:    opts.OnSave,
		state:     StateIdle,
		errIndex:  map[string][]validate.Error{},
	}
	if s.validator == nil {
		s.validator = validate.Rules{}
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	return s
}

// Load reads the document and replaces the in-memory tree wholesale.
//
// A missing file is first launch: the bundled default document is written
// out and returned. A malformed file is surfaced as a non-fatal error; the
// store installs a sentinel empty tree that it will refuse to persist, and
// leaves the file on disk untouched.
func (s *Store) Load() (*tree.Node, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.loadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}

	decodeErr := validate.CheckDocument(data)
	var root *tree.Node
	if decodeErr == nil {
		root, decodeErr = tree.Decode(data)
	}
	if decodeErr != nil {
		sentinel := tree.Sentinel()
		s.mu.Lock()
		s.root = sentinel
		s.checksum = ""
		s.corrupt = true
		s.errIndex = map[string][]validate.Error{}
		s.errList = nil
		s.mu.Unlock()
		return sentinel, &Error{
			Code:    ErrCodeMalformedDocument,
			Message: fmt.Sprintf("config %s is not a valid document", s.path),
			Err:     decodeErr,
		}
	}

	errs := s.validator.Validate(root)
	s.mu.Lock()
	s.root = root
	s.checksum = digest(data)
	s.corrupt = false
	s.publishLocked(errs)
	s.mu.Unlock()

	slog.Info("config loaded", "path", s.path, "validationErrors", len(errs))
	return root, nil
}

func (s *Store) loadDefault() (*tree.Node, error) {
	root := DefaultTree()
	data, err := tree.Encode(root)
	if err != nil {
		return nil, &Error{Code: ErrCodeEncodingFailure, Message: "encode default document", Err: err}
	}
	if err := writeFile(s.path, data); err != nil {
		return nil, &Error{Code: ErrCodeWriteFailure, Message: "write default document", Err: err}
	}

	errs := s.validator.Validate(root)
	s.mu.Lock()
	s.root = root
	s.checksum = digest(data)
	s.corrupt = false
	s.publishLocked(errs)
	s.mu.Unlock()

	slog.Info("config created from default document", "path", s.path)
	return root, nil
}

// Save synchronously validates, conflict-checks, and writes the given tree.
// Meant for startup and explicit user-triggered saves; UI edits should use
// RequestSave.
func (s *Store) Save(root *tree.Node) Result {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.doSave(root.Clone())
}

// RequestSave schedules a debounced asynchronous save of the given tree and
// returns immediately. Repeated calls within the debounce window collapse
// into a single write of the latest submitted tree; the window restarts on
// every call. The outcome is delivered to the OnSave callback.
func (s *Store) RequestSave(root *tree.Node) {
	snap := root.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = snap
	if s.timer == nil {
		s.state = StatePendingDebounce
		s.timer = time.AfterFunc(s.debounce, s.flushPending)
	} else {
		// Trailing-edge debounce: a new edit restarts the window.
		s.timer.Reset(s.debounce)
	}
}

// flushPending runs on the debounce timer goroutine.
func (s *Store) flushPending() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.timer = nil
	if snap == nil || s.closed {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.saveMu.Lock()
	res := s.doSave(snap)
	s.saveMu.Unlock()

	if s.onSave != nil {
		s.onSave(res)
	}
}

// doSave is the single save cycle. Caller holds saveMu. Every exit path
// settles the pipeline state: back to Idle, or PendingDebounce when a newer
// edit scheduled a follow-up while this cycle ran.
func (s *Store) doSave(snap *tree.Node) Result {
	defer func() {
		s.mu.Lock()
		if s.timer != nil {
			s.state = StatePendingDebounce
		} else {
			s.state = StateIdle
		}
		s.mu.Unlock()
	}()

	s.mu.Lock()
	if s.corrupt && snap.IsSentinel() {
		s.mu.Unlock()
		return Result{Err: &Error{
			Code:    ErrCodeSentinelTree,
			Message: "refusing to overwrite the config file with the post-corruption sentinel",
		}}
	}
	s.state = StateEncoding
	s.mu.Unlock()

	data, err := tree.Encode(snap)
	if err != nil {
		return Result{Err: &Error{Code: ErrCodeEncodingFailure, Message: "encode document", Err: err}}
	}

	errs := s.validator.Validate(snap)
	res := Result{Errors: errs}

	// Conflict check against the bytes currently on disk, re-read after the
	// debounce fired to keep the race window small. An unreadable file
	// degrades to "write anyway" rather than blocking the pipeline.
	s.mu.Lock()
	last := s.checksum
	s.mu.Unlock()
	if last != "" {
		diskData, readErr := os.ReadFile(s.path)
		switch {
		case errors.Is(readErr, fs.ErrNotExist):
			slog.Warn("config file disappeared; writing anyway", "path", s.path)
		case readErr != nil:
			slog.Warn("cannot read config for conflict check; writing anyway", "path", s.path, "error", readErr)
		default:
			if diskSum := digest(diskData); diskSum != last {
				res.Conflict = true
				res.Choice = s.resolveConflict(Conflict{
					Path:         s.path,
					LastChecksum: last,
					DiskChecksum: diskSum,
				})
				switch res.Choice {
				case ChoiceCancel:
					return res
				case ChoiceReload:
					if _, loadErr := s.Load(); loadErr != nil {
						res.Err = loadErr
					}
					return res
				case ChoiceOverwrite:
					// proceed
				}
			}
		}
	}

	s.mu.Lock()
	s.state = StateWriting
	s.mu.Unlock()

	if err := writeFile(s.path, data); err != nil {
		return Result{Err: &Error{Code: ErrCodeWriteFailure, Message: fmt.Sprintf("write config %s", s.path), Err: err}, Errors: errs, Conflict: res.Conflict, Choice: res.Choice}
	}

	s.mu.Lock()
	s.root = snap
	s.checksum = digest(data)
	s.corrupt = false
	s.publishLocked(errs)
	s.mu.Unlock()

	res.Written = true
	return res
}

func (s *Store) resolveConflict(c Conflict) Choice {
	s.mu.Lock()
	s.state = StateAwaitingChoice
	prompter := s.prompter
	s.mu.Unlock()

	if prompter == nil {
		return ChoiceCancel
	}
	choice := prompter.Resolve(c)
	switch choice {
	case ChoiceOverwrite, ChoiceCancel, ChoiceReload:
		return choice
	default:
		slog.Warn("prompter returned unknown conflict choice; cancelling save", "choice", choice)
		return ChoiceCancel
	}
}

// ValidateNow runs the validator and republishes results without writing.
func (s *Store) ValidateNow(root *tree.Node) []validate.Error {
	errs := s.validator.Validate(root)
	s.mu.Lock()
	s.publishLocked(errs)
	s.mu.Unlock()
	return errs
}

// publishLocked rebuilds the path→error index. Caller holds mu.
func (s *Store) publishLocked(errs []validate.Error) {
	idx := make(map[string][]validate.Error, len(errs))
	for _, e := range errs {
		key := e.Path.String()
		idx[key] = append(idx[key], e)
	}
	s.errIndex = idx
	s.errList = errs
}

// ErrorsAt returns the validation errors published for the node at p.
// Lookup is O(1) by path string.
func (s *Store) ErrorsAt(p tree.Path) []validate.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errIndex[p.String()]
}

// Errors returns all currently published validation errors.
func (s *Store) Errors() []validate.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]validate.Error(nil), s.errList...)
}

// Tree returns the authoritative in-memory tree.
func (s *Store) Tree() *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Checksum returns the digest of the bytes last read or written, or "".
func (s *Store) Checksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksum
}

// State returns the save pipeline's current position.
func (s *Store) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels any pending debounce and flushes the last submitted tree
// synchronously. The store accepts no further RequestSave calls.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snap := s.pending
	s.pending = nil
	s.state = StateIdle
	s.mu.Unlock()

	if snap == nil {
		return nil
	}
	s.saveMu.Lock()
	res := s.doSave(snap)
	s.saveMu.Unlock()
	if s.onSave != nil {
		s.onSave(res)
	}
	return res.Err
}

// digest is the conflict-detection checksum: SHA-256 over the exact file
// bytes, hex encoded.
func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
