// Package editor implements the mention-aware text editor core: a
// controlled text-plus-cursor model that detects an in-progress @token,
// debounces candidate searches, and rewrites text when a candidate is
// picked. Rendering belongs to the host; this package owns the state.
package editor

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jackiedee967/episoda-sub002/internal/directory"
	"github.com/jackiedee967/episoda-sub002/internal/mention"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long typing must pause before a candidate search
// is issued.
const DefaultDebounce = 300 * time.Millisecond

// State is a snapshot of the editor's controlled-input model.
type State struct {
	Text        string
	SelStart    int
	SelEnd      int
	SearchTerm  string
	TokenActive bool
	Suggesting  bool
}

// Options configures a new Editor.
type Options struct {
	ViewerID string
	// Debounce defaults to DefaultDebounce when zero.
	Debounce time.Duration
	// OnSuggestions, when set, is called off the caller's goroutine each
	// time a debounced search commits its results. Synchronous clearing
	// (space typed, candidate picked) is observable through State instead.
	OnSuggestions func([]models.CandidateUser)
}

// Editor owns one editing session. It is safe for concurrent use, but the
// expected host is a single UI event loop; nothing is shared between editor
// instances.
type Editor struct {
	dir           directory.DirectoryInterface
	viewerID      string
	debounce      time.Duration
	onSuggestions func([]models.CandidateUser)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	text        string
	selStart    int
	selEnd      int
	tokenStart  int // byte index of the active token's '@'; -1 when idle
	term        string
	suggestions []models.CandidateUser
	suggesting  bool
	timer       *time.Timer
	generation  uint64
	follows     []string
	closed      bool
}

// New creates an editor session and starts the one-time follow-set prefetch.
// The follow set is used purely for suggestion ranking; if the prefetch
// fails, ranking degrades to username order and typing is never blocked.
func New(dir directory.DirectoryInterface, opts Options) *Editor {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	e := &Editor{
		dir:           dir,
		viewerID:      opts.ViewerID,
		debounce:      debounce,
		onSuggestions: opts.OnSuggestions,
		tokenStart:    -1,
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	go e.loadFollows()

	return e
}

func (e *Editor) loadFollows() {
	follows, err := e.dir.Following(e.ctx, e.viewerID)
	if err != nil {
		logrus.Debugf("Follow set prefetch failed, ranking degrades to username order: %v", err)
		return
	}

	e.mu.Lock()
	if !e.closed {
		e.follows = follows
	}
	e.mu.Unlock()
}

// SetText applies a text change from the host input. The new cursor is
// derived from the previous cursor plus the length delta rather than from a
// selection event, because host selection events can lag the text change.
func (e *Editor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	cursor := e.selEnd + (len(text) - len(e.text))
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}

	e.text = text
	e.selStart, e.selEnd = cursor, cursor

	if text == "" {
		e.deactivateLocked()
		return
	}
	e.retokenizeLocked()
}

// SetSelection applies an independent selection change (tap-to-reposition).
// This is the only place the host's selection offsets are trusted.
func (e *Editor) SetSelection(start, end int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.selStart = clamp(start, 0, len(e.text))
	e.selEnd = clamp(end, 0, len(e.text))
	if e.selEnd < e.selStart {
		e.selStart, e.selEnd = e.selEnd, e.selStart
	}

	e.retokenizeLocked()
}

// Insert replaces the active partial token with "@username " and places the
// cursor after the inserted space. The token start captured when the token
// became active is used, not a recomputed one. The rewrite is a single state
// update; the returned text and cursor are what the host should render.
func (e *Editor) Insert(username string) (string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.tokenStart == -1 {
		return e.text, e.selEnd
	}

	before := e.text[:e.tokenStart]
	after := e.text[e.selEnd:]
	e.text = before + "@" + username + " " + after

	cursor := e.tokenStart + len(username) + 2 // "@" plus trailing space
	e.selStart, e.selEnd = cursor, cursor

	e.deactivateLocked()
	return e.text, cursor
}

// State returns a snapshot of the editor model.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Text:        e.text,
		SelStart:    e.selStart,
		SelEnd:      e.selEnd,
		SearchTerm:  e.term,
		TokenActive: e.tokenStart != -1,
		Suggesting:  e.suggesting,
	}
}

// Suggestions returns the current candidate list, empty unless a search has
// committed results for the active token.
func (e *Editor) Suggestions() []models.CandidateUser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CandidateUser(nil), e.suggestions...)
}

// Mentions returns the mentions currently present in the text.
func (e *Editor) Mentions() []string {
	e.mu.Lock()
	text := e.text
	e.mu.Unlock()
	return mention.Extract(text)
}

// Close ends the session. Pending debounce timers are cancelled and any
// in-flight search result is discarded; no state changes after Close.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTimerLocked()
	e.generation++
	e.mu.Unlock()

	e.cancel()
}

// retokenizeLocked recomputes the active token from the text and cursor: the
// token is the run between the last '@' before the cursor and the cursor,
// provided no whitespace intervenes.
func (e *Editor) retokenizeLocked() {
	before := e.text[:e.selEnd]
	at := strings.LastIndexByte(before, '@')
	if at == -1 {
		e.deactivateLocked()
		return
	}

	term := before[at+1:]
	if strings.IndexFunc(term, unicode.IsSpace) != -1 {
		e.deactivateLocked()
		return
	}

	wasActive := e.tokenStart != -1
	prevTerm := e.term
	e.tokenStart = at
	e.term = term

	if term == "" {
		// The '@' itself: token is active but there is nothing to search.
		e.stopTimerLocked()
		e.generation++
		e.suggestions = nil
		e.suggesting = false
		return
	}

	if !wasActive || term != prevTerm {
		e.scheduleSearchLocked()
	}
}

// deactivateLocked clears the token, cancels pending work, and invalidates
// any in-flight search so a late result cannot resurface.
func (e *Editor) deactivateLocked() {
	e.tokenStart = -1
	e.term = ""
	e.stopTimerLocked()
	e.generation++
	e.suggestions = nil
	e.suggesting = false
}

// scheduleSearchLocked restarts the debounce timer. Each scheduling bumps
// the generation; the timer captures its generation and term, and a result
// only commits if its generation is still current when it lands.
func (e *Editor) scheduleSearchLocked() {
	e.stopTimerLocked()
	e.generation++
	gen := e.generation
	term := e.term
	e.timer = time.AfterFunc(e.debounce, func() {
		e.search(gen, term)
	})
}

func (e *Editor) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Editor) search(gen uint64, term string) {
	e.mu.Lock()
	if e.closed || gen != e.generation {
		e.mu.Unlock()
		return
	}
	follows := e.follows
	viewerID := e.viewerID
	ctx := e.ctx
	e.mu.Unlock()

	users, err := e.dir.SearchCandidates(ctx, term, viewerID, follows)
	if err != nil {
		// Degraded lookup is never surfaced; the list just stays empty.
		logrus.Debugf("Mention candidate search failed for %q: %v", term, err)
		users = nil
	}

	e.mu.Lock()
	if e.closed || gen != e.generation {
		// The token changed or the editor closed while the search was in
		// flight; discard silently.
		e.mu.Unlock()
		return
	}
	e.suggestions = users
	e.suggesting = len(users) > 0
	callback := e.onSuggestions
	snapshot := append([]models.CandidateUser(nil), users...)
	e.mu.Unlock()

	if callback != nil {
		callback(snapshot)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
