package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/model"
)

const autosaveInterval = 15 * time.Second

// DocumentState is what the viewer remembers about one document.
type DocumentState struct {
	AnchorKey    string `json:"anchor_key"`
	AnchorOffset int    `json:"anchor_offset"`
	FocusKey     string `json:"focus_key"`
	FocusOffset  int    `json:"focus_offset"`
	ScrollY      int    `json:"scroll_y,omitempty"`
}

// Selection returns the remembered selection.
func (d DocumentState) Selection() model.SelectionState {
	return model.SelectionState{
		AnchorKey:    d.AnchorKey,
		AnchorOffset: d.AnchorOffset,
		FocusKey:     d.FocusKey,
		FocusOffset:  d.FocusOffset,
	}
}

type Session struct {
	Documents      map[string]DocumentState `json:"documents"`
	ActiveDocument string                   `json:"active_document,omitempty"`
	LastSaved      time.Time                `json:"last_saved"`
}

// Manager handles session persistence
type Manager struct {
	mu       sync.RWMutex
	session  Session
	path     string
	dirty    bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewManager loads the session at path and starts autosaving it every
// interval. A zero interval disables autosave.
func NewManager(path string, interval time.Duration) *Manager {
	m := &Manager{
		session:  Session{Documents: make(map[string]DocumentState)},
		path:     path,
		stopChan: make(chan struct{}),
	}
	m.load()
	if interval > 0 {
		go m.autosaveLoop(interval)
	}
	return m
}

// NewDefaultManager uses the XDG state directory.
func NewDefaultManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return NewManager(path, autosaveInterval), nil
}

func sessionPath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "qdraft", "session.json"), nil
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		logger.Named("session").Warnw("ignoring unreadable session", "path", m.path, "error", err)
		return
	}
	if session.Documents == nil {
		session.Documents = make(map[string]DocumentState)
	}
	m.session = session
}

// Save persists the session to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.session.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return err
	}

	m.dirty = false
	return nil
}

// ForceSave saves even if not dirty
func (m *Manager) ForceSave() error {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
	return m.Save()
}

func (m *Manager) Document(id string) (DocumentState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.session.Documents[id]
	return state, ok
}

// SetDocument records state for id and makes it the active document.
func (m *Manager) SetDocument(id string, state DocumentState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Documents[id] = state
	m.session.ActiveDocument = id
	m.dirty = true
}

// RememberSelection stores sel for id, keeping the scroll position.
func (m *Manager) RememberSelection(id string, sel model.SelectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.session.Documents[id]
	state.AnchorKey, state.AnchorOffset = sel.AnchorKey, sel.AnchorOffset
	state.FocusKey, state.FocusOffset = sel.FocusKey, sel.FocusOffset
	m.session.Documents[id] = state
	m.dirty = true
}

// RestoreSelection returns the remembered selection for id if both of its
// ends still fit cs, or a caret at the start of the first block.
func (m *Manager) RestoreSelection(id string, cs *model.ContentState) model.SelectionState {
	fallback := model.CollapsedAt(cs.FirstBlock().Key(), 0)
	state, ok := m.Document(id)
	if !ok {
		return fallback
	}
	anchor := cs.BlockForKey(state.AnchorKey)
	focus := cs.BlockForKey(state.FocusKey)
	if anchor == nil || focus == nil ||
		state.AnchorOffset < 0 || state.AnchorOffset > anchor.Length() ||
		state.FocusOffset < 0 || state.FocusOffset > focus.Length() {
		return fallback
	}
	return cs.NormalizeSelection(state.Selection())
}

func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.session.Documents[id]; !ok {
		return
	}
	delete(m.session.Documents, id)
	if m.session.ActiveDocument == id {
		m.session.ActiveDocument = ""
	}
	m.dirty = true
}

func (m *Manager) SetActiveDocument(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.ActiveDocument = id
	m.dirty = true
}

func (m *Manager) ActiveDocument() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.ActiveDocument
}

func (m *Manager) autosaveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Save(); err != nil {
				logger.Named("session").Warnw("autosave failed", "path", m.path, "error", err)
			}
		case <-m.stopChan:
			return
		}
	}
}

// Stop stops the autosave loop and saves final state
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	return m.ForceSave()
}
