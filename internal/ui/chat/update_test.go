// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privchat/privchat-tui/internal/config"
	"github.com/privchat/privchat-tui/internal/events"
	"github.com/privchat/privchat-tui/internal/model"
	"github.com/privchat/privchat-tui/internal/ollama"
	prog "github.com/privchat/privchat-tui/internal/progress"
	"github.com/privchat/privchat-tui/internal/tasks"
	"github.com/privchat/privchat-tui/internal/ui/styles"
)

// newTestModel builds a chat model in the ready state without running
// the boot sequence.
func newTestModel(t *testing.T, backendURL string) *Model {
	t.Helper()
	cfg := config.Default()
	ch := events.NewChannel()

	// A nonexistent executable keeps CLI operations from ever
	// touching a real local install.
	exe := filepath.Join(t.TempDir(), "fake-ollama")
	sup := tasks.NewSupervisor(ollama.NewBackend(exe, backendURL), ch, zerolog.Nop())

	input := textinput.New()
	input.Focus()

	return &Model{
		cfg:        cfg,
		theme:      styles.NewTheme(true),
		sup:        sup,
		ch:         ch,
		log:        zerolog.Nop(),
		conv:       model.NewConversation(cfg.RolePrompt(cfg.DefaultRole)),
		input:      input,
		spin:       spinner.New(),
		bar:        progress.New(),
		phase:      phaseReady,
		modelReady: true,
		width:      80,
		height:     24,
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSubmitSnapshotExcludesPlaceholder(t *testing.T) {
	got := make(chan ollama.ChatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got <- req
		w.Write([]byte(`{"message":{"content":"hi"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	m.input.SetValue("hello there")
	m.submit()

	require.Equal(t, phaseStreaming, m.phase)
	require.NotNil(t, m.chatOp)

	last := m.conv.Last()
	require.NotNil(t, last)
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.True(t, last.IsStreaming)

	select {
	case req := <-got:
		for _, msg := range req.Messages {
			assert.NotEmpty(t, msg.Content, "placeholder must not reach the backend")
		}
		assert.Equal(t, "user", req.Messages[len(req.Messages)-1].Role)
	case <-time.After(5 * time.Second):
		t.Fatal("backend never received the request")
	}
}

func TestSubmitRefusedWhileStreaming(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	m.phase = phaseStreaming
	before := m.conv.Len()

	m.input.SetValue("another one")
	m.submit()

	assert.Equal(t, before, m.conv.Len())
}

func TestChunkAndTerminalRouting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	m.input.SetValue("hi")
	m.submit()
	require.NotNil(t, m.chatOp)
	opID := m.chatOp.ID()
	defer m.chatOp.Cancel()

	m.applyEvent(events.ChunkEvent{TaskID: opID, Token: "Hel"})
	m.applyEvent(events.ChunkEvent{TaskID: opID, Token: "lo"})
	assert.Equal(t, "Hello", m.conv.Last().GetDisplayContent())

	// Chunks for an unknown task are dropped.
	m.applyEvent(events.ChunkEvent{TaskID: "stale-op", Token: "JUNK"})
	assert.Equal(t, "Hello", m.conv.Last().GetDisplayContent())

	m.applyEvent(events.TerminalEvent{TaskID: opID, Outcome: events.OutcomeSucceeded})
	assert.Equal(t, phaseReady, m.phase)
	assert.Nil(t, m.chatOp)
	assert.False(t, m.conv.Last().IsStreaming)
	assert.Equal(t, "Hello", m.conv.Last().Content)
}

func TestTerminalForSupersededOperationIsIgnored(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	m.applyEvent(events.TerminalEvent{TaskID: "long-gone", Outcome: events.OutcomeCancelled})
	assert.Equal(t, phaseReady, m.phase)
}

func TestProgressEventUpdatesPullSnapshot(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	op := m.sup.StartAssetPull("tinyllama")
	m.pullOp = op
	defer op.Cancel()

	m.applyEvent(events.ProgressEvent{
		TaskID:   op.ID(),
		Snapshot: prog.Snapshot{Percent: 40, DoneMB: 20, TotalMB: 50, HasSize: true},
	})
	assert.Equal(t, 40, m.pullSnap.Percent)
	assert.Contains(t, m.viewStatus(), "40%")
}

func TestCycleRoleResetsConversation(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	m.conv.AddUserMessage("hello")
	require.Greater(t, m.conv.Len(), 1)

	m.cycleRole()
	require.Equal(t, 1, m.conv.Len())
	assert.Equal(t, model.RoleSystem, m.conv.History()[0].Role)
	assert.Equal(t, m.currentRole().Prompt, m.conv.History()[0].Content)
}

func TestThemeToggle(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	require.True(t, m.theme.Dark)
	m.handleKey(keyMsg("ctrl+t"))
	assert.False(t, m.theme.Dark)
	assert.Contains(t, m.status, "day")
}

func TestFatalHealthCheck(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1")
	m.phase = phaseBooting
	m.healthOp = m.sup.StartHealthCheck()
	opID := m.healthOp.ID()
	m.healthOp.Cancel()

	m.applyEvent(events.TerminalEvent{
		TaskID:  opID,
		Outcome: events.OutcomeFailed,
		Message: "backend unavailable",
	})
	assert.Equal(t, phaseFatal, m.phase)
	assert.Contains(t, m.viewFatal(), "backend")
}
