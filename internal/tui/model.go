package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"chemi/internal/agent"
	"chemi/internal/domain"
)

// AgentPort is the TUI-facing subset of the chat pipeline.
type AgentPort interface {
	Handle(ctx context.Context, q agent.Query) (domain.Answer, error)
}

type chatLine struct {
	role string // "you" or "bot"
	text string
}

type answerMsg struct {
	ans domain.Answer
	err error
}

// Model is the Bubble Tea model for the terminal chat client.
type Model struct {
	agent    AgentPort
	input    textinput.Model
	viewport viewport.Model
	lines    []chatLine
	threadID string
	status   string
	waiting  bool
	ready    bool
}

// New creates a new chat model with a fresh conversation thread.
func New(a AgentPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Hỏi về một chất hóa học và nhấn Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		agent:    a,
		input:    ti,
		viewport: vp,
		threadID: uuid.NewString(),
		status:   "Sẵn sàng. Gõ câu hỏi để bắt đầu.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ch)
		m.viewport.SetContent(m.renderChat())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.lines = append(m.lines, chatLine{role: "you", text: q})
				m.input.SetValue("")
				m.waiting = true
				m.status = "Đang suy nghĩ..."
				m.viewport.SetContent(m.renderChat())
				m.viewport.GotoBottom()
				return m, m.ask(q)
			}
		}
	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Lỗi: " + msg.err.Error()
		} else {
			m.lines = append(m.lines, chatLine{role: "bot", text: renderAnswer(msg.ans)})
			m.status = "Sẵn sàng."
		}
		m.viewport.SetContent(m.renderChat())
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(text string) tea.Cmd {
	a, threadID := m.agent, m.threadID
	return func() tea.Msg {
		ans, err := a.Handle(context.Background(), agent.Query{Text: text, ThreadID: threadID})
		return answerMsg{ans: ans, err: err}
	}
}

// View renders the TUI layout and chat transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chemi — trợ lý hóa học")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderChat() string {
	if len(m.lines) == 0 {
		return "Chưa có tin nhắn nào."
	}
	var b strings.Builder
	for _, l := range m.lines {
		prefix := youStyle.Render("Bạn: ")
		if l.role == "bot" {
			prefix = botStyle.Render("Bot: ")
		}
		b.WriteString(prefix)
		b.WriteString(l.text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderAnswer flattens an answer for terminal display. Media comes out as
// references; quizzes print question and options inline.
func renderAnswer(ans domain.Answer) string {
	var parts []string
	if ans.Text != "" {
		parts = append(parts, ans.Text)
	}
	if ans.Quiz != nil {
		parts = append(parts, renderQuiz(ans.Quiz))
	}
	if ans.ImageURL != "" {
		parts = append(parts, "[hình ảnh] "+ans.ImageURL)
	}
	if ans.AudioURL != "" {
		parts = append(parts, "[âm thanh] "+ans.AudioURL)
	}
	return strings.Join(parts, "\n")
}

func renderQuiz(q *domain.Quiz) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s | mức %d] %s", q.Type, q.Level, q.QuestionText)
	for _, opt := range q.Options {
		b.WriteString("\n  ")
		b.WriteString(opt)
	}
	for i, item := range q.MatchItems {
		fmt.Fprintf(&b, "\n  %d) %s  ~  %s", i+1, item.Left, strings.Join(item.RightOptions, " / "))
	}
	return b.String()
}

var (
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	youStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
