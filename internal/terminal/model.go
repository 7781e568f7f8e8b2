package terminal

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/taskvfs/internal/device"
	"github.com/lucasb-eyer/go-colorful"
)

// upperHalfBlock paints the upper pixel with the foreground color and the
// lower pixel with the background color.
const upperHalfBlock = "▀"

const maxLogLines = 100

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// helpStyle defines the style for the help line.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// TeaModel is the [tea.Model] rendering the screen and collecting the
// pointer events of a [Terminal].
type TeaModel struct {
	term *Terminal

	// Resolution of the screen in pixels.
	width  int
	height int

	// Size of the terminal in cells.
	cols int
	rows int

	frame []color.RGBA

	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel] for a screen of width by
// height pixels.
//
//nolint:mnd
func NewTeaModel(term *Terminal, width, height int) TeaModel {
	return TeaModel{
		term:         term,
		width:        width,
		height:       height,
		frame:        make([]color.RGBA, width*height),
		logsViewport: viewport.New(width, 5),
		logs:         make([]string, 0, maxLogLines),
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.EnableMouseAllMotion,
	)
}

// canvasRows returns the number of cell rows the screen occupies.
func (m TeaModel) canvasRows() int {
	return (m.height + 1) / 2 //nolint:mnd
}

// Update is the principal message handling method of the model.
//
//nolint:ireturn,mnd
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.term.push(device.QuitEvent{})

			return m, tea.Quit
		}

	case tea.MouseMsg:
		if event, ok := m.translateMouse(msg); ok {
			m.term.push(event)
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height

		// Whatever is left below the screen holds the logs.
		m.logsViewport.Width = max(m.cols-2, 1)
		m.logsViewport.Height = max(m.rows-m.canvasRows()-4, 1)
		m.refreshLogs()

		if !m.ready {
			m.ready = true
			m.term.Ready.Store(true)
		}

	case frameMsg:
		m.frame = m.term.Frame()

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))
		m.refreshLogs()
	}

	m.logsViewport, cmd = m.logsViewport.Update(msg)

	return m, cmd
}

// translateMouse converts a mouse message into a pointer event in screen
// pixels. Presses and motion outside of the screen are dropped, releases
// are always reported.
func (m TeaModel) translateMouse(msg tea.MouseMsg) (device.Event, bool) {
	x, y := msg.X, msg.Y*2 //nolint:mnd
	inside := x >= 0 && x < m.width && y >= 0 && y < m.height

	switch msg.Action {
	case tea.MouseActionPress:
		button, ok := mouseButton(msg.Button)
		if !ok || !inside {
			return nil, false
		}

		return device.MouseButtonDown{WindowID: WindowID, Button: button, X: x, Y: y}, true

	case tea.MouseActionRelease:
		button, ok := mouseButton(msg.Button)
		if !ok {
			// Some encodings do not report which button was released.
			button = device.ButtonLeft
		}

		return device.MouseButtonUp{WindowID: WindowID, Button: button, X: x, Y: y}, true

	case tea.MouseActionMotion:
		if !inside {
			return nil, false
		}

		return device.MouseMotion{WindowID: WindowID, LeftPressed: msg.Button == tea.MouseButtonLeft, X: x, Y: y}, true
	}

	return nil, false
}

func mouseButton(button tea.MouseButton) (device.MouseButton, bool) {
	switch button { //nolint:exhaustive
	case tea.MouseButtonLeft:
		return device.ButtonLeft, true
	case tea.MouseButtonMiddle:
		return device.ButtonMiddle, true
	case tea.MouseButtonRight:
		return device.ButtonRight, true
	default:
		return 0, false
	}
}

func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Waiting for the terminal size..."
	}

	logsSection := borderStyle.
		Width(max(m.cols-2, 1)). //nolint:mnd
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(max(m.cols-2, 1)).Render("Logs"), //nolint:mnd
				m.logsViewport.View(),
			),
		)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderScreen(),
		logsSection,
		helpStyle.Render("q / ctrl+c: quit"),
	)
}

// renderScreen draws the frame, merging runs of identical cells into one
// styled segment.
func (m TeaModel) renderScreen() string {
	var s strings.Builder

	for row := range m.canvasRows() {
		var runTop, runBottom color.RGBA
		runLength := 0

		for x := range m.width {
			top := m.pixel(x, row*2)      //nolint:mnd
			bottom := m.pixel(x, row*2+1) //nolint:mnd

			if runLength > 0 && (top != runTop || bottom != runBottom) {
				s.WriteString(cellStyle(runTop, runBottom).Render(strings.Repeat(upperHalfBlock, runLength)))
				runLength = 0
			}

			runTop, runBottom = top, bottom
			runLength++
		}

		if runLength > 0 {
			s.WriteString(cellStyle(runTop, runBottom).Render(strings.Repeat(upperHalfBlock, runLength)))
		}

		if row < m.canvasRows()-1 {
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m TeaModel) pixel(x, y int) color.RGBA {
	if y >= m.height {
		return color.RGBA{A: 0xFF}
	}

	return m.frame[y*m.width+x]
}

func cellStyle(top, bottom color.RGBA) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(hex(top))).
		Background(lipgloss.Color(hex(bottom)))
}

func hex(c color.RGBA) string {
	converted, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}

	return converted.Hex()
}
