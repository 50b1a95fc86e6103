package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Code    lipgloss.Style
}

// NewStyles builds styles bound to r so colour output follows r's profile.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  r.NewStyle().Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("4")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Code:    r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
