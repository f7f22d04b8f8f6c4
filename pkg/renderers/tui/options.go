package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// Theme styles the text view of the document.
type Theme struct {
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Notice  lipgloss.Style
	Trigger lipgloss.Style
	Input   lipgloss.Style
}

// DefaultTheme returns the colored theme used on terminals.
func DefaultTheme() Theme {
	return Theme{
		Heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Notice:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214")),
		Trigger: lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("81")),
		Input:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")),
	}
}

// PlainTheme returns a theme that adds no styling.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{Heading: plain, Muted: plain, Error: plain, Notice: plain, Trigger: plain, Input: plain}
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutput sets where the document view is printed.
func WithOutput(out io.Writer) Option {
	return func(s *Session) {
		if out != nil {
			s.out = out
		}
	}
}

// WithTheme applies view styles.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithFileReader replaces how attachment paths are read.
func WithFileReader(read func(path string) ([]byte, error)) Option {
	return func(s *Session) {
		if read != nil {
			s.readFile = read
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}
