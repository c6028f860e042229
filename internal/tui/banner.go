package tui

import "github.com/charmbracelet/lipgloss"

// bannerStyle uses an adaptive color scheme so it reads on light and dark
// terminals.
var bannerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#EEEEEE"}).
	Bold(true).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 2)

// BannerTitle is shown above the configuration wizard.
const BannerTitle = "Interactive Configuration Wizard for Quantum Migration CLI Scanner"

// Banner renders the wizard title box.
func Banner() string {
	return bannerStyle.Render(BannerTitle)
}
