package tui

// Color constants for the hourly terminal theme
const (
	// Base Colors
	ColorAppBackground  = ""        // Use terminal default background
	ColorCardBackground = "#1B1530" // Dark purple
	ColorBorder         = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Field labels, user input, titles
	ColorSecondaryText = "#B1B8C7"
	ColorDisabledText  = "#6D7383"
	ColorPlaceholder   = "#B1B8C7"
	ColorHelpText      = "240"

	// Accent Colors
	ColorAccentMain   = "#7C3AED" // Logo, active borders
	ColorAccentBright = "#A78BFA" // Highlights, current step

	// State Colors
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
	ColorWarning = "#F59E0B"
)

// Logo is printed in the help output and the detail panels.
const Logo = `██╗  ██╗ ██████╗ ██╗   ██╗██████╗ ██╗  ██╗   ██╗
██║  ██║██╔═══██╗██║   ██║██╔══██╗██║  ╚██╗ ██╔╝
███████║██║   ██║██║   ██║██████╔╝██║   ╚████╔╝ 
██╔══██║██║   ██║██║   ██║██╔══██╗██║    ╚██╔╝  
██║  ██║╚██████╔╝╚██████╔╝██║  ██║███████╗██║   
╚═╝  ╚═╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝   `
