package tui

// Color carries the meaning; the icon shape reinforces it.
const (
	IconCheck   = "\u2714" // heavy check mark
	IconCross   = "\u2716" // heavy multiplication X
	IconWarning = "\u26A0" // warning sign
	IconInfo    = "\u2139" // information source
	IconSealed  = "\u25C6" // diamond, sealed settings file
	IconOpen    = "\u25CB" // hollow circle, unsandboxed
)
