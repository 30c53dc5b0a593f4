package discord

const (
	colorGold  = 0xF2C21A
	colorGreen = 0x00CC66
	colorRed   = 0xE74C3C
	colorBlue  = 0x3498DB

	maxMessageLen = 2000
)
