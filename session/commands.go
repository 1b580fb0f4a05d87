package session

// Command is a runtime keyboard command
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandRecapture
	CommandSave
)

// KeyHelp is printed once the session is running
const KeyHelp = "q=quit, r=re-capture background, s=save frame"

// Maps a WaitKey result to a Command. Negative keys mean no key was pressed.
func CommandForKey(key int) Command {
	if key < 0 {
		return CommandNone
	}
	switch key & 0xFF {
	case 'q':
		return CommandQuit
	case 'r':
		return CommandRecapture
	case 's':
		return CommandSave
	default:
		return CommandNone
	}
}

func (c Command) String() string {
	switch c {
	case CommandQuit:
		return "quit"
	case CommandRecapture:
		return "recapture"
	case CommandSave:
		return "save"
	default:
		return "none"
	}
}
