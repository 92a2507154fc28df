package chat

import "strings"

const (
	cmdRegister = "/register"
	cmdLogin    = "/login"
	cmdPM       = "/pm"
)

type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandBroadcast
	CommandRegister
	CommandLogin
	CommandPrivate
)

type Command struct {
	Kind     CommandKind
	Nickname string // register, login and private recipient
	Password string
	Text     string // broadcast and private body
}

// ParseCommand classifies one line of client input. Logged-in sessions
// broadcast anything that does not start with "/"; anonymous sessions may
// only register or log in.
func ParseCommand(text string, loggedIn bool) Command {
	if loggedIn && !strings.HasPrefix(text, "/") {
		return Command{Kind: CommandBroadcast, Text: text}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{Kind: CommandUnknown}
	}
	switch fields[0] {
	case cmdRegister:
		if len(fields) >= 3 {
			return Command{Kind: CommandRegister, Nickname: fields[1], Password: fields[2]}
		}
	case cmdLogin:
		if len(fields) >= 3 {
			return Command{Kind: CommandLogin, Nickname: fields[1], Password: fields[2]}
		}
	case cmdPM:
		if loggedIn && len(fields) >= 2 {
			return Command{Kind: CommandPrivate, Nickname: fields[1], Text: strings.Join(fields[2:], " ")}
		}
	}
	return Command{Kind: CommandUnknown}
}
