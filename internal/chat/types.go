package chat

import (
	"net"

	"github.com/google/uuid"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// Session is one connected socket and its authentication state.
//
// Nickname, Password and LoggedIn are written only by the router goroutine,
// before it acknowledges a register or login request. The session's own
// goroutine reads them after receiving that acknowledgement.
type Session struct {
	ID         string
	Conn       net.Conn
	RemoteAddr string
	Out        chan wire.Message // outbound messages drained by the writer goroutine

	Nickname string
	Password string
	LoggedIn bool

	writerDone chan struct{}
	closed     bool // Out has been closed; see closeOut
}

func NewSession(conn net.Conn, outBuffer int) *Session {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	s := &Session{
		ID:         uuid.NewString(),
		Conn:       conn,
		Out:        make(chan wire.Message, outBuffer),
		writerDone: make(chan struct{}),
	}
	if conn != nil {
		s.RemoteAddr = conn.RemoteAddr().String()
	}
	return s
}

// closeOut ends the outbound writer. Only the router may call it while it
// runs; the session goroutine may call it once the router has stopped.
func (s *Session) closeOut() {
	if !s.closed {
		s.closed = true
		close(s.Out)
	}
}

type EventType int

const (
	EventRegister EventType = iota
	EventLogin
	EventUnregister
	EventBroadcast
	EventPrivate
)

func (t EventType) String() string {
	switch t {
	case EventRegister:
		return "register"
	case EventLogin:
		return "login"
	case EventUnregister:
		return "unregister"
	case EventBroadcast:
		return "broadcast"
	case EventPrivate:
		return "private"
	default:
		return "unknown"
	}
}

type Event struct {
	Type      EventType
	Session   *Session
	Nickname  string
	Password  string
	To        string
	Text      string
	ReplyChan chan Reply // used by register and login to ack success/failure
}

// Reply acknowledges a register or login. On success History holds the
// broadcasts to replay, oldest first.
type Reply struct {
	Err     error
	History []wire.Message
}

var (
	ErrAlreadyLoggedIn  = errorString("already_logged_in")
	ErrAlreadyExists    = errorString("nickname_taken")
	ErrNotFound         = errorString("nickname_not_found")
	ErrBadCredentials   = errorString("bad_credentials")
	ErrSelfMessage      = errorString("self_message")
	ErrUnknownRecipient = errorString("unknown_recipient")
	ErrUnknownCommand   = errorString("unknown_command")
)

type errorString string

func (e errorString) Error() string { return string(e) }

const StartupNotice = `
Available commands:
/register <nickname> <password>
/login <nickname> <password>
/pm <nickname> <text>
`

const (
	NoticeRegistered = "You have registered successfully"
	NoticeLoggedIn   = "You have logged in"
)

// Notice returns the text shown to a client for a command error. Unknown
// nickname and wrong password share one text.
func Notice(err error) string {
	switch err {
	case ErrAlreadyLoggedIn:
		return "You have already logged"
	case ErrAlreadyExists:
		return "That nickname already registered"
	case ErrNotFound, ErrBadCredentials:
		return "Login or password entered incorrectly"
	case ErrSelfMessage:
		return "Can not send message to yourself"
	case ErrUnknownRecipient:
		return "User with that nickname not exists"
	default:
		return "Command not found"
	}
}

// PrivateSender is the sender shown to recipients of a private message.
func PrivateSender(nickname string) string {
	return "PM " + nickname
}
