package chat

import (
	"sort"

	"github.com/andy6609/tcp-chat-server/internal/store"
	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// account is a nickname's password of record plus the sessions currently
// logged in under it. An account outlives its sessions.
type account struct {
	password string
	sessions map[*Session]struct{}
}

// Registry maps nicknames to their live sessions. It is not safe for
// concurrent use: the router goroutine is its only owner.
type Registry struct {
	accounts map[string]*account
}

func NewRegistry() *Registry {
	return &Registry{accounts: make(map[string]*account)}
}

func reserved(nickname string) bool {
	return nickname == wire.All || nickname == wire.ServerSender
}

// Register creates the nickname with s as its only session. The first
// registration fixes the password of record.
func (r *Registry) Register(nickname, password string, s *Session) error {
	if _, exists := r.accounts[nickname]; exists || reserved(nickname) {
		return ErrAlreadyExists
	}
	r.accounts[nickname] = &account{
		password: password,
		sessions: map[*Session]struct{}{s: {}},
	}
	s.Nickname, s.Password, s.LoggedIn = nickname, password, true
	return nil
}

// Login adds s to an existing nickname's sessions.
func (r *Registry) Login(nickname, password string, s *Session) error {
	acc, ok := r.accounts[nickname]
	if !ok {
		return ErrNotFound
	}
	// TODO: hash passwords once clients can migrate existing snapshots.
	if acc.password != password {
		return ErrBadCredentials
	}
	if s.LoggedIn {
		return ErrAlreadyLoggedIn
	}
	acc.sessions[s] = struct{}{}
	s.Nickname, s.Password, s.LoggedIn = nickname, acc.password, true
	return nil
}

// Exists reports whether nickname has ever registered.
func (r *Registry) Exists(nickname string) bool {
	_, ok := r.accounts[nickname]
	return ok
}

// SessionsFor returns the live sessions of nickname, empty if none.
func (r *Registry) SessionsFor(nickname string) []*Session {
	acc, ok := r.accounts[nickname]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(acc.sessions))
	for s := range acc.sessions {
		out = append(out, s)
	}
	return out
}

// AllSessions returns every live session across every nickname.
func (r *Registry) AllSessions() []*Session {
	var out []*Session
	for _, acc := range r.accounts {
		for s := range acc.sessions {
			out = append(out, s)
		}
	}
	return out
}

// Online counts live logged-in sessions.
func (r *Registry) Online() int {
	n := 0
	for _, acc := range r.accounts {
		n += len(acc.sessions)
	}
	return n
}

// Remove drops s from its nickname's sessions. The nickname itself stays so
// the user can log back in later.
func (r *Registry) Remove(s *Session) {
	if s == nil || !s.LoggedIn {
		return
	}
	if acc, ok := r.accounts[s.Nickname]; ok {
		delete(acc.sessions, s)
	}
}

// Accounts exports every nickname and password of record, sorted by nickname.
func (r *Registry) Accounts() []store.Account {
	out := make([]store.Account, 0, len(r.accounts))
	for name, acc := range r.accounts {
		out = append(out, store.Account{Nickname: name, Password: acc.password})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out
}

// Restore recreates accounts from a snapshot with no live sessions.
func (r *Registry) Restore(accounts []store.Account) {
	for _, a := range accounts {
		if _, exists := r.accounts[a.Nickname]; exists {
			continue
		}
		r.accounts[a.Nickname] = &account{
			password: a.Password,
			sessions: make(map[*Session]struct{}),
		}
	}
}
