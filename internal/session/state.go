package session

import "cineverse/internal/domain"

type Status int

const (
	Loading Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State 会话快照；User 仅在 Authenticated 时非空
type State struct {
	Status Status             `json:"status"`
	User   *domain.UserRecord `json:"user,omitempty"`
}

// IsAdmin 角色每次从记录读取
func (s State) IsAdmin() bool {
	return s.Status == Authenticated && s.User != nil && s.User.IsAdmin
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
