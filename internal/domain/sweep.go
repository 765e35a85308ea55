package domain

import "strings"

const (
	// MinPageLimit: при limit=1 шаг offset+limit-1 не двигается.
	MinPageLimit = 2

	DefaultCeiling = 1000
)

type SweepRequest struct {
	Term   string
	Offset int
	Limit  int
}

func (r *SweepRequest) Validate() error {
	if strings.TrimSpace(r.Term) == "" {
		return ErrEmptyTerm
	}
	if r.Limit < MinPageLimit {
		return ErrInvalidLimit
	}
	if r.Offset < 0 {
		return ErrInvalidOffset
	}
	return nil
}

func (r *SweepRequest) Sanitize() {
	r.Term = strings.TrimSpace(r.Term)
}
