package recovery

import "fmt"

// StrictStrategy fails the render on the first field error.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy skips failing fields and keeps the errors it saw.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s]: %w", location, err))
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ActionFail
		default:
		}
	}
	return ActionSkip
}
