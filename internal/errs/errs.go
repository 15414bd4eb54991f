package errs

import (
	"errors"
	"fmt"
	"log/slog"
)

// Wrap adds context and preserves the error chain (errors.Is/As works).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context and preserves the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}

// Mark tags err with a sentinel so errors.Is(result, mark) holds, while the
// message stays the original one.
func Mark(err error, mark error) error {
	if err == nil {
		return nil
	}
	if mark == nil || errors.Is(err, mark) {
		return err
	}
	return &markedError{err: err, mark: mark}
}

type markedError struct {
	err  error
	mark error
}

func (e *markedError) Error() string   { return e.err.Error() }
func (e *markedError) Unwrap() []error { return []error{e.err, e.mark} }

// Loggable renders an error as a slog group.
// Usage: slog.Any("err", errs.Loggable(err))
func Loggable(err error) slog.LogValuer { return loggable{err: err} }

type loggable struct{ err error }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}

	attrs := []slog.Attr{
		slog.String("message", l.err.Error()),
		slog.Any("chain", ErrorChainStrings(l.err)),
	}

	var me *markedError
	if errors.As(l.err, &me) {
		attrs = append(attrs, slog.String("kind", me.mark.Error()))
	}

	return slog.GroupValue(attrs...)
}

// ErrorChainStrings returns the unwrap chain as strings (outer -> inner).
// Marked errors contribute their wrapped error only.
func ErrorChainStrings(err error) []string {
	if err == nil {
		return nil
	}

	out := make([]string, 0, 8)
	for e := err; e != nil; {
		out = append(out, e.Error())
		if me, ok := e.(*markedError); ok {
			e = me.err
			continue
		}
		e = errors.Unwrap(e)
	}
	return out
}
