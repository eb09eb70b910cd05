package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Separator joins the prefix and the fields of a token.
	Separator = ":"
	// LimitBytes is Telegram's callback data limit.
	LimitBytes = 64
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("callback decode failed")

// DecodeError describes why a token could not be decoded.
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode callback %q: %s", e.Token, e.Reason)
}

// Is lets errors.Is(err, ErrDecode) match.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Encode serializes a into "<prefix>:<field1>:<field2>...".
func Encode(a Action) (string, error) {
	if a == nil {
		return "", errors.New("encode callback: nil action")
	}

	w := &fieldWriter{parts: []string{a.Prefix()}}
	a.encodeFields(w)
	if w.err != nil {
		return "", fmt.Errorf("encode %s callback: %w", a.Prefix(), w.err)
	}

	token := strings.Join(w.parts, Separator)
	if len(token) > LimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", LimitBytes, len(token))
	}

	return token, nil
}

// MustEncode is Encode for statically known actions; it panics on error.
func MustEncode(a Action) string {
	token, err := Encode(a)
	if err != nil {
		panic(err)
	}
	return token
}

// Decode parses a token produced by Encode. It never returns a partially populated action.
func Decode(token string) (Action, error) {
	if token == "" {
		return nil, &DecodeError{Token: token, Reason: "empty token"}
	}

	parts := strings.Split(token, Separator)
	prefix, fields := parts[0], parts[1:]

	dec, ok := decoders[prefix]
	if !ok {
		return nil, &DecodeError{Token: token, Reason: fmt.Sprintf("unknown prefix %q", prefix)}
	}
	if len(fields) != dec.arity {
		return nil, &DecodeError{Token: token, Reason: fmt.Sprintf("expected %d fields, got %d", dec.arity, len(fields))}
	}

	r := &fieldReader{fields: fields}
	action := dec.decode(r)
	if r.err != nil {
		return nil, &DecodeError{Token: token, Reason: r.err.Error()}
	}

	return action, nil
}

// IsCallback reports whether data starts with a known prefix.
func IsCallback(data string) bool {
	prefix, _, _ := strings.Cut(data, Separator)
	_, ok := decoders[prefix]
	return ok
}

type fieldWriter struct {
	parts []string
	err   error
}

func (w *fieldWriter) fail(format string, args ...any) {
	if w.err == nil {
		w.err = fmt.Errorf(format, args...)
	}
}

func (w *fieldWriter) Int(v int64) {
	w.parts = append(w.parts, strconv.FormatInt(v, 10))
}

func (w *fieldWriter) String(v string) {
	if strings.Contains(v, Separator) {
		w.fail("field %d contains separator", len(w.parts))
		return
	}
	w.parts = append(w.parts, v)
}

func (w *fieldWriter) Bool(v bool) {
	if v {
		w.parts = append(w.parts, "1")
		return
	}
	w.parts = append(w.parts, "0")
}

type fieldReader struct {
	fields []string
	pos    int
	err    error
}

func (r *fieldReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *fieldReader) next() string {
	v := r.fields[r.pos]
	r.pos++
	return v
}

func (r *fieldReader) Int() int64 {
	idx := r.pos
	raw := r.next()
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.fail("field %d: %q is not an integer", idx, raw)
		return 0
	}
	return v
}

func (r *fieldReader) String() string {
	return r.next()
}

func (r *fieldReader) Bool() bool {
	idx := r.pos
	switch raw := r.next(); raw {
	case "1":
		return true
	case "0":
		return false
	default:
		r.fail("field %d: %q is not a boolean", idx, raw)
		return false
	}
}
