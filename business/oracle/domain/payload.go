package domain

import (
	"encoding/json"
	"math/big"
)

// SubmissionPayload is the ordered argument tuple of one contract call.
// It is immutable: Args returns a copy and big integers are cloned.
type SubmissionPayload struct {
	method string
	args   []any
}

// NewSubmissionPayload captures method and a private copy of args.
func NewSubmissionPayload(method string, args ...any) SubmissionPayload {
	return SubmissionPayload{method: method, args: cloneArgs(args)}
}

// Method returns the contract method name.
func (p SubmissionPayload) Method() string {
	return p.method
}

// Args returns a copy of the argument tuple.
func (p SubmissionPayload) Args() []any {
	return cloneArgs(p.args)
}

// Metadata returns the trailing metadata argument, or "" if absent.
func (p SubmissionPayload) Metadata() string {
	if len(p.args) == 0 {
		return ""
	}
	s, _ := p.args[len(p.args)-1].(string)
	return s
}

// MarshalJSON renders the payload for audit. Integers are encoded as
// decimal strings so uint256 values survive JSON consumers.
func (p SubmissionPayload) MarshalJSON() ([]byte, error) {
	args := make([]any, len(p.args))
	for i, a := range p.args {
		if b, ok := a.(*big.Int); ok {
			args[i] = b.String()
			continue
		}
		args[i] = a
	}
	return json.Marshal(struct {
		Method string `json:"method"`
		Args   []any  `json:"args"`
	}{p.method, args})
}

func cloneArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *big.Int:
			out[i] = new(big.Int).Set(v)
		case []FlightLeg:
			out[i] = append([]FlightLeg(nil), v...)
		default:
			out[i] = v
		}
	}
	return out
}
