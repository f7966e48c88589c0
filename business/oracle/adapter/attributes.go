package adapter

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/apperror"
)

// isoMillis matches the timestamp layout of the estimate service.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// attributes wraps data.attributes of an estimate response.
type attributes struct {
	gjson.Result
}

func parseAttributes(raw []byte) (attributes, error) {
	if !gjson.ValidBytes(raw) {
		return attributes{}, malformed("response is not valid JSON", nil)
	}
	attrs := gjson.GetBytes(raw, "data.attributes")
	if !attrs.IsObject() {
		return attributes{}, malformed("missing data.attributes", nil)
	}
	return attributes{attrs}, nil
}

// carbonKg returns carbon_kg, which must be present and non-negative.
func (a attributes) carbonKg() (decimal.Decimal, error) {
	kg, err := a.decimal("carbon_kg")
	if err != nil {
		return decimal.Zero, err
	}
	if kg.IsNegative() {
		return decimal.Zero, malformed("carbon_kg is negative: "+kg.String(), nil)
	}
	return kg, nil
}

// decimal reads a number or numeric string without going through float64.
func (a attributes) decimal(key string) (decimal.Decimal, error) {
	r := a.Get(key)
	var s string
	switch r.Type {
	case gjson.Number:
		s = r.Raw
	case gjson.String:
		s = r.Str
	default:
		return decimal.Zero, malformed("missing "+key, nil)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, malformed("invalid "+key, err)
	}
	return d, nil
}

func (a attributes) integer(key string) (int64, error) {
	d, err := a.decimal(key)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, malformed(key+" is not an integer", nil)
	}
	return d.IntPart(), nil
}

func (a attributes) str(key string) (string, error) {
	r := a.Get(key)
	if r.Type != gjson.String || r.Str == "" {
		return "", malformed("missing "+key, nil)
	}
	return r.Str, nil
}

// metadata builds the JSON blob stored alongside each on-chain update:
// carbon in every unit the service reports, its estimation time, any extra
// attributes named in extra, and the local fetch time.
func (a attributes) metadata(fetchedAt time.Time, extra ...string) (string, error) {
	keys := append([]string{"carbon_g", "carbon_lb", "carbon_mt", "estimated_at"}, extra...)

	out := "{}"
	var err error
	for _, k := range keys {
		r := a.Get(k)
		if !r.Exists() {
			continue
		}
		if out, err = sjson.SetRaw(out, k, r.Raw); err != nil {
			return "", malformed("build metadata", err)
		}
	}
	if out, err = sjson.Set(out, "timestamp", fetchedAt.UTC().Format(isoMillis)); err != nil {
		return "", malformed("build metadata", err)
	}
	return out, nil
}

// roundedInt rounds d half away from zero to a non-negative uint256 argument.
func roundedInt(d decimal.Decimal) *big.Int {
	return d.Round(0).BigInt()
}

func malformed(msg string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(msg)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeMalformedResponse, opts...)
}

func mismatch(want domain.Domain, r *domain.EstimateResult) error {
	got := "nil"
	if r != nil {
		got = string(r.Domain)
	}
	return apperror.New(apperror.CodeInvalidInput,
		apperror.WithContext("expected "+string(want)+" result, got "+got))
}
