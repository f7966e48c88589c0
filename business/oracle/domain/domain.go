// Package domain contains the oracle's core types: the emission domains,
// estimate results, contract payloads, receipts and job states.
package domain

import (
	"strings"

	"github.com/fd1az/carbon-oracle/internal/apperror"
)

// Domain identifies the kind of emission an oracle instance reports.
type Domain string

const (
	Electricity Domain = "electricity"
	Flight      Domain = "flight"
	Vehicle     Domain = "vehicle"
)

// All returns every supported domain in a stable order.
func All() []Domain {
	return []Domain{Electricity, Flight, Vehicle}
}

// ParseDomain returns the Domain named by s.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Electricity, Flight, Vehicle:
		return d, nil
	}
	return "", apperror.New(apperror.CodeUnknownDomain, apperror.WithContext(s))
}

func (d Domain) String() string {
	return string(d)
}
