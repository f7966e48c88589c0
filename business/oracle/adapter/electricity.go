package adapter

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/sjson"

	"github.com/fd1az/carbon-oracle/business/oracle/domain"
	"github.com/fd1az/carbon-oracle/internal/asset"
	"github.com/fd1az/carbon-oracle/internal/config"
)

// Electricity reports grid electricity consumption for a country and state.
type Electricity struct {
	cfg config.ElectricityConfig
}

// NewElectricity creates an electricity adapter.
func NewElectricity(cfg config.ElectricityConfig) *Electricity {
	return &Electricity{cfg: cfg}
}

func (a *Electricity) Domain() domain.Domain { return domain.Electricity }

func (a *Electricity) ContractMethod() string { return MethodUpdateElectricity }

func (a *Electricity) BuildRequest() (domain.EstimateRequest, error) {
	body := `{"type":"electricity","electricity_unit":"mwh"}`
	var err error
	if body, err = sjson.SetRaw(body, "electricity_value", a.cfg.MWhDecimal().String()); err != nil {
		return domain.EstimateRequest{}, err
	}
	if body, err = sjson.Set(body, "country", a.cfg.Country); err != nil {
		return domain.EstimateRequest{}, err
	}
	if a.cfg.State != "" {
		if body, err = sjson.Set(body, "state", a.cfg.State); err != nil {
			return domain.EstimateRequest{}, err
		}
	}
	return domain.EstimateRequest{Domain: domain.Electricity, Body: []byte(body)}, nil
}

func (a *Electricity) NormalizeResponse(raw []byte, fetchedAt time.Time) (*domain.EstimateResult, error) {
	attrs, err := parseAttributes(raw)
	if err != nil {
		return nil, err
	}
	kg, err := attrs.carbonKg()
	if err != nil {
		return nil, err
	}
	mwh, err := attrs.decimal("electricity_value")
	if err != nil {
		return nil, err
	}
	if _, err := ScaledMWh(mwh); err != nil {
		return nil, err
	}
	country, err := attrs.str("country")
	if err != nil {
		return nil, err
	}
	meta, err := attrs.metadata(fetchedAt)
	if err != nil {
		return nil, err
	}

	return &domain.EstimateResult{
		Domain:    domain.Electricity,
		CarbonKg:  kg,
		Metadata:  meta,
		FetchedAt: fetchedAt,
		ElectricityData: &domain.ElectricityData{
			ElectricityMWh: mwh,
			Country:        country,
			State:          attrs.Get("state").String(),
		},
	}, nil
}

// PayloadFromResult maps to updateElectricityData(carbonKg, mwh*10^18, country, state, metadata).
func (a *Electricity) PayloadFromResult(r *domain.EstimateResult) (domain.SubmissionPayload, error) {
	if r == nil || r.ElectricityData == nil {
		return domain.SubmissionPayload{}, mismatch(domain.Electricity, r)
	}
	mwh, err := ScaledMWh(r.ElectricityMWh)
	if err != nil {
		return domain.SubmissionPayload{}, err
	}
	return domain.NewSubmissionPayload(MethodUpdateElectricity,
		roundedInt(r.CarbonKg),
		mwh,
		r.Country,
		r.State,
		r.Metadata,
	), nil
}

// ScaledMWh converts megawatt hours to the contract's 18-decimal fixed point,
// the same scaling as parsing an ether amount.
func ScaledMWh(mwh decimal.Decimal) (*big.Int, error) {
	amt, err := asset.ParseDecimal(asset.MWh, mwh)
	if err != nil {
		return nil, malformed("electricity_value "+mwh.String(), err)
	}
	return amt.Raw(), nil
}
