// Package asset models fixed-point quantities stored as integers in their smallest unit.
package asset

// Asset describes a unit and its fixed-point precision.
type Asset struct {
	symbol   string
	decimals uint8
}

// NewAsset creates a new Asset with the given parameters.
func NewAsset(symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Asset{symbol: symbol, decimals: decimals}
}

// Symbol returns the display symbol.
func (a *Asset) Symbol() string {
	return a.symbol
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

func (a *Asset) String() string {
	return a.symbol
}

// Well-known units.
var (
	// ETH is the native coin; raw values are wei.
	ETH = NewAsset("ETH", 18)
	// Gwei is used for gas price display; raw values are wei.
	Gwei = NewAsset("gwei", 9)
	// MWh is energy in megawatt hours, stored on chain with 18 decimals.
	MWh = NewAsset("MWh", 18)
)
