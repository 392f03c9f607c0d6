package shipper

import (
	"fmt"
	"strings"
	"time"
)

// UnitSystem selects the measurement units of a package.
type UnitSystem int

const (
	Metric   UnitSystem = iota // kilograms and centimeters
	Imperial                   // pounds and inches
)

func (u UnitSystem) String() string {
	if u == Imperial {
		return "imperial"
	}
	return "metric"
}

// MarshalText encodes the unit system as "metric" or "imperial".
func (u UnitSystem) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText accepts "metric" or "imperial" in any case.
func (u *UnitSystem) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "metric", "":
		*u = Metric
	case "imperial":
		*u = Imperial
	default:
		return fmt.Errorf("unknown unit system %q", text)
	}
	return nil
}

// WeightUnit returns the wire label of the weight unit ("KG" or "LB").
func (u UnitSystem) WeightUnit() string {
	if u == Imperial {
		return "LB"
	}
	return "KG"
}

// LengthUnit returns the wire label of the length unit ("CM" or "IN").
func (u UnitSystem) LengthUnit() string {
	if u == Imperial {
		return "IN"
	}
	return "CM"
}

// Location represents a postal address used as origin, destination or shipper.
type Location struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	Address3    string `json:"address3,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"` // state or province code, e.g. "CA", "ON"
	PostalCode  string `json:"postal_code,omitempty"`
	Country     string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	Phone       string `json:"phone,omitempty"`
	Residential bool   `json:"residential,omitempty"`
}

// Dimensions holds the length, width and height of a package in one unit.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Package represents a physical parcel.
type Package struct {
	Weight   float64    `json:"weight" validate:"gte=0"`
	Length   float64    `json:"length" validate:"gte=0"`
	Width    float64    `json:"width" validate:"gte=0"`
	Height   float64    `json:"height" validate:"gte=0"`
	Units    UnitSystem `json:"units"`
	Value    int64      `json:"value,omitempty" validate:"gte=0"` // declared value in cents
	Currency string     `json:"currency,omitempty"`
}

const (
	poundsPerKilogram  = 2.2046226218
	centimetersPerInch = 2.54
)

// WeightIn returns the package weight converted to the given unit system.
func (p Package) WeightIn(u UnitSystem) float64 {
	switch {
	case p.Units == u:
		return p.Weight
	case u == Imperial:
		return p.Weight * poundsPerKilogram
	default:
		return p.Weight / poundsPerKilogram
	}
}

// DimensionsIn returns the package dimensions converted to the given unit system.
func (p Package) DimensionsIn(u UnitSystem) Dimensions {
	factor := 1.0
	switch {
	case p.Units == u:
	case u == Imperial:
		factor = 1 / centimetersPerInch
	default:
		factor = centimetersPerInch
	}
	return Dimensions{
		Length: p.Length * factor,
		Width:  p.Width * factor,
		Height: p.Height * factor,
	}
}

// Pounds returns the package weight in pounds.
func (p Package) Pounds() float64 { return p.WeightIn(Imperial) }

// Inches returns the package dimensions in inches.
func (p Package) Inches() Dimensions { return p.DimensionsIn(Imperial) }

// DeclaredValue returns the declared value in currency units.
func (p Package) DeclaredValue() float64 {
	return float64(p.Value) / 100
}

// PackageItem is a line item inside a package.
type PackageItem struct {
	SKU             string `json:"sku,omitempty"`
	Name            string `json:"name,omitempty"`
	Quantity        int    `json:"quantity,omitempty" validate:"gte=0"`
	Value           int64  `json:"value,omitempty" validate:"gte=0"` // unit price in cents
	HSCode          string `json:"hs_code,omitempty"`
	CountryOfOrigin string `json:"country_of_origin,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// DateRange is an inclusive delivery window. Zero times mean unknown.
type DateRange struct {
	Earliest time.Time `json:"earliest,omitempty"`
	Latest   time.Time `json:"latest,omitempty"`
}

// IsZero reports whether the range carries no dates.
func (r DateRange) IsZero() bool {
	return r.Earliest.IsZero() && r.Latest.IsZero()
}

// RateEstimate is a priced shipping option.
type RateEstimate struct {
	Carrier       string    `json:"carrier"`
	ServiceName   string    `json:"service_name"`
	ServiceCode   string    `json:"service_code"`
	TotalPrice    float64   `json:"total_price"`
	Currency      string    `json:"currency,omitempty"`
	DeliveryRange DateRange `json:"delivery_range"`
	ServiceCharge float64   `json:"service_charge,omitempty"`
	FuelCharge    float64   `json:"fuel_charge,omitempty"`
	TransitDays   int       `json:"transit_days,omitempty"`
	Packages      []Package `json:"-"`
}

// ShipmentEvent is a tracking milestone.
type ShipmentEvent struct {
	Name     string    `json:"name"`
	Time     time.Time `json:"time"`
	Location Location  `json:"location"`
	Code     string    `json:"code,omitempty"`
	Data     any       `json:"-"`
}

// Label is a shipping label issued by a carrier.
type Label struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
	Format         string `json:"format,omitempty"`
	URL            string `json:"url,omitempty"`
	ImageData      []byte `json:"image_data,omitempty"`
}
