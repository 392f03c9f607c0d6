package fedex

import (
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/wire"
)

const (
	rateNamespace       = "http://fedex.com/ws/rate/v6"
	trackNamespace      = "http://fedex.com/ws/track/v3"
	shipNamespace       = "http://fedex.com/ws/ship/v12"
	validationNamespace = "http://fedex.com/ws/addressvalidation/v2"

	defaultDropoff   = "REGULAR_PICKUP"
	defaultPackaging = "YOUR_PACKAGING"
	defaultService   = "FEDEX_GROUND"
	defaultPayment   = "SENDER"
	defaultIndicia   = "PARCEL_SELECT"
	defaultPhone     = "555-555-5555"
	defaultCurrency  = "USD"

	dateLayout = "2006-01-02"
)

// credentials is the authentication material repeated in every request.
type credentials struct {
	Key           string
	Password      string
	Account       string
	Meter         string
	TransactionID string
}

func header(cr credentials) []*wire.Node {
	return []*wire.Node{
		wire.Elem("WebAuthenticationDetail",
			wire.Elem("UserCredential",
				wire.Text("Key", cr.Key),
				wire.Text("Password", cr.Password),
			),
		),
		wire.Elem("ClientDetail",
			wire.Text("AccountNumber", cr.Account),
			wire.Text("MeterNumber", cr.Meter),
			wire.Elem("Localization",
				wire.Text("LanguageCode", "en"),
				wire.Text("LocaleCode", "us"),
			),
		),
		wire.Elem("TransactionDetail",
			wire.Text("CustomerTransactionId", cr.TransactionID),
		),
	}
}

func version(service string, major int) *wire.Node {
	return wire.Elem("Version",
		wire.Text("ServiceId", service),
		wire.Text("Major", major),
		wire.Text("Intermediate", 0),
		wire.Text("Minor", 0),
	)
}

func root(name, namespace string, cr credentials, service string, major int) *wire.Node {
	n := wire.Elem(name).Attr("xmlns", namespace)
	n.Add(header(cr)...)
	return n.Add(version(service, major))
}

// ============================================================================
// Rates
// ============================================================================

func buildRateRequest(cr credentials, origin, destination shipper.Location, packages []shipper.Package, opts shipper.RateOptions, now time.Time) *wire.Node {
	units := shipper.UnitSystemFor(origin.Country)
	shipTime := now.Add(time.Duration(opts.TurnAroundHours) * time.Hour)

	shipperLoc := origin
	if opts.Shipper != nil {
		shipperLoc = *opts.Shipper
	}
	recipient := destination
	recipient.Residential = destination.Residential || opts.Residential

	rs := wire.Elem("RequestedShipment",
		wire.Text("ShipTimestamp", shipTime.UTC()),
		wire.Text("DropoffType", lookup(dropoffTypes, opts.DropoffType, defaultDropoff)),
		wire.Text("PackagingType", lookup(packageTypes, opts.PackagingType, defaultPackaging)),
		rateLocation("Shipper", shipperLoc),
		rateLocation("Recipient", recipient),
		wire.If(opts.Shipper != nil && *opts.Shipper != origin, rateLocation("Origin", origin)),
		wire.Text("RateRequestTypes", "ACCOUNT"),
		wire.Text("PackageCount", len(packages)),
	)
	for _, pkg := range packages {
		rs.Add(wire.Elem("RequestedPackages",
			wire.Elem("Weight",
				wire.Text("Units", units.WeightUnit()),
				wire.Text("Value", shipper.RoundWeight(pkg.WeightIn(units))),
			),
			dimensions(pkg, units),
		))
	}

	return root("RateRequest", rateNamespace, cr, "crs", 6).Add(
		wire.Text("ReturnTransitAndCommit", true),
		wire.Text("VariableOptions", "SATURDAY_DELIVERY"),
		rs,
	)
}

func rateLocation(name string, loc shipper.Location) *wire.Node {
	return wire.Elem(name,
		wire.Elem("Address",
			wire.Text("PostalCode", loc.PostalCode),
			wire.Text("CountryCode", loc.Country),
			wire.If(loc.Residential, wire.Text("Residential", true)),
		),
	)
}

func dimensions(pkg shipper.Package, units shipper.UnitSystem) *wire.Node {
	d := pkg.DimensionsIn(units)
	return wire.Elem("Dimensions",
		wire.Text("Length", shipper.CeilDimension(d.Length)),
		wire.Text("Width", shipper.CeilDimension(d.Width)),
		wire.Text("Height", shipper.CeilDimension(d.Height)),
		wire.Text("Units", units.LengthUnit()),
	)
}

// ============================================================================
// Tracking
// ============================================================================

func buildTrackRequest(cr credentials, id string, opts shipper.TrackingOptions) *wire.Node {
	n := root("TrackRequest", trackNamespace, cr, "trck", 3).Add(
		wire.Elem("PackageIdentifier",
			wire.Text("Value", id),
			wire.Text("Type", lookup(identifierTypes, opts.IdentifierType, identifierTypes["tracking_number"])),
		),
	)
	if !opts.ShipDateRangeBegin.IsZero() {
		n.Add(wire.Text("ShipDateRangeBegin", opts.ShipDateRangeBegin.Format(dateLayout)))
	}
	if !opts.ShipDateRangeEnd.IsZero() {
		n.Add(wire.Text("ShipDateRangeEnd", opts.ShipDateRangeEnd.Format(dateLayout)))
	}
	return n.Add(wire.Text("IncludeDetailedScans", 1))
}

// ============================================================================
// Shipments
// ============================================================================

func buildShipRequest(cr credentials, origin, destination shipper.Location, pkg shipper.Package, opts shipper.ShipmentOptions, now time.Time) *wire.Node {
	units := shipper.UnitSystemFor(origin.Country)
	serviceType := opts.ServiceType
	if serviceType == "" {
		serviceType = defaultService
	}
	shipTime := now
	if !opts.ShipDate.IsZero() {
		shipTime = opts.ShipDate
	}

	payer := origin
	if opts.Shipper != nil {
		payer = *opts.Shipper
	}

	rs := wire.Elem("RequestedShipment",
		wire.Text("ShipTimestamp", shipTime.UTC()),
		wire.Text("DropoffType", lookup(dropoffTypes, opts.DropoffType, defaultDropoff)),
		wire.Text("ServiceType", serviceType),
		wire.Text("PackagingType", lookup(packageTypes, opts.PackagingType, defaultPackaging)),
		shipLocation("Shipper", origin),
		shipLocation("Recipient", destination),
		wire.Elem("ShippingChargesPayment",
			wire.Text("PaymentType", lookup(paymentTypes, opts.PaymentType, defaultPayment)),
			wire.Elem("Payor",
				wire.Elem("ResponsibleParty",
					wire.Text("AccountNumber", cr.Account),
					wire.Elem("Contact",
						wire.Text("PersonName", orDefault(payer.Name, "Shipper")),
						wire.Text("CompanyName", orDefault(payer.Company, "Company")),
						wire.OptText("PhoneNumber", payer.Phone),
					),
				),
			),
		),
		wire.If(serviceType == "SMART_POST" && opts.SmartPostHubID != "",
			wire.Elem("SmartPostDetail",
				wire.Text("Indicia", orDefault(opts.SmartPostIndicia, defaultIndicia)),
				wire.Text("HubId", opts.SmartPostHubID),
			),
		),
		wire.Elem("LabelSpecification",
			wire.Text("LabelFormatType", "COMMON2D"),
			wire.Text("ImageType", orDefault(opts.LabelFormat, "PDF")),
			wire.Text("LabelStockType", "PAPER_LETTER"),
			wire.Elem("CustomerSpecifiedDetail",
				wire.Text("MaskedData", "SHIPPER_ACCOUNT_NUMBER"),
			),
		),
		wire.Text("RateRequestTypes", "ACCOUNT"),
		wire.Text("PackageCount", 1),
		wire.Elem("RequestedPackageLineItems",
			wire.Text("SequenceNumber", 1),
			wire.If(pkg.Value > 0, wire.Elem("InsuredValue",
				wire.Text("Currency", orDefault(pkg.Currency, defaultCurrency)),
				wire.Text("Amount", pkg.DeclaredValue()),
			)),
			wire.Elem("Weight",
				wire.Text("Units", units.WeightUnit()),
				wire.Text("Value", shipper.Round3(pkg.WeightIn(units))),
			),
			dimensions(pkg, units),
		),
	)

	return root("ProcessShipmentRequest", shipNamespace, cr, "ship", 12).Add(rs)
}

func shipLocation(name string, loc shipper.Location) *wire.Node {
	return wire.Elem(name,
		wire.Elem("Contact",
			wire.Text("PersonName", orDefault(loc.Name, name)),
			wire.Text("CompanyName", loc.Company),
			wire.Text("PhoneNumber", orDefault(loc.Phone, defaultPhone)),
		),
		wire.Elem("Address",
			wire.Text("StreetLines", loc.Address1),
			wire.Text("StreetLines", loc.Address2),
			wire.Text("City", loc.City),
			wire.Text("StateOrProvinceCode", loc.Province),
			wire.Text("PostalCode", loc.PostalCode),
			wire.Text("CountryCode", loc.Country),
			wire.Text("Residential", loc.Residential),
		),
	)
}

// ============================================================================
// Address validation
// ============================================================================

func buildValidationRequest(cr credentials, loc shipper.Location, timestamp time.Time) *wire.Node {
	return root("AddressValidationRequest", validationNamespace, cr, "aval", 2).Add(
		wire.Text("RequestTimestamp", timestamp),
		wire.Elem("Options",
			wire.Text("CheckResidentialStatus", true),
		),
		wire.Elem("AddressesToValidate",
			wire.Elem("Address",
				wire.Text("StreetLines", loc.Address1),
				wire.Text("City", loc.City),
				wire.Text("StateOrProvinceCode", loc.Province),
				wire.Text("PostalCode", loc.PostalCode),
				wire.Text("CountryCode", loc.Country),
			),
		),
	)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
