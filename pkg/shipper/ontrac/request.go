package ontrac

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/wire"
)

const (
	defaultService = "C"
	defaultCODType = "NONE"
	dateLayout     = "2006-01-02"
)

// Label types understood by OnTrac. Other formats request no label.
const (
	labelNone = 0
	labelPDF  = 1
	labelZPL  = 7
)

// Tracking request types.
const (
	requestTrack   = "track"
	requestDetails = "details"
)

// query renders parameters in the given order.
func query(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pairs[i])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return b.String()
}

func endpoint(cfg Config, resource string, pairs ...string) string {
	return cfg.BaseURL + "/V1/" + url.PathEscape(cfg.Account) + "/" + resource + "?" + query(pairs...)
}

func ratesURL(cfg Config, packages string) string {
	return endpoint(cfg, "rates", "pw", cfg.Password, "packages", packages)
}

func shipmentsURL(cfg Config) string {
	return endpoint(cfg, "shipments", "pw", cfg.Password)
}

func trackingURL(cfg Config, numbers []string, requestType string) string {
	return endpoint(cfg, "shipments",
		"pw", cfg.Password,
		"requestType", requestType,
		"tn", strings.Join(numbers, ","),
	)
}

func zipsURL(cfg Config, lastUpdate time.Time) string {
	pairs := []string{"pw", cfg.Password}
	if !lastUpdate.IsZero() {
		pairs = append(pairs, "lastUpdate", lastUpdate.Format(dateLayout))
	}
	return endpoint(cfg, "Zips", pairs...)
}

// redactPassword removes the password from a request URL kept as LastRequest.
func redactPassword(cfg Config, u string) string {
	return strings.Replace(u, "pw="+url.QueryEscape(cfg.Password), "pw=FILTERED", 1)
}

// packageList encodes packages in OnTrac's rate format:
// id;origin zip;destination zip;residential;cod;saturday;declared;lbs;LxWxH;service
func packageList(origin, destination shipper.Location, packages []shipper.Package, opts shipper.RateOptions, newID func() string) string {
	entries := make([]string, 0, len(packages))
	for _, pkg := range packages {
		id := opts.PackageID
		if id == "" {
			id = newID()
		}
		d := pkg.Inches()
		dims := strings.Join([]string{
			shipper.FormatAmount(shipper.CeilDimension(d.Length)),
			shipper.FormatAmount(shipper.CeilDimension(d.Width)),
			shipper.FormatAmount(shipper.CeilDimension(d.Height)),
		}, "x")
		entries = append(entries, strings.Join([]string{
			id,
			origin.PostalCode,
			destination.PostalCode,
			fmt.Sprint(opts.Residential || destination.Residential),
			fmt.Sprintf("%.2f", opts.COD),
			fmt.Sprint(opts.SaturdayDelivery),
			shipper.FormatAmount(pkg.DeclaredValue()),
			shipper.FormatAmount(shipper.Round3(pkg.Pounds())),
			dims,
			orDefault(opts.ServiceType, defaultService),
		}, ";"))
	}
	return strings.Join(entries, ",")
}

func labelType(format string) int {
	switch strings.ToUpper(format) {
	case "PDF":
		return labelPDF
	case "ZPL":
		return labelZPL
	default:
		return labelNone
	}
}

func party(name string, loc shipper.Location, withExtraLines bool) *wire.Node {
	return wire.Elem(name,
		wire.Text("Name", loc.Name),
		wire.Text("Addr1", loc.Address1),
		wire.If(withExtraLines, wire.Text("Addr2", loc.Address2)),
		wire.If(withExtraLines, wire.Text("Addr3", loc.Address3)),
		wire.Text("City", loc.City),
		wire.Text("State", loc.Province),
		wire.Text("Zip", loc.PostalCode),
		wire.Empty("Contact"),
		wire.Text("Phone", loc.Phone),
	)
}

func buildShipmentRequest(uid string, origin, destination shipper.Location, pkg shipper.Package, opts shipper.ShipmentOptions, now time.Time) *wire.Node {
	d := pkg.Inches()
	shipDate := now
	if !opts.ShipDate.IsZero() {
		shipDate = opts.ShipDate
	}

	return wire.Elem("OnTracShipmentRequest",
		wire.Elem("Shipments",
			wire.Elem("Shipment",
				wire.Text("UID", uid),
				party("shipper", origin, false),
				party("consignee", destination, true),
				wire.Text("Service", orDefault(opts.ServiceType, defaultService)),
				wire.Text("SignatureRequired", opts.SignatureRequired),
				wire.Text("Residential", opts.Residential || destination.Residential),
				wire.Text("SaturdayDel", opts.SaturdayDelivery),
				wire.Text("Declared", pkg.DeclaredValue()),
				wire.Text("COD", fmt.Sprintf("%.2f", opts.COD)),
				wire.Text("CODType", orDefault(opts.CODType, defaultCODType)),
				wire.Text("Weight", shipper.Round3(pkg.Pounds())),
				wire.Text("BillTo", orDefault(opts.BillTo, "0")),
				wire.Text("Instructions", opts.Instructions),
				wire.Text("Reference", opts.Reference),
				wire.Empty("Reference2"),
				wire.Empty("Reference3"),
				wire.Empty("Tracking"),
				wire.Empty("ShipEmail"),
				wire.Empty("DelEmail"),
				wire.Elem("DIM",
					wire.Text("Length", shipper.CeilDimension(d.Length)),
					wire.Text("Width", shipper.CeilDimension(d.Width)),
					wire.Text("Height", shipper.CeilDimension(d.Height)),
				),
				wire.Text("LabelType", labelType(opts.LabelFormat)),
				wire.Text("ShipDate", shipDate.Format(dateLayout)),
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
