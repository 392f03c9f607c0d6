package landmark

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/wire"
)

const (
	defaultShipMethod  = "LGINTSTD"
	defaultLabelFormat = "PDF"
	defaultName        = "Test"
)

// GroupOptions are optional inputs for CreateShipmentGroup.
type GroupOptions struct {
	Region string

	// ExistingGroup adds the shipments to an open group. The value
	// "specific" restricts the group to the given package references.
	ExistingGroup string
}

func login(cfg Config) *wire.Node {
	return wire.Elem("Login",
		wire.Text("Username", cfg.Username),
		wire.Text("Password", cfg.Password),
	)
}

func buildShipRequest(cfg Config, reference string, origin, destination shipper.Location, pkg shipper.Package, items []shipper.PackageItem, opts shipper.ShipmentOptions) *wire.Node {
	dims := pkg.Inches()

	itemNodes := wire.Elem("Items")
	for _, item := range items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		itemNodes.Add(wire.Elem("Item",
			wire.Text("Sku", item.SKU),
			wire.Text("Quantity", quantity),
			wire.Text("UnitPrice", float64(item.Value)/100),
			wire.Text("Description", item.Name),
			wire.Text("HSCode", item.HSCode),
			wire.Text("CountryOfOrigin", orDefault(item.CountryOfOrigin, origin.Country)),
		))
	}

	return wire.Elem("ShipRequest",
		login(cfg),
		wire.Text("Test", cfg.Test),
		wire.Text("Reference", reference),
		wire.Elem("ShipTo",
			wire.Text("Name", orDefault(destination.Name, defaultName)),
			wire.Text("Address1", destination.Address1),
			wire.Text("Address2", destination.Address2),
			wire.Text("City", destination.City),
			wire.Text("State", destination.Province),
			wire.Text("Country", destination.Country),
			wire.Text("Phone", destination.Phone),
			wire.Text("PostalCode", destination.PostalCode),
			wire.Text("Region", destination.Country),
			wire.Text("Residental", destination.Residential || opts.Residential),
		),
		wire.Text("ShipMethod", orDefault(opts.ServiceType, defaultShipMethod)),
		wire.Text("LabelFormat", orDefault(opts.LabelFormat, defaultLabelFormat)),
		wire.Elem("Packages",
			wire.Elem("Package",
				wire.Text("Weight", shipper.Round3(pkg.Pounds())),
				wire.Text("Length", shipper.CeilDimension(dims.Length)),
				wire.Text("Width", shipper.CeilDimension(dims.Width)),
				wire.Text("Height", shipper.CeilDimension(dims.Height)),
			),
		),
		itemNodes,
	)
}

func buildTrackRequest(cfg Config, id string, opts shipper.TrackingOptions) *wire.Node {
	identifier := wire.Text("TrackingNumber", id)
	if opts.ByReference {
		identifier = wire.Text("Reference", id)
	}
	return wire.Elem("TrackRequest",
		login(cfg),
		wire.Text("Test", cfg.Test),
		identifier,
		wire.If(opts.IncludeHistory, wire.Text("RetrievalType", "Historical")),
	)
}

func buildShipmentGroupRequest(cfg Config, references []string, opts GroupOptions) *wire.Node {
	n := wire.Elem("CreateShipmentGroupRequest",
		login(cfg),
		wire.OptText("Region", opts.Region),
		wire.Text("Test", cfg.Test),
		wire.Text("AddToExistingGroup", opts.ExistingGroup != ""),
	)
	if opts.ExistingGroup == "specific" {
		shipments := wire.Elem("Shipments")
		for _, ref := range references {
			shipments.Add(wire.Elem("Shipment", wire.Text("PackageReference", ref)))
		}
		n.Add(shipments)
	}
	return n
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
