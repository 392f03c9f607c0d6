package landmark_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/landmark"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const createShipmentReply = `<?xml version="1.0" encoding="UTF-8"?>
<ShipResponse>
  <Result>
    <Success>true</Success>
    <Packages>
      <Package>
        <PackageID>10014</PackageID>
        <PackageReference>ref-1</PackageReference>
        <TrackingNumber>LTN10014N1</TrackingNumber>
        <LabelLink>https://mercury.landmarkglobal.com/label/10014.pdf</LabelLink>
        <BarcodeData>LTN10014N1</BarcodeData>
        <SortCode>YOW</SortCode>
      </Package>
    </Packages>
  </Result>
</ShipResponse>`

const createShipmentErrorReply = `<ShipResponse>
  <Errors>
    <Error><ErrorCode>203</ErrorCode><ErrorMessage>Invalid postal code</ErrorMessage></Error>
    <Error><ErrorCode>205</ErrorCode><ErrorMessage>Invalid state</ErrorMessage></Error>
  </Errors>
</ShipResponse>`

const trackingReply = `<TrackResponse>
  <Result>
    <Packages>
      <Package>
        <TrackingNumber>LTN98760N1</TrackingNumber>
        <PackageReference>00000098760</PackageReference>
        <ExpectedDelivery>12/09/2013</ExpectedDelivery>
        <Events>
          <Event><Status>Shipment Data Uploaded</Status><DateTime>12/04/2013 10:30:00</DateTime><Location>Beverly Hills, CA</Location></Event>
          <Event><Status>Crossed Border</Status><DateTime>12/06/2013 08:00:00</DateTime><Location>Buffalo, NY, US</Location></Event>
          <Event><Status>Processed</Status><DateTime>12/05/2013 14:00:00</DateTime><Location>Los Angeles, CA</Location></Event>
        </Events>
      </Package>
      <Package>
        <TrackingNumber>LTN98760N2</TrackingNumber>
        <ExpectedDelivery>12/10/2013</ExpectedDelivery>
        <Events>
          <Event><Status>Shipment Data Uploaded</Status><DateTime>12/04/2013 10:30:00</DateTime><Location>Beverly Hills, CA</Location></Event>
        </Events>
      </Package>
    </Packages>
  </Result>
</TrackResponse>`

const groupReply = `<CreateShipmentGroupResponse>
  <Result><Success>true</Success><ResultMessage>Shipment group created</ResultMessage><NumberOfShipments>3</NumberOfShipments></Result>
  <ShipmentGroups>
    <ShipmentGroup><ID>G-1</ID></ShipmentGroup>
    <ShipmentGroup><ID>G-2</ID></ShipmentGroup>
  </ShipmentGroups>
</CreateShipmentGroupResponse>`

func errorReply(root, code, message string) string {
	return "<" + root + "><Errors><Error><ErrorCode>" + code + "</ErrorCode><ErrorMessage>" +
		message + "</ErrorMessage></Error></Errors></" + root + ">"
}

var (
	beverlyHills = shipper.Location{Name: "Warehouse", Address1: "455 N. Rexford Dr.", City: "Beverly Hills", Province: "CA", PostalCode: "90210", Country: "US"}
	ottawa       = shipper.Location{Address1: "110 Laurier Avenue West", City: "Ottawa", Province: "ON", PostalCode: "K1P 1J1", Country: "CA", Phone: "1-613-580-2400"}
	chocolate    = shipper.Package{Weight: 1.8, Length: 12.1, Width: 4, Height: 2, Units: shipper.Imperial}
	items        = []shipper.PackageItem{
		{SKU: "CHOC-1", Name: "Dark chocolate", Quantity: 2, Value: 1250, HSCode: "1806.32"},
		{SKU: "CHOC-2", Name: "Milk chocolate", Value: 999, CountryOfOrigin: "BE"},
	}
)

func newTestClient(t *testing.T, mock *transport.Mock) *landmark.Client {
	t.Helper()
	client, err := landmark.NewWithTransport(landmark.Config{
		Username:     "demoapi",
		Password:     "demo123",
		Test:         true,
		NewReference: func() string { return "a1b2c3d4e5f6" },
	}, mock, otelzap.New(zap.NewNop()), nil)
	require.NoError(t, err)
	return client
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := landmark.NewWithTransport(landmark.Config{Username: "demoapi"}, transport.NewMock(), otelzap.New(zap.NewNop()), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrConfiguration))
	assert.Contains(t, err.Error(), "password")
}

func TestClient_Requirements(t *testing.T) {
	client := newTestClient(t, transport.NewMock())
	assert.Equal(t, []string{"username", "password"}, client.Requirements())
	assert.Equal(t, []string{"tracking", "shipments"}, shipper.Capabilities(client))
}

func TestClient_CreateShipment(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(createShipmentReply)
	client := newTestClient(t, mock)

	resp, err := client.CreateShipment(context.Background(), beverlyHills, ottawa, chocolate, items, shipper.ShipmentOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.Test)
	assert.Equal(t, "Successfully created shipment", resp.Message)
	assert.Equal(t, "10014", resp.ShippingID)
	assert.Equal(t, "LTN10014N1", resp.TrackingNumber)
	assert.Equal(t, "LTN10014N1", resp.BarcodeData)
	assert.Equal(t, "YOW", resp.SortCode)
	require.NotNil(t, resp.Label)
	assert.Equal(t, "https://mercury.landmarkglobal.com/label/10014.pdf", resp.Label.URL)
	assert.Equal(t, "PDF", resp.Label.Format)

	call := mock.Calls()[0]
	assert.Equal(t, landmark.DefaultURL, call.URL)
	assert.Empty(t, call.Headers[shipper.IdempotencyHeader])
	body := string(call.Body)
	assert.Contains(t, body, "<Login><Username>demoapi</Username><Password>demo123</Password></Login>")
	assert.Contains(t, body, "<Test>true</Test>")
	assert.Contains(t, body, "<Reference>a1b2c3d4e5f6</Reference>")
	assert.Contains(t, body, "<Name>Test</Name>")
	assert.Contains(t, body, "<ShipMethod>LGINTSTD</ShipMethod>")
	assert.Contains(t, body, "<LabelFormat>PDF</LabelFormat>")
	assert.Contains(t, body, "<Weight>1.8</Weight><Length>13</Length><Width>4</Width><Height>2</Height>")
	assert.Contains(t, body, "<Sku>CHOC-1</Sku><Quantity>2</Quantity><UnitPrice>12.5</UnitPrice>")
	assert.Contains(t, body, "<CountryOfOrigin>US</CountryOfOrigin>")
	assert.Contains(t, body, "<Quantity>1</Quantity><UnitPrice>9.99</UnitPrice>")
	assert.Contains(t, body, "<CountryOfOrigin>BE</CountryOfOrigin>")
}

func TestClient_CreateShipment_ReferenceAndIdempotency(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(createShipmentReply)
	client := newTestClient(t, mock)

	_, err := client.CreateShipment(context.Background(), beverlyHills, ottawa, chocolate, nil, shipper.ShipmentOptions{
		Reference:      "order-77",
		ServiceType:    "LGINTBPIP",
		IdempotencyKey: "order-77",
	})
	require.NoError(t, err)

	call := mock.Calls()[0]
	assert.Equal(t, "order-77", call.Headers[shipper.IdempotencyHeader])
	assert.Contains(t, string(call.Body), "<Reference>order-77</Reference>")
	assert.Contains(t, string(call.Body), "<ShipMethod>LGINTBPIP</ShipMethod>")
}

func TestClient_CreateShipment_ValidationError(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(createShipmentErrorReply)
	client := newTestClient(t, mock)

	nottawa := ottawa
	nottawa.PostalCode = "ABCDE"
	_, err := client.CreateShipment(context.Background(), beverlyHills, nottawa, chocolate, items, shipper.ShipmentOptions{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrValidation))

	var shipperErr *shipper.ShipperError
	require.True(t, errors.As(err, &shipperErr))
	assert.Equal(t, "203,205", shipperErr.Code)
	assert.Equal(t, "Invalid postal code,Invalid state", shipperErr.Message)
}

func TestClient_CreateShipment_InvalidDestination(t *testing.T) {
	mock := transport.NewMock()
	client := newTestClient(t, mock)

	_, err := client.CreateShipment(context.Background(), beverlyHills, shipper.Location{City: "Nowhere"}, chocolate, nil, shipper.ShipmentOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrValidation))
	assert.Empty(t, mock.Calls())
}

func TestClient_CreateShipment_AuthenticationError(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = func(_ context.Context, url string, _ []byte, _ map[string]string) ([]byte, error) {
		body := errorReply("ShipResponse", "101", "Invalid login")
		return nil, &shipper.TransportError{Method: "POST", URL: url, StatusCode: 401, Body: []byte(body)}
	}
	client := newTestClient(t, mock)

	_, err := client.CreateShipment(context.Background(), beverlyHills, ottawa, chocolate, nil, shipper.ShipmentOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAuthentication))
}

func TestClient_FindTrackingInfo(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(trackingReply)
	client := newTestClient(t, mock)

	resp, err := client.FindTrackingInfo(context.Background(), "LTN98760N1", shipper.TrackingOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.Test)
	assert.Equal(t, "Successfully received package data", resp.Message)
	assert.Equal(t, []string{"LTN98760N1", "LTN98760N2"}, resp.TrackingNumbers)
	assert.Equal(t, "LTN98760N1", resp.TrackingNumber)

	require.NotNil(t, resp.ScheduledDeliveryDate)
	assert.Equal(t, time.Date(2013, time.December, 10, 0, 0, 0, 0, time.UTC), *resp.ScheduledDeliveryDate)

	require.Len(t, resp.ShipmentEvents, 4)
	for i := 1; i < len(resp.ShipmentEvents); i++ {
		assert.False(t, resp.ShipmentEvents[i].Time.Before(resp.ShipmentEvents[i-1].Time))
	}
	assert.Equal(t, time.Date(2013, time.December, 4, 10, 30, 0, 0, time.UTC), resp.ShipmentEvents[0].Time)
	assert.Equal(t, "Crossed Border", resp.ShipmentEvents[3].Name)
	assert.Equal(t, "Buffalo", resp.ShipmentEvents[3].Location.City)
	assert.Equal(t, "US", resp.ShipmentEvents[3].Location.Country)
	assert.Equal(t, "Crossed Border", resp.Status)

	body := string(mock.Calls()[0].Body)
	assert.Contains(t, body, "<TrackingNumber>LTN98760N1</TrackingNumber>")
	assert.NotContains(t, body, "RetrievalType")
}

func TestClient_FindTrackingInfo_ByReferenceWithHistory(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(trackingReply)
	client := newTestClient(t, mock)

	_, err := client.FindTrackingInfo(context.Background(), "00000098760", shipper.TrackingOptions{ByReference: true, IncludeHistory: true})
	require.NoError(t, err)

	body := string(mock.Calls()[0].Body)
	assert.Contains(t, body, "<Reference>00000098760</Reference>")
	assert.Contains(t, body, "<RetrievalType>Historical</RetrievalType>")
	assert.NotContains(t, body, "<TrackingNumber>")
}

func TestClient_FindTrackingInfo_NotFound(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(errorReply("TrackResponse", "301", "Package not found"))
	client := newTestClient(t, mock)

	resp, err := client.FindTrackingInfo(context.Background(), "00000098760", shipper.TrackingOptions{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Package not found", resp.Message)
	assert.Equal(t, "301", resp.StatusCode)
	assert.Empty(t, resp.ShipmentEvents)
}

func TestClient_FindTrackingInfo_UnknownError(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(errorReply("TrackResponse", "999", "Something new"))
	client := newTestClient(t, mock)

	_, err := client.FindTrackingInfo(context.Background(), "00000098760", shipper.TrackingOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrUnrecognized))
	assert.Contains(t, err.Error(), "Something new")
}

func TestClient_FindTrackingInfo_ParsingIsRepeatable(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(trackingReply)
	client := newTestClient(t, mock)

	first, err := client.FindTrackingInfo(context.Background(), "LTN98760N1", shipper.TrackingOptions{})
	require.NoError(t, err)
	second, err := client.FindTrackingInfo(context.Background(), "LTN98760N1", shipper.TrackingOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClient_FindTrackingInfo_DropsUnreadableTimestamps(t *testing.T) {
	reply := `<TrackResponse>
  <Result>
    <Packages>
      <Package>
        <TrackingNumber>LTN98760N1</TrackingNumber>
        <Events>
          <Event><Status>Processed</Status><DateTime>12/05/2013 14:00:00</DateTime><Location>Los Angeles, CA</Location></Event>
          <Event><Status>Garbled</Status><DateTime>not-a-date</DateTime><Location>Nowhere</Location></Event>
        </Events>
      </Package>
    </Packages>
  </Result>
</TrackResponse>`
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(reply)
	client := newTestClient(t, mock)

	resp, err := client.FindTrackingInfo(context.Background(), "LTN98760N1", shipper.TrackingOptions{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.ShipmentEvents, 1)
	assert.Equal(t, "Processed", resp.ShipmentEvents[0].Name)
	assert.Equal(t, time.Date(2013, time.December, 5, 14, 0, 0, 0, time.UTC), resp.ShipmentEvents[0].Time)
	assert.Equal(t, "Processed", resp.Status)
}

func TestClient_CreateShipmentGroup(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(groupReply)
	client := newTestClient(t, mock)

	resp, err := client.CreateShipmentGroup(context.Background(), []string{"ref-1", "ref-2"}, landmark.GroupOptions{
		Region:        "Landmark CMH",
		ExistingGroup: "specific",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Shipment group created", resp.Message)
	assert.Equal(t, []string{"G-1", "G-2"}, resp.ShippingIDs)
	assert.Equal(t, 3, resp.NumberOfShipments)

	body := string(mock.Calls()[0].Body)
	assert.Contains(t, body, "<Region>Landmark CMH</Region>")
	assert.Contains(t, body, "<AddToExistingGroup>true</AddToExistingGroup>")
	assert.Contains(t, body, "<Shipment><PackageReference>ref-1</PackageReference></Shipment>")
}

func TestClient_CreateShipmentGroup_NewGroup(t *testing.T) {
	mock := transport.NewMock()
	mock.OnPost = transport.RespondPost(groupReply)
	client := newTestClient(t, mock)

	_, err := client.CreateShipmentGroup(context.Background(), nil, landmark.GroupOptions{})
	require.NoError(t, err)

	body := string(mock.Calls()[0].Body)
	assert.Contains(t, body, "<AddToExistingGroup>false</AddToExistingGroup>")
	assert.NotContains(t, body, "<Region>")
	assert.NotContains(t, body, "<Shipments>")
}
