package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

const inventoryURL = testBaseURL + "/api/client?page=1"

const inventoryBody = `{
  "object": "list",
  "data": [
    {"object": "server", "attributes": {"identifier": "a1b2c3d4", "name": "alpha"}},
    {"object": "allocation", "attributes": {"identifier": "zzzz"}},
    {"object": "server", "attributes": {"identifier": "", "name": "ghost"}},
    "not-an-object",
    {"object": "server", "attributes": {"identifier": "e5f6a7b8"}}
  ]
}`

func inventory(body string) driven.Response {
	return driven.Response{URL: inventoryURL, Status: 200, Body: []byte(body)}
}

func TestDiscovery_FirstResponseOnly(t *testing.T) {
	page := newFakePage()
	page.responses[landingURL] = []driven.Response{
		inventory(inventoryBody),
		inventory(`{"data":[{"object":"server","attributes":{"identifier":"later","name":"late"}}]}`),
	}
	d := application.NewDiscovery(testProfile())
	d.Arm(context.Background(), page)

	require.NoError(t, page.Navigate(context.Background(), landingURL, model.WaitNetworkIdle))
	resources, captured := d.Collect(context.Background(), 0)

	require.True(t, captured)
	require.Len(t, resources, 2)
	assert.Equal(t, model.Resource{ID: "a1b2c3d4", Name: "alpha", Address: testBaseURL + "/server/a1b2c3d4"}, resources[0])
	assert.Equal(t, "unknown", resources[1].Name)
}

func TestDiscovery_SkipsUnparseableUntilValid(t *testing.T) {
	page := newFakePage()
	page.responses[landingURL] = []driven.Response{
		inventory(`<html>maintenance</html>`),
		inventory(`{"meta":{}}`),
		inventory(inventoryBody),
	}
	d := application.NewDiscovery(testProfile())
	d.Arm(context.Background(), page)

	require.NoError(t, page.Navigate(context.Background(), landingURL, model.WaitNetworkIdle))
	resources, captured := d.Collect(context.Background(), 0)

	assert.True(t, captured)
	assert.Len(t, resources, 2)
}

func TestDiscovery_IgnoresNonMatchingResponses(t *testing.T) {
	page := newFakePage()
	page.responses[landingURL] = []driven.Response{
		{URL: testBaseURL + "/api/client/account", Status: 200, Body: []byte(inventoryBody)},
		{URL: inventoryURL, Status: 500, Body: []byte(inventoryBody)},
	}
	d := application.NewDiscovery(testProfile())
	d.Arm(context.Background(), page)

	require.NoError(t, page.Navigate(context.Background(), landingURL, model.WaitNetworkIdle))
	resources, captured := d.Collect(context.Background(), 10*time.Millisecond)

	assert.False(t, captured)
	assert.Empty(t, resources)
}

func TestDiscovery_StopDetachesObserver(t *testing.T) {
	page := newFakePage()
	page.responses[landingURL] = []driven.Response{inventory(inventoryBody)}
	d := application.NewDiscovery(testProfile())
	d.Arm(context.Background(), page)

	d.Stop()
	d.Stop()
	require.NoError(t, page.Navigate(context.Background(), landingURL, model.WaitNetworkIdle))

	_, captured := d.Collect(context.Background(), 0)
	assert.False(t, captured)
}

func TestDiscovery_NoInventoryPattern(t *testing.T) {
	profile := testProfile()
	profile.Inventory = model.InventoryPattern{}
	page := newFakePage()
	d := application.NewDiscovery(profile)

	d.Arm(context.Background(), page)
	_, captured := d.Collect(context.Background(), time.Hour)

	assert.False(t, captured)
	assert.Empty(t, page.observers)
}

func TestStaticResource(t *testing.T) {
	r := application.StaticResource(testProfile(), "f00dcafe")

	assert.Equal(t, testBaseURL+"/server/f00dcafe", r.Address)
	assert.Equal(t, "f00dcafe", r.DisplayName())
}
