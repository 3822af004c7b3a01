package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

func TestParsePrice(t *testing.T) {
	assert.Equal(t, "0.00 USD", application.ParsePrice("Renew Server - 0.00 USD"))
	assert.Equal(t, "4.99 USD", application.ParsePrice("Renew Server - 4.99 USD"))
	assert.Equal(t, "", application.ParsePrice("Renew Server"))
}

func TestIsFreeRenewal(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{label: "Renew Server - 0.00 USD", want: true},
		{label: "Renew Server - 4.99 USD", want: false},
		{label: "Renew Server - 0 USD", want: true},
		{label: "Renew Server - free", want: false},
		{label: "Renew Server", want: false},
		{label: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, application.IsFreeRenewal(tt.label, application.ParsePrice(tt.label)))
		})
	}
}

func TestInspector_ReadControls(t *testing.T) {
	start := model.Selector{CSS: "#power-start"}
	stop := model.Selector{CSS: "#power-stop"}

	tests := []struct {
		name        string
		setup       func(p *fakePage)
		wantRestart bool
	}{
		{
			name:        "start enabled",
			setup:       func(p *fakePage) { p.set(start, &fakeElement{}) },
			wantRestart: true,
		},
		{
			name: "start and stop disabled",
			setup: func(p *fakePage) {
				p.set(start, &fakeElement{attrs: disabled()})
				p.set(stop, &fakeElement{attrs: disabled()})
			},
			wantRestart: true,
		},
		{
			name: "start disabled stop enabled",
			setup: func(p *fakePage) {
				p.set(start, &fakeElement{attrs: disabled()})
				p.set(stop, &fakeElement{})
			},
			wantRestart: false,
		},
		{
			name:        "stop disabled only",
			setup:       func(p *fakePage) { p.set(stop, &fakeElement{attrs: disabled()}) },
			wantRestart: true,
		},
		{
			name:        "no controls",
			setup:       func(*fakePage) {},
			wantRestart: false,
		},
		{
			name: "start enabled stop unreadable",
			setup: func(p *fakePage) {
				p.set(start, &fakeElement{})
				p.set(stop, &fakeElement{attrErr: errors.New("node detached")})
			},
			wantRestart: true,
		},
		{
			name: "start unreadable",
			setup: func(p *fakePage) {
				p.set(start, &fakeElement{attrErr: errors.New("node detached")})
				p.set(stop, &fakeElement{attrs: disabled()})
			},
			wantRestart: false,
		},
	}

	inspector := application.NewInspector(testProfile().Selectors, application.Timing{}, noSleep)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			tt.setup(page)

			state, err := inspector.ReadControls(context.Background(), page)

			require.NoError(t, err)
			assert.Equal(t, tt.wantRestart, state.NeedsRestart())
		})
	}
}

func TestInspector_ReadRenewal(t *testing.T) {
	page := newFakePage()
	page.set(model.Selector{CSS: "code.balance"}, &fakeElement{text: " 1.25 USD "})
	page.set(model.Selector{CSS: "code.expiration"}, &fakeElement{text: "2026-11-01"})
	renew := page.set(model.Selector{CSS: "button", Text: "Renew Server"}, &fakeElement{text: "Renew Server - 0.00 USD"})

	inspector := application.NewInspector(testProfile().Selectors, application.Timing{}, noSleep)
	offer, control, err := inspector.ReadRenewal(context.Background(), page)

	require.NoError(t, err)
	assert.Equal(t, "1.25 USD", offer.Balance)
	assert.Equal(t, "2026-11-01", offer.Expiration)
	assert.True(t, offer.ControlFound)
	assert.Equal(t, "0.00 USD", offer.Price)
	assert.True(t, offer.Free)
	assert.Same(t, renew, control)
}

func TestInspector_ReadRenewal_NoControl(t *testing.T) {
	inspector := application.NewInspector(testProfile().Selectors, application.Timing{}, noSleep)

	offer, control, err := inspector.ReadRenewal(context.Background(), newFakePage())

	require.NoError(t, err)
	assert.False(t, offer.ControlFound)
	assert.False(t, offer.Free)
	assert.Nil(t, control)
	assert.Empty(t, offer.Balance)
}
