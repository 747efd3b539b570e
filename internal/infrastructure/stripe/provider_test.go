package stripeinfra

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lumos-api/internal/application/payment"
	"github.com/lumos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type mockPortal struct{ mock.Mock }

func (m *mockPortal) New(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	args := m.Called(params)
	if s, _ := args.Get(0).(*stripe.BillingPortalSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	if s, _ := args.Get(0).(*stripe.CheckoutSession); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreatePortalSession(t *testing.T) {
	portal := &mockPortal{}
	portal.On("New", mock.MatchedBy(func(p *stripe.BillingPortalSessionParams) bool {
		return *p.Customer == "cus_1" && *p.ReturnURL == "https://lumos.dev/dashboard/billing" && p.Context != nil
	})).Return(&stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/1"}, nil)

	p := &Provider{portal: portal}
	url, err := p.CreatePortalSession(context.Background(), payment.PortalRequest{
		CustomerID: "cus_1",
		ReturnURL:  "https://lumos.dev/dashboard/billing",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/1", url)
	portal.AssertExpectations(t)
}

func TestCreateCheckoutSession_MapsRequest(t *testing.T) {
	var got *stripe.CheckoutSessionParams
	checkout := &mockCheckout{}
	checkout.On("New", mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(0).(*stripe.CheckoutSessionParams)
	}).Return(&stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/1"}, nil)

	p := &Provider{checkout: checkout}
	url, err := p.CreateCheckoutSession(context.Background(), payment.CheckoutRequest{
		SuccessURL:               "https://lumos.dev/dashboard/billing",
		CancelURL:                "https://lumos.dev/dashboard/billing",
		PaymentMethodTypes:       []string{"alipay", "wechat_pay"},
		WeChatPayClient:          "web",
		Mode:                     "payment",
		BillingAddressCollection: "auto",
		CustomerEmail:            "a@b.com",
		LineItems:                []payment.LineItem{{Price: "price_pro", Quantity: 1}},
		Metadata:                 map[string]string{payment.MetadataUserID: "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/1", url)

	require.NotNil(t, got)
	assert.Equal(t, []*string{stripe.String("alipay"), stripe.String("wechat_pay")}, got.PaymentMethodTypes)
	require.NotNil(t, got.PaymentMethodOptions)
	assert.Equal(t, "web", *got.PaymentMethodOptions.WeChatPay.Client)
	assert.Equal(t, "payment", *got.Mode)
	assert.Equal(t, "always", *got.CustomerCreation)
	assert.Equal(t, "auto", *got.BillingAddressCollection)
	assert.Equal(t, "a@b.com", *got.CustomerEmail)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "price_pro", *got.LineItems[0].Price)
	assert.Equal(t, int64(1), *got.LineItems[0].Quantity)
	assert.Equal(t, "u1", got.Metadata["userId"])
}

func TestCheckoutParams_NoWeChatOptionsWithoutWeChat(t *testing.T) {
	params := checkoutParams(payment.CheckoutRequest{
		PaymentMethodTypes: []string{"card"},
		WeChatPayClient:    "web",
		Mode:               "subscription",
	})
	assert.Nil(t, params.PaymentMethodOptions)
	assert.Nil(t, params.CustomerCreation)
}

func TestCreateCheckoutSession_StripeError(t *testing.T) {
	checkout := &mockCheckout{}
	checkout.On("New", mock.Anything).Return(nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: "No such price"})

	_, err := (&Provider{checkout: checkout}).CreateCheckoutSession(context.Background(), payment.CheckoutRequest{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDispatch))
	var de *domain.DispatchError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "resource_missing", de.Code)
	assert.Equal(t, "No such price", de.Message)
}

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyEvent_CheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"customer": "cus_1",
			"subscription": null,
			"metadata": {"userId": "u1"}
		}}
	}`)

	ev, err := NewWebhook("whsec_test").VerifyEvent(payload, sign(payload, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, payment.EventCheckoutCompleted, ev.Type)
	require.NotNil(t, ev.Checkout)
	assert.Equal(t, payment.Checkout{UserID: "u1", CustomerID: "cus_1"}, *ev.Checkout)
}

func TestVerifyEvent_OtherType(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{}}}`)

	ev, err := NewWebhook("whsec_test").VerifyEvent(payload, sign(payload, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "invoice.paid", ev.Type)
	assert.Nil(t, ev.Checkout)
}

func TestVerifyEvent_BadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := NewWebhook("whsec_test").VerifyEvent(payload, sign(payload, "whsec_other"))
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
