package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"RouteSim/internal/biz"
	perrors "RouteSim/pkg/errors"
	plog "RouteSim/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	paymentsPath = "/payments"
	opSubmit     = "submit_payment"

	headerSimulationStatus    = "x-simulation-payment-status"
	headerSimulationConnector = "x-simulation-payment-connector"
)

type customer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PhoneCountryCode string `json:"phone_country_code"`
}

type address struct {
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	Line3     string `json:"line3"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type phone struct {
	Number      string `json:"number"`
	CountryCode string `json:"country_code"`
}

type billing struct {
	Address address `json:"address"`
	Phone   phone   `json:"phone"`
	Email   string  `json:"email"`
}

type paymentMethodData struct {
	Card    biz.Instrument `json:"card"`
	Billing billing        `json:"billing"`
}

type routingData struct {
	Connector           string `json:"connector"`
	MerchantConnectorID string `json:"merchant_connector_id,omitempty"`
}

type routingOverride struct {
	Type string      `json:"type"`
	Data routingData `json:"data"`
}

type paymentPayload struct {
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	Confirm            bool              `json:"confirm"`
	ProfileID          string            `json:"profile_id"`
	CaptureMethod      string            `json:"capture_method"`
	AuthenticationType string            `json:"authentication_type"`
	Customer           customer          `json:"customer"`
	PaymentMethod      string            `json:"payment_method"`
	PaymentMethodType  string            `json:"payment_method_type"`
	PaymentMethodData  paymentMethodData `json:"payment_method_data"`
	Routing            *routingOverride  `json:"routing,omitempty"`
}

type paymentResult struct {
	Status              string `json:"status"`
	ConnectorName       string `json:"connector_name"`
	MerchantConnectorID string `json:"merchant_connector_id"`
}

var simulatedBilling = billing{
	Address: address{
		Line1:     "1467",
		Line2:     "Harrison Street",
		Line3:     "Harrison Street",
		City:      "San Francisco",
		State:     "California",
		Zip:       "94122",
		Country:   "US",
		FirstName: "Joseph",
		LastName:  "Doe",
	},
	Phone: phone{Number: "8056594427", CountryCode: "+91"},
	Email: "guest@example.com",
}

// PaymentClient implements biz.PaymentGateway against the payments API.
type PaymentClient struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	profileID string
	log       *plog.LogHelper
}

// NewPaymentClient creates a payments client.
func NewPaymentClient(d *Data, logger log.Logger) *PaymentClient {
	return &PaymentClient{
		client:    d.httpClient,
		baseURL:   d.upstream.BaseURL,
		apiKey:    d.upstream.APIKey,
		profileID: d.upstream.ProfileID,
		log:       plog.NewLogHelper(logger),
	}
}

// Submit implements biz.PaymentGateway. A declined payment comes back with
// OK=false; only transport failures and malformed 2xx bodies are errors.
func (c *PaymentClient) Submit(ctx context.Context, req biz.PaymentRequest) (biz.PaymentResponse, error) {
	payload := c.buildPayload(req)

	resp, err := doJSON(ctx, c.client, http.MethodPost, joinURL(c.baseURL, paymentsPath),
		map[string]string{headerAPIKey: c.apiKey}, payload, opSubmit)
	if err != nil {
		return biz.PaymentResponse{}, err
	}

	out := biz.PaymentResponse{
		OK:              resp.OK(),
		HeaderStatus:    resp.Header.Get(headerSimulationStatus),
		HeaderConnector: resp.Header.Get(headerSimulationConnector),
	}

	var result paymentResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		if out.OK {
			return biz.PaymentResponse{}, perrors.NewDecodeError(opSubmit, err)
		}
		c.log.PaymentWarn(ctx, "payment rejected",
			"index", req.Index,
			"http_status", resp.StatusCode,
			"error", perrors.NewHTTPStatusError(opSubmit, resp.StatusCode, resp.Body),
		)
		return out, nil
	}

	out.Status = result.Status
	out.ConnectorName = result.ConnectorName
	out.MerchantConnectorID = result.MerchantConnectorID
	if !out.OK {
		c.log.Payment(ctx, "payment rejected", "index", req.Index, "http_status", resp.StatusCode, "status", result.Status)
	}
	return out, nil
}

func (c *PaymentClient) buildPayload(req biz.PaymentRequest) paymentPayload {
	payload := paymentPayload{
		Amount:             req.Amount,
		Currency:           req.Currency,
		Confirm:            true,
		ProfileID:          c.profileID,
		CaptureMethod:      "automatic",
		AuthenticationType: "no_three_ds",
		Customer: customer{
			ID:               customerID(req),
			Name:             "John Doe",
			Email:            "customer@example.com",
			Phone:            "9999999999",
			PhoneCountryCode: "+1",
		},
		PaymentMethod:     "card",
		PaymentMethodType: "credit",
		PaymentMethodData: paymentMethodData{
			Card:    req.Instrument,
			Billing: simulatedBilling,
		},
	}
	if req.Routing != nil {
		payload.Routing = &routingOverride{
			Type: "single",
			Data: routingData{
				Connector:           req.Routing.Connector,
				MerchantConnectorID: req.Routing.MerchantConnectorID,
			},
		}
	}
	return payload
}

// customerID is stable per run and attempt; attempts outside a run get a
// random id.
func customerID(req biz.PaymentRequest) string {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return fmt.Sprintf("cus_sim_%s_%d", strings.ReplaceAll(runID, "-", ""), req.Index)
}
