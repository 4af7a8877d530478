package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paycore/internal/gateway"
)

var (
	ErrConfigInvalid   = errors.New("sandbox config invalid")
	ErrRequestFailed   = errors.New("sandbox request failed")
	ErrResponseInvalid = errors.New("sandbox response invalid")
)

const defaultTimeout = 15 * time.Second

// Config holds the sandbox processor connection settings.
type Config struct {
	BaseURL    string `json:"base_url"`
	MerchantID string `json:"merchant_id"`
	APIKey     string `json:"api_key"`
	TimeoutMS  int    `json:"timeout_ms"`
}

// Adapter speaks the sandbox processor's JSON API. It exists to exercise
// the adapter contract in dev rigs; production processors ship as their own
// adapters with the same shape.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates a sandbox adapter.
func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base_url required", ErrConfigInvalid)
	}
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the gateway name.
func (a *Adapter) Name() string { return "sandbox" }

// Real reports that a processor sits behind this adapter.
func (a *Adapter) Real() bool { return true }

// RequiredFields lists what each operation needs before dispatch.
func (a *Adapter) RequiredFields(op gateway.Operation) []gateway.Field {
	switch op {
	case gateway.OpAuthorize, gateway.OpSale:
		return []gateway.Field{
			gateway.FieldAmount,
			gateway.FieldCurrency,
			gateway.FieldReferenceID,
			gateway.FieldToken,
			gateway.FieldBillingName,
		}
	case gateway.OpCapture, gateway.OpCancel, gateway.OpStatus:
		return []gateway.Field{
			gateway.FieldReferenceID,
			gateway.FieldGatewayTxnID,
		}
	case gateway.OpUpdateAccount:
		return []gateway.Field{
			gateway.FieldToken,
			gateway.FieldBillingName,
		}
	default:
		return nil
	}
}

type apiRequest struct {
	MerchantID    string `json:"merchant_id"`
	Reference     string `json:"reference"`
	Token         string `json:"token,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Description   string `json:"description,omitempty"`
	BillingName   string `json:"billing_name,omitempty"`
	BillingStreet string `json:"billing_street,omitempty"`
	BillingCity   string `json:"billing_city,omitempty"`
	BillingState  string `json:"billing_state,omitempty"`
	BillingZip    string `json:"billing_zip,omitempty"`
	AchRoutingNo  string `json:"ach_routing_no,omitempty"`
	AchAccountNo  string `json:"ach_account_no,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type apiResponse struct {
	Approved      bool                   `json:"approved"`
	TransactionID string                 `json:"transaction_id"`
	ResponseCode  string                 `json:"response_code"`
	Message       string                 `json:"message"`
	AchStatus     string                 `json:"ach_status"`
	Extra         map[string]interface{} `json:"extra"`
}

// Authorize places a hold.
func (a *Adapter) Authorize(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/authorize", data)
}

// Capture collects a held amount.
func (a *Adapter) Capture(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/capture", data)
}

// Cancel voids a hold.
func (a *Adapter) Cancel(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/cancel", data)
}

// Sale authorizes and captures in one call.
func (a *Adapter) Sale(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/sale", data)
}

// Status queries a prior transaction's state.
func (a *Adapter) Status(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/status", data)
}

// UpdatePaymentAccount pushes new instrument details for a stored token.
func (a *Adapter) UpdatePaymentAccount(ctx context.Context, data gateway.OperationData) (*gateway.Result, error) {
	return a.post(ctx, "/v1/accounts/update", data)
}

// GetPaymentAccount fetches the stored-account profile for a token.
func (a *Adapter) GetPaymentAccount(ctx context.Context, token string) (*gateway.AccountProfile, error) {
	body, err := json.Marshal(apiRequest{MerchantID: a.cfg.MerchantID, Token: token})
	if err != nil {
		return nil, err
	}
	raw, err := a.do(ctx, "/v1/accounts/get", body)
	if err != nil {
		return nil, err
	}
	var profile struct {
		Token       string `json:"token"`
		BillingName string `json:"billing_name"`
		CardLast4   string `json:"card_last4"`
		ExpMonth    int    `json:"exp_month"`
		ExpYear     int    `json:"exp_year"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return &gateway.AccountProfile{
		Token:       profile.Token,
		BillingName: profile.BillingName,
		CardLast4:   profile.CardLast4,
		ExpMonth:    profile.ExpMonth,
		ExpYear:     profile.ExpYear,
	}, nil
}

func (a *Adapter) post(ctx context.Context, path string, data gateway.OperationData) (*gateway.Result, error) {
	req := apiRequest{
		MerchantID:    a.cfg.MerchantID,
		Reference:     data.Get(gateway.FieldReferenceID),
		Token:         data.Get(gateway.FieldToken),
		Amount:        data.Get(gateway.FieldAmount),
		Currency:      data.Get(gateway.FieldCurrency),
		Description:   data.Get(gateway.FieldDescription),
		BillingName:   data.Get(gateway.FieldBillingName),
		BillingStreet: data.Get(gateway.FieldBillingStreet),
		BillingCity:   data.Get(gateway.FieldBillingCity),
		BillingState:  data.Get(gateway.FieldBillingState),
		BillingZip:    data.Get(gateway.FieldBillingZip),
		AchRoutingNo:  data.Get(gateway.FieldAchRoutingNo),
		AchAccountNo:  data.Get(gateway.FieldAchAccountNo),
		TransactionID: data.Get(gateway.FieldGatewayTxnID),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	raw, err := a.do(ctx, path, body)
	if err != nil {
		return nil, err
	}
	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return &gateway.Result{
		Success:       resp.Approved,
		TransactionID: resp.TransactionID,
		ResponseCode:  resp.ResponseCode,
		Message:       resp.Message,
		AchStatus:     resp.AchStatus,
		Raw:           resp.Extra,
	}, nil
}

func (a *Adapter) do(ctx context.Context, path string, body []byte) ([]byte, error) {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, httpResp.StatusCode)
	}
	return raw, nil
}
