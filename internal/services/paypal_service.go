package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"mailgrid/internal/common"
)

// PayPalService wraps the PayPal Orders v2 REST API. Access tokens are
// cached until shortly before expiry.
type PayPalService interface {
	CreateOrder(ctx context.Context, referenceID string, amount float64, currency string) (*PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error)
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type PayPalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

type PayPalCapture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paypalService struct {
	clientID  string
	secret    string
	webhookID string
	baseURL   string
	http      *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalService(clientID, secret, webhookID, baseURL string) PayPalService {
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &paypalService{
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *paypalService) getAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token request failed: %d %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)
	return s.accessToken, nil
}

// CreateOrder creates a checkout order for the given amount. referenceID is
// sent as the PayPal-Request-Id so a retried call cannot create a second
// order.
func (s *paypalService) CreateOrder(ctx context.Context, referenceID string, amount float64, currency string) (*PayPalOrder, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": referenceID,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         strconv.FormatFloat(amount, 'f', 2, 64),
				},
			},
		},
	}

	body, err := s.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", payload, map[string]string{
		"PayPal-Request-Id": referenceID,
	})
	if err != nil {
		return nil, err
	}

	order := &PayPalOrder{}
	if err := json.Unmarshal(body, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *paypalService) CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error) {
	body, err := s.doRequest(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, nil)
	if err != nil {
		return nil, err
	}

	capture := &PayPalCapture{}
	if err := json.Unmarshal(body, capture); err != nil {
		return nil, err
	}
	return capture, nil
}

// VerifyWebhookSignature asks PayPal to verify the delivery. Anything other
// than a SUCCESS verdict is rejected.
func (s *paypalService) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	payload := map[string]interface{}{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        s.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	respBody, err := s.doRequest(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, nil)
	if err != nil {
		return err
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return err
	}
	if result.VerificationStatus != "SUCCESS" {
		return common.ErrInvalidSignature
	}
	return nil
}

func (s *paypalService) doRequest(ctx context.Context, method, path string, payload interface{}, extraHeaders map[string]string) ([]byte, error) {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("paypal %s %s failed: %d %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}
