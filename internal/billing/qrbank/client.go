package qrbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"club-system/internal/status"
)

type ClientConfig struct {
	BaseURL      string `json:"baseUrl"`
	MerchantID   string `json:"merchantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	HMACKey      string `json:"hmacKey"`
}

type Client struct {
	// baseURL is the base url of the gateway backend.
	baseURL string

	// merchantID identifies the club's merchant account.
	merchantID string

	// clientID is the integration id issued by the gateway.
	clientID string

	// clientSecret is the integration secret issued by the gateway.
	clientSecret string

	// hmacKey signs every request body.
	hmacKey string

	// accessToken is used to authenticate with the gateway backend.
	accessToken string

	// mu is used to lock access token.
	mu sync.Mutex

	// toggleTokenRefresher is used to notify token refresher to refresh token.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:      c.BaseURL,
		merchantID:   c.MerchantID,
		clientID:     c.ClientID,
		clientSecret: c.ClientSecret,
		hmacKey:      c.HMACKey,

		// make a buffered channel to avoid blocking.
		toggleTokenRefresher: make(chan struct{}, 1),

		// set http client with timeout.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// refreshAccessToken runs until ctx is cancelled and renews the token on a
// fixed period, or immediately once a call hits a 401, with exponential
// backoff while the gateway is unreachable.
func (c *Client) refreshAccessToken(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("refreshAccessToken: renewing after unauthorized response")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("refreshAccessToken: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect makes http call to perform authentication with the gateway.
func (c *Client) connect(ctx context.Context) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("connect: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"merchantId":%q,"clientId":%q,"clientSecret":%q}`, number, c.merchantID, c.clientID, c.clientSecret)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/qr/v2/authenticate"), bodyReader)
	if err != nil {
		return "", fmt.Errorf("connect: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("connect: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.New("connect: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connect: resp.StatusCode: %d", resp.StatusCode)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("connect: json.Decode: %v", err)
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("connect: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	accessToken := fmt.Sprintf("%s %s", reply.Data.TokenType, reply.Data.AccessToken)
	return accessToken, nil
}

// generateQR asks the gateway backend for an EMV QR payload for one bill.
func (c *Client) generateQR(ctx context.Context, f *status.QRForm) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("generateQR: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"merchantId":%q,"txnAmount":%s,"billNumber":%q,"referenceLabel":%q,"terminalLabel":%q,"mobileNo":%q}`,
		number, f.MerchantID, f.Amount, f.BillNumber, f.ReferenceLabel, f.TerminalLabel, f.Phone)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/qr/v2/generate"), bodyReader)
	if err != nil {
		return "", fmt.Errorf("generateQR: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("generateQR: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", errors.New("generateQR: resp.StatusCode: 401 => Unauthorized")
	}

	var reply struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Data    struct {
			MerchantID string `json:"merchantId"`
			EmvCode    string `json:"emv"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("generateQR: json.Decode: %w", err)
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("generateQR: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	return reply.Data.EmvCode, nil
}

// checkTransaction asks the gateway backend for the state of one bill.
func (c *Client) checkTransaction(ctx context.Context, billNumber string) (*status.Confirmation, error) {
	number, err := randomNumber()
	if err != nil {
		return nil, fmt.Errorf("checkTransaction: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"billNumber":%q}`, number, billNumber)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/qr/v2/transactions"), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("checkTransaction: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkTransaction: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return nil, errors.New("checkTransaction: resp.StatusCode: 401 => Unauthorized")
	}

	var reply struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Data    struct {
			payload
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("checkTransaction: json.Decode: %v", err)
	}
	if reply.Status != "OK" {
		if reply.Status == "NOT_FOUND" {
			return nil, status.ErrRefCodeNotFound
		}
		return nil, fmt.Errorf("checkTransaction: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	confirmation, err := reply.Data.payload.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("checkTransaction: reply.Data: %v", err)
	}

	return confirmation, nil
}
