package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"duochat/internal/config"
)

const defaultBaseURL = "https://verify.twilio.com/v2"

// TwilioClient talks to the Twilio Verify REST API.
type TwilioClient struct {
	SID       string
	Token     string
	VerifySID string
	baseURL   string
	http      *http.Client
}

func NewTwilioClient(
	cfg config.TwilioConfig,
) *TwilioClient {
	return &TwilioClient{
		SID:       cfg.SID,
		Token:     cfg.Token,
		VerifySID: cfg.VerifySID,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TwilioClient) SendOTP(ctx context.Context, phone string) error {
	data := url.Values{}
	data.Set("To", phone)
	data.Set("Channel", "sms")

	resp, err := t.post(ctx, "Verifications", data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (t *TwilioClient) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	data := url.Values{}
	data.Set("To", phone)
	data.Set("Code", code)

	resp, err := t.post(ctx, "VerificationCheck", data)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	// Twilio answers 404 once a verification has expired or been used.
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, statusError(resp)
	}
	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("twilio: decode verification check: %w", err)
	}
	return result.Status == "approved", nil
}

func (t *TwilioClient) post(ctx context.Context, resource string, data url.Values) (*http.Response, error) {
	apiURL := fmt.Sprintf("%s/Services/%s/%s", t.baseURL, t.VerifySID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(t.SID, t.Token)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio: %s: %w", resource, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("twilio: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
