package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DialogURLBase is Dialog's GET campaign endpoint
const DialogURLBase = "https://e-sms.dialog.lk/api/v1/message-via-url/create/url-campaign"

var nonDigits = regexp.MustCompile(`[^0-9]`)

// DialogURLGateway sends SMS through Dialog's GET request API, authenticated
// with an esmsqk key
type DialogURLGateway struct {
	apiKey  string
	mask    string
	baseURL string
	client  *http.Client
}

// NewDialogURLGateway creates a new Dialog URL gateway instance
func NewDialogURLGateway(apiKey, mask string) *DialogURLGateway {
	return &DialogURLGateway{
		apiKey:  apiKey,
		mask:    mask,
		baseURL: DialogURLBase,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FormatPhoneForDialog converts a Sri Lankan mobile number to Dialog's 9-digit form.
// Input: "0771234567", "94771234567" or "+94771234567". Output: "771234567".
func FormatPhoneForDialog(phone string) (string, error) {
	phone = nonDigits.ReplaceAllString(phone, "")

	if strings.HasPrefix(phone, "94") && len(phone) == 11 {
		phone = phone[2:]
	}
	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		phone = phone[1:]
	}

	if len(phone) != 9 {
		return "", fmt.Errorf("invalid phone number length after formatting: %d digits (expected 9)", len(phone))
	}
	if !strings.HasPrefix(phone, "7") {
		return "", fmt.Errorf("invalid Sri Lankan mobile prefix: must start with 7")
	}

	return phone, nil
}

// Send delivers one message. Dialog answers "1" on success and an error id otherwise.
func (d *DialogURLGateway) Send(ctx context.Context, phone, message string) error {
	formattedPhone, err := FormatPhoneForDialog(phone)
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	params := url.Values{}
	params.Add("esmsqk", d.apiKey)
	params.Add("list", formattedPhone)
	params.Add("source_address", d.mask)
	params.Add("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}
	responseStr := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS API returned status %d: %s", resp.StatusCode, responseStr)
	}
	if responseStr != "1" {
		return fmt.Errorf("SMS sending failed with error code: %s", responseStr)
	}

	return nil
}

func (d *DialogURLGateway) Name() string {
	return "Dialog URL Gateway"
}
