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

	"github.com/vidyutseva/voice-line/internal/config"
)

// DefaultAPIBaseURL is the Twilio REST API base URL.
const DefaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// Client is a Twilio REST API client. Safe for concurrent use.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Twilio client from service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		baseURL:    DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AccountSID returns the configured account SID.
func (c *Client) AccountSID() string {
	return c.accountSID
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// DownloadRecording fetches the WAV audio for a recording callback. The
// gateway hands out the recording URL without an extension; appending
// ".wav" selects the 8 kHz WAV rendition.
func (c *Client) DownloadRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	if !strings.HasSuffix(recordingURL, ".wav") {
		recordingURL += ".wav"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recording download returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording body: %w", err)
	}
	return audio, nil
}

// Call represents a Twilio call resource.
type Call struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	From   string `json:"from"`
	Status string `json:"status"`
}

// MakeCall initiates an outbound call that fetches its instructions from
// twimlURL when answered.
func (c *Client) MakeCall(ctx context.Context, to, from, twimlURL string) (*Call, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", from)
	data.Set("Url", twimlURL)
	data.Set("Method", http.MethodPost)

	var call Call
	if err := c.post(ctx, endpoint, data, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// PhoneNumber represents a Twilio incoming phone number.
type PhoneNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
	VoiceURL     string `json:"voice_url"`
	VoiceMethod  string `json:"voice_method"`
}

type phoneNumberList struct {
	PhoneNumbers []PhoneNumber `json:"incoming_phone_numbers"`
}

// ListPhoneNumbers returns all incoming phone numbers on the account.
func (c *Client) ListPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers.json", c.baseURL, c.accountSID)

	var list phoneNumberList
	if err := c.get(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return list.PhoneNumbers, nil
}

// UpdateVoiceURL points a phone number's voice webhook at voiceURL.
func (c *Client) UpdateVoiceURL(ctx context.Context, phoneNumber, voiceURL string) (*PhoneNumber, error) {
	numbers, err := c.ListPhoneNumbers(ctx)
	if err != nil {
		return nil, err
	}

	var target *PhoneNumber
	for i := range numbers {
		if numbers[i].PhoneNumber == phoneNumber {
			target = &numbers[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("phone number %s not found on account", phoneNumber)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers/%s.json", c.baseURL, c.accountSID, target.SID)

	data := url.Values{}
	data.Set("VoiceUrl", voiceURL)
	data.Set("VoiceMethod", http.MethodPost)

	var updated PhoneNumber
	if err := c.post(ctx, endpoint, data, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// APIError represents a Twilio API error response.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio error %d: %s", e.Code, e.Message)
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, endpoint string, data url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return fmt.Errorf("twilio error: %s", string(body))
		}
		return &apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
