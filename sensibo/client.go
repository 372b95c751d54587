package sensibo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/brutella/hap/log"
	"github.com/go-resty/resty/v2"
)

const (
	BaseURL        = "https://home.sensibo.com/api/v2"
	integration    = "shkb"
	requestTimeout = 20 * time.Second

	podFields = "id,acState,measurements,location,occupancy,smartMode,motionSensors,filtersCleaning,serial,pureBoostConfig,homekitSupported,remoteCapabilities,room,temperatureUnit,productModel"
)

var (
	ErrAPI          = errors.New("sensibo api error")
	ErrUnauthorized = errors.New("sensibo api key rejected")
	ErrNoAPIKey     = errors.New("no sensibo api key configured")
)

// Filter limits which pods GetAllDevices returns
type Filter struct {
	// by location id or name; empty means all locations
	LocationsToInclude []string
	// by pod id, serial or room name
	DevicesToExclude []string
}

type Client struct {
	http   *resty.Client
	filter Filter
}

type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Reason  string          `json:"reason"`
	Message string          `json:"message"`
}

// NewClient builds a client for the cloud API. An empty baseURL uses BaseURL.
func NewClient(apiKey, baseURL string, f Filter) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if baseURL == "" {
		baseURL = BaseURL
	}

	h := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetQueryParam("apiKey", apiKey).
		SetQueryParam("integration", integration).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   h,
		filter: f,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var env envelope

	req := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if body != nil {
		req.SetBody(body)
	}

	log.Debug.Printf("%s %s", method, path)
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}

	if env.Status != "success" {
		return fmt.Errorf("%w: %s %s: %d %s %s", ErrAPI, method, path, resp.StatusCode(), env.Reason, env.Message)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s %s: decoding result: %w", method, path, err)
		}
	}
	return nil
}

func podPath(id string, rest string) string {
	return "/pods/" + url.PathEscape(id) + rest
}

// GetAllDevices lists every pod on the account that passes the filter
func (c *Client) GetAllDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.do(ctx, http.MethodGet, "/users/me/pods?fields="+podFields, nil, &devices); err != nil {
		return nil, err
	}

	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		// never configured
		if d.SmartMode == nil {
			d.SmartMode = &SmartMode{Enabled: false}
		}
		if !c.filter.include(d) {
			log.Debug.Printf("skipping %s (%s)", d.Room.Name, d.ID)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f Filter) include(d Device) bool {
	if len(f.LocationsToInclude) > 0 {
		if d.Location == nil {
			return false
		}
		if !slices.Contains(f.LocationsToInclude, d.Location.ID) && !slices.Contains(f.LocationsToInclude, d.Location.Name) {
			return false
		}
	}

	for _, x := range []string{d.ID, d.Serial, d.Room.Name} {
		if x != "" && slices.Contains(f.DevicesToExclude, x) {
			return false
		}
	}
	return true
}

// GetDeviceEvents returns the recent event log of a pod, in no particular order
func (c *Client) GetDeviceEvents(ctx context.Context, id string) ([]Event, error) {
	var events []Event
	if err := c.do(ctx, http.MethodGet, podPath(id, "/events"), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) SetDeviceACState(ctx context.Context, id string, s ACState) error {
	body := struct {
		ACState ACState `json:"acState"`
	}{s}
	return c.do(ctx, http.MethodPost, podPath(id, "/acStates"), body, nil)
}

func (c *Client) SetDeviceClimateReactState(ctx context.Context, id string, sm SmartMode) error {
	return c.do(ctx, http.MethodPost, podPath(id, "/smartmode"), sm, nil)
}

func (c *Client) EnableDisableClimateReact(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, http.MethodPut, podPath(id, "/smartmode"), body, nil)
}

func (c *Client) EnableDisablePureBoost(ctx context.Context, id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, http.MethodPut, podPath(id, "/pureboost"), body, nil)
}

// SyncDeviceOnState corrects the cloud's idea of the power state without
// sending anything to the unit
func (c *Client) SyncDeviceOnState(ctx context.Context, id string, on bool) error {
	body := struct {
		NewValue bool   `json:"newValue"`
		Reason   string `json:"reason"`
	}{on, ReasonStateCorrectionByUser}
	return c.do(ctx, http.MethodPatch, podPath(id, "/acStates/on"), body, nil)
}

func (c *Client) SetDevicePropertyState(ctx context.Context, id, property string, value any) error {
	body := map[string]any{"newValue": value}
	return c.do(ctx, http.MethodPatch, podPath(id, "/acStates/"+url.PathEscape(property)), body, nil)
}

func (c *Client) ResetFilterIndicator(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, podPath(id, "/cleanFiltersNotification"), nil, nil)
}
