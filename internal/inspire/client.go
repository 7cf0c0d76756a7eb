package inspire

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/inspire-bridge/internal/infrastructure/config"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
)

// maxResponseSize caps vendor response bodies. Real responses are a few
// kilobytes; anything near this limit is not a valid API response.
const maxResponseSize = 1 << 20

// Client talks to the Inspire Home Automation cloud API.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Vendor calls are
//     serialised by the shared RateLimiter.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	password string

	httpClient *http.Client
	limiter    *RateLimiter
	logger     *logging.Logger

	mu         sync.Mutex
	sessionKey string
}

// NewClient creates a vendor API client.
//
// The limiter is shared: pass the same instance to everything that
// talks to the cloud so the account-wide spacing holds across the
// coordinator and user-triggered commands.
//
// Parameters:
//   - cfg: Vendor API settings (credentials, base URL, timeout)
//   - limiter: Shared rate limiter, must not be nil
//   - logger: Structured logger; nil falls back to logging.Default()
func NewClient(cfg config.InspireConfig, limiter *RateLimiter, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		logger:  logger.With("component", "inspire"),
	}
}

// Close releases idle HTTP connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Connect authenticates against the vendor and stores the session key.
//
// Returns:
//   - error: ErrAuthentication on rejected credentials, an HTTP 401/403
//     response, or a response carrying no session key; ErrConnection on
//     transport failure
func (c *Client) Connect(ctx context.Context) error {
	form := url.Values{
		"action":   {"connect"},
		"apikey":   {c.apiKey},
		"username": {c.username},
		"password": {c.password},
	}

	root, err := c.do(ctx, http.MethodPost, form)
	if err != nil {
		// A response the auth endpoint produced but that carries no
		// usable session is an authentication failure, not a transport
		// one. Both sentinels stay checkable.
		if errors.Is(err, ErrBadResponse) {
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return err
	}

	key := root.find("key")
	if key == nil || key.text() == "" {
		return fmt.Errorf("%w: %w: connect returned no session key", ErrAuthentication, ErrBadResponse)
	}

	c.mu.Lock()
	c.sessionKey = key.text()
	c.mu.Unlock()

	c.logger.Debug("session established")
	return nil
}

// Devices returns the account's device list.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	root, err := c.authedDo(ctx, http.MethodGet, "get_devices", nil)
	if err != nil {
		return nil, err
	}

	var devices []Device
	if list := root.find("devices"); list != nil {
		for i := range list.Nodes {
			node := &list.Nodes[i]
			if node.XMLName.Local != "device" {
				continue
			}

			attrs := make(map[string]string, len(node.Nodes))
			for j := range node.Nodes {
				child := &node.Nodes[j]
				attrs[child.XMLName.Local] = child.text()
			}

			dev := Device{Attributes: attrs}
			if v, ok := attrs["device_id"]; ok {
				dev.ID = v
			} else {
				dev.ID = attrs["id"]
			}
			if v, ok := attrs["name"]; ok {
				dev.Name = v
			} else {
				dev.Name = attrs["device_name"]
			}
			if v, ok := attrs["type"]; ok {
				dev.Type = v
			} else {
				dev.Type = attrs["Unit_Type"]
			}

			if dev.ID != "" {
				devices = append(devices, dev)
			}
		}
	}

	return devices, nil
}

// DeviceInformation returns the full attribute set for one device.
// Nested elements (Set_Temperatures and friends) are flattened one
// level so callers see a flat key space.
func (c *Client) DeviceInformation(ctx context.Context, deviceID string) (Information, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrValidation)
	}

	root, err := c.authedDo(ctx, http.MethodGet, "get_device_information", url.Values{
		"device_id": {deviceID},
	})
	if err != nil {
		return nil, err
	}

	info := make(Information)
	if block := root.find("Device_Information"); block != nil {
		for i := range block.Nodes {
			child := &block.Nodes[i]
			if text := child.text(); text != "" {
				info[child.XMLName.Local] = text
				continue
			}
			for j := range child.Nodes {
				sub := &child.Nodes[j]
				if text := sub.text(); text != "" {
					info[sub.XMLName.Local] = text
				}
			}
		}
	}

	return info, nil
}

// CheckConnection reports whether a device is currently connected to
// the vendor cloud. Offline and unknown-device responses map to false
// rather than an error.
func (c *Client) CheckConnection(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, fmt.Errorf("%w: device id is required", ErrValidation)
	}

	root, err := c.authedDo(ctx, http.MethodGet, "check_connection", url.Values{
		"device_id": {deviceID},
	})
	if err != nil {
		if errors.Is(err, ErrDeviceOffline) || errors.Is(err, ErrDeviceNotFound) {
			return false, nil
		}
		return false, err
	}

	return statusCode(root) == StatusUnitActive, nil
}

// AccountSummary returns the account-level summary (connected gateways
// and units). The vendor occasionally rejects this call for accounts
// without a summary; callers should treat an empty map as valid.
func (c *Client) AccountSummary(ctx context.Context) (Summary, error) {
	root, err := c.authedDo(ctx, http.MethodGet, "get_summary", nil)
	if err != nil {
		return nil, err
	}

	summary := make(Summary)
	for i := range root.Nodes {
		child := &root.Nodes[i]
		if child.XMLName.Local == "status" {
			continue
		}
		if text := child.text(); text != "" {
			summary[child.XMLName.Local] = text
			continue
		}
		for j := range child.Nodes {
			sub := &child.Nodes[j]
			if text := sub.text(); text != "" {
				summary[sub.XMLName.Local] = text
			}
		}
	}

	return summary, nil
}

// ensureConnected establishes a session if none exists.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.sessionKey != ""
	c.mu.Unlock()

	if connected {
		return nil
	}
	return c.Connect(ctx)
}

// currentKey returns the session key under the lock.
func (c *Client) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionKey
}

// clearSessionKey drops the stored key after the vendor reports it
// invalid, forcing the next authenticated call to reconnect.
func (c *Client) clearSessionKey() {
	c.mu.Lock()
	c.sessionKey = ""
	c.mu.Unlock()
}

// authedDo performs an authenticated vendor call. On an authentication
// failure it reconnects once and retries the call once; a second
// failure is returned to the caller.
func (c *Client) authedDo(ctx context.Context, method, action string, extra url.Values) (*xmlNode, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	root, err := c.request(ctx, method, action, extra)
	if err != nil && errors.Is(err, ErrAuthentication) {
		c.logger.Debug("session rejected, reconnecting", "action", action)
		if cerr := c.Connect(ctx); cerr != nil {
			return nil, cerr
		}
		root, err = c.request(ctx, method, action, extra)
	}

	return root, err
}

// request builds the form for an authenticated call and executes it.
func (c *Client) request(ctx context.Context, method, action string, extra url.Values) (*xmlNode, error) {
	form := url.Values{}
	for k, vs := range extra {
		form[k] = vs
	}
	form.Set("action", action)
	form.Set("apikey", c.apiKey)
	form.Set("key", c.currentKey())

	return c.do(ctx, method, form)
}

// do executes one HTTP call against the vendor and returns the parsed
// XML document. Every call waits on the shared rate limiter first.
//
// Transport errors are reported without the request URL: for GET calls
// the query string carries the api key and session key, and those must
// never surface in error strings or logs.
func (c *Client) do(ctx context.Context, method string, form url.Values) (*xmlNode, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+form.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrConnection, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Unwrap()
		}
		return nil, fmt.Errorf("%w: %s request: %v", ErrConnection, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrAuthentication, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected HTTP status %d", ErrConnection, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrConnection, err)
	}

	root := &xmlNode{}
	if err := xml.Unmarshal(body, root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if code := statusCode(root); code > 0 {
		message := ""
		if status := root.find("status"); status != nil {
			if m := status.find("message"); m != nil {
				message = m.text()
			}
		}
		if code == StatusInvalidKey {
			c.clearSessionKey()
		}
		if serr := statusError(code, message); serr != nil {
			return nil, serr
		}
	}

	return root, nil
}

// statusCode extracts the vendor status code, or 0 if absent.
func statusCode(root *xmlNode) int {
	status := root.find("status")
	if status == nil {
		return 0
	}
	codeNode := status.find("code")
	if codeNode == nil {
		return 0
	}
	code, err := strconv.Atoi(codeNode.text())
	if err != nil {
		return 0
	}
	return code
}

// xmlNode is a generic XML element. The vendor wraps responses in
// varying envelopes, so responses are parsed as a tree and searched by
// element name rather than unmarshalled into fixed structs.
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// find returns the first descendant element with the given local name,
// breadth-first, or nil.
func (n *xmlNode) find(name string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	for i := range n.Nodes {
		if found := n.Nodes[i].find(name); found != nil {
			return found
		}
	}
	return nil
}

// text returns the element's trimmed character data.
func (n *xmlNode) text() string {
	return strings.TrimSpace(n.Content)
}
