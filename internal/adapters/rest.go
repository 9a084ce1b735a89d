package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RESTConfig carries the connection settings for a vendor's cloud or
// gateway API. Which fields matter depends on the vendor's auth style:
// Philips embeds APIKey in the URL, Panasonic sends it as a header,
// Home Assistant uses Token as a bearer credential, and Midea appends
// AppKey as a query parameter.
type RESTConfig struct {
	BaseURL  string
	APIKey   string
	Token    string
	AppKey   string
	BridgeID string
}

// maxResponseBody caps how much of a vendor response is read. Vendor
// APIs return small JSON documents; anything larger is a fault.
const maxResponseBody = 1 << 20

// getJSON performs an authenticated GET and decodes the JSON object
// response.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(client, req)
}

// sendJSON performs an authenticated request with a JSON body and
// decodes the JSON object response. Vendors that answer with an empty
// body or a JSON array yield a nil map and no error.
func sendJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding body: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(client, req)
}

// getJSONList performs an authenticated GET against an endpoint that
// answers with a JSON array of objects.
func getJSONList(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrVendorAPI, req.URL.Path, resp.StatusCode)
	}

	var list []map[string]any
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return list, nil
}

func doJSON(client *http.Client, req *http.Request) (map[string]any, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrVendorAPI, req.URL.Path, resp.StatusCode)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		// Some endpoints acknowledge with a JSON array; callers
		// that only care about success see no error here.
		var arr []any
		if json.Unmarshal(data, &arr) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return obj, nil
}
