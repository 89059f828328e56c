package hmi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ohowland/ecc_core/internal/pkg/ecc"
	"github.com/ohowland/ecc_core/internal/pkg/webservice"
)

// Client talks to the controller's http api.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the api served at base, e.g. http://localhost:8080.
func NewClient(base string, timeout time.Duration) Client {
	return Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Status fetches the current snapshot.
func (c Client) Status(ctx context.Context) (ecc.Status, error) {
	status := ecc.Status{}
	err := c.do(ctx, http.MethodGet, "/status", &status)
	return status, err
}

// Toggle flips the switch of node pid and returns its new state.
func (c Client) Toggle(ctx context.Context, pid uuid.UUID) (bool, error) {
	ctrl := webservice.SwitchControl{}
	err := c.do(ctx, http.MethodPost, "/switch/"+pid.String()+"/toggle", &ctrl)
	return ctrl.SwitchedOn, err
}

func (c Client) do(ctx context.Context, method, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%v %v: %v", method, path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
