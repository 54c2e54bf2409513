package management

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client dials the management socket once per call — there is no
// persistent connection to manage, matching the low request rate of a
// CLI companion talking to its daemon.
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return c.Timeout
}

func (c *Client) call(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, c.timeout())
	if err != nil {
		return Response{}, fmt.Errorf("management: dial %s: %w", c.SocketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout()))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("management: send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("management: read response: %w", err)
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("management: %s", resp.Error)
	}
	return resp, nil
}

// List returns the current per-interface status table.
func (c *Client) List() ([]InterfaceStatus, error) {
	resp, err := c.call(Request{Op: OpList})
	if err != nil {
		return nil, err
	}
	return resp.Interfaces, nil
}

// SwapExclusion toggles the swap bit for name and returns the resulting
// effective-exclusion state.
func (c *Client) SwapExclusion(name string) (bool, error) {
	resp, err := c.call(Request{Op: OpSwapExclusion, Name: name})
	if err != nil {
		return false, err
	}
	if resp.Excluded == nil {
		return false, fmt.Errorf("management: server did not return an exclusion state")
	}
	return *resp.Excluded, nil
}

// ResetExclusions clears every swap bit.
func (c *Client) ResetExclusions() error {
	_, err := c.call(Request{Op: OpResetExclusions})
	return err
}

// Include idempotently ensures name is not excluded.
func (c *Client) Include(name string) error {
	_, err := c.call(Request{Op: OpInclude, Name: name})
	return err
}

// Exclude idempotently ensures name is excluded.
func (c *Client) Exclude(name string) error {
	_, err := c.call(Request{Op: OpExclude, Name: name})
	return err
}
