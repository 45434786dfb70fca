package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client talks to a running coordinator over its control socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the control socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	err := c.rpc.Close()
	if err == rpc.ErrShutdown {
		return nil
	}
	return err
}

// Exit asks the coordinator to stop at its next tick.
func (c *Client) Exit() error {
	return c.call("Exit", ExitRequest{}, &ExitResponse{})
}

// Status reports where the coordinator is in its dispatch sequence.
func (c *Client) Status() (*StatusResponse, error) {
	resp := new(StatusResponse)
	if err := c.call("Status", StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.rpc.Call(ServiceName+"."+method, req, resp)
}
