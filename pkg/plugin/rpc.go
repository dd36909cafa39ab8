package plugin

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// Handshake verifies that a plugin process and the host speak the same
// protocol.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AGENTDECK_PLUGIN",
	MagicCookieValue: "agentdeck-plugin-v1",
}

// PluginMap is the set of plugins the host can dispense.
var PluginMap = map[string]goplugin.Plugin{
	"deck": &DeckRPCPlugin{},
}

// DeckRPCPlugin is the go-plugin glue for DeckPlugin over net/rpc.
type DeckRPCPlugin struct {
	Impl DeckPlugin
}

func (p *DeckRPCPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &DeckRPCServer{Impl: p.Impl}, nil
}

func (p *DeckRPCPlugin) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &DeckRPCClient{client: c}, nil
}

// InvokeArgs are the arguments for the Invoke RPC call.
type InvokeArgs struct {
	Command string
	Payload map[string]any
}

// InvokeResp is the response for the Invoke RPC call.
type InvokeResp struct {
	Result map[string]any
	Error  string
}

// DeckRPCServer runs inside the plugin process.
type DeckRPCServer struct {
	Impl DeckPlugin
}

func (s *DeckRPCServer) Invoke(args *InvokeArgs, resp *InvokeResp) error {
	result, err := s.Impl.Invoke(context.Background(), args.Command, args.Payload)
	resp.Result = result
	if err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// DeckRPCClient is the host-side stub.
type DeckRPCClient struct {
	client *rpc.Client
}

func (c *DeckRPCClient) Invoke(ctx context.Context, command string, payload map[string]any) (map[string]any, error) {
	var resp InvokeResp
	if err := c.client.Call("Plugin.Invoke", &InvokeArgs{Command: command, Payload: payload}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &InvokeError{Message: resp.Error}
	}
	return resp.Result, nil
}

// InvokeError is a command failure reported by the plugin process.
type InvokeError struct {
	Message string
}

func (e *InvokeError) Error() string {
	return e.Message
}

// Serve runs the plugin side of the protocol. Plugin executables call this
// from main with their DeckPlugin implementation.
func Serve(impl DeckPlugin) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			"deck": &DeckRPCPlugin{Impl: impl},
		},
	})
}
