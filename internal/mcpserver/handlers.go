package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *StreamClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *StreamClient) *Handlers {
	return &Handlers{client: client}
}

// HandleQueryStream looks up a single stream by ID.
func (h *Handlers) HandleQueryStream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := req.GetString("stream_id", "")
	if streamID == "" {
		return mcp.NewToolResultError("stream_id is required"), nil
	}

	raw, err := h.client.QueryStream(ctx, streamID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query stream: %v", err)), nil
	}

	text, err := formatStream(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse stream: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListStreams pages through registered streams.
func (h *Handlers) HandleListStreams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startAfter := req.GetString("start_after", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListStreams(ctx, startAfter, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list streams: %v", err)), nil
	}

	text, err := formatStreamList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse streams: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleQueryPosition looks up an owner's position in a stream.
func (h *Handlers) HandleQueryPosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := req.GetString("stream_id", "")
	if streamID == "" {
		return mcp.NewToolResultError("stream_id is required"), nil
	}
	owner := req.GetString("owner", "")
	if owner == "" {
		return mcp.NewToolResultError("owner is required"), nil
	}

	raw, err := h.client.QueryPosition(ctx, streamID, owner)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query position: %v", err)), nil
	}

	text, err := formatPosition(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse position: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleAveragePrice computes a stream's realized average price so far.
func (h *Handlers) HandleAveragePrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := req.GetString("stream_id", "")
	if streamID == "" {
		return mcp.NewToolResultError("stream_id is required"), nil
	}

	raw, err := h.client.AveragePrice(ctx, streamID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute average price: %v", err)), nil
	}

	text, err := formatAveragePrice(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse average price: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRegistryParams returns the protocol-wide registry parameters.
func (h *Handlers) HandleRegistryParams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.RegistryParams(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get registry params: %v", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleSubscribe deposits in_denom into a stream.
func (h *Handlers) HandleSubscribe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := req.GetString("stream_id", "")
	if streamID == "" {
		return mcp.NewToolResultError("stream_id is required"), nil
	}
	amount := req.GetString("amount", "")
	if amount == "" {
		return mcp.NewToolResultError("amount is required"), nil
	}
	inDenom := req.GetString("in_denom", "")
	if inDenom == "" {
		return mcp.NewToolResultError("in_denom is required"), nil
	}

	raw, err := h.client.Subscribe(ctx, streamID, amount, inDenom)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Subscribe failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Deposited %s into stream %s.\n\n%s", amount, streamID, formatJSON(raw))), nil
}

// HandleWithdraw returns the unspent input of a stream position to its owner.
func (h *Handlers) HandleWithdraw(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := req.GetString("stream_id", "")
	if streamID == "" {
		return mcp.NewToolResultError("stream_id is required"), nil
	}

	raw, err := h.client.Withdraw(ctx, streamID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Withdraw failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Withdrawal from stream %s complete.\n\n%s", streamID, formatJSON(raw))), nil
}

// --- Formatting helpers ---

func formatStream(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Stream %s (%s)\n", getString(m, "id"), getString(m, "name")))
	sb.WriteString(fmt.Sprintf("  Status: %s\n", getString(m, "status")))
	sb.WriteString(fmt.Sprintf("  Out: %s %s (remaining %s)\n", getString(m, "outTotal"), getString(m, "outDenom"), getString(m, "outRemaining")))
	sb.WriteString(fmt.Sprintf("  In: %s (supply %s, spent %s)\n", getString(m, "inDenom"), getString(m, "inSupply"), getString(m, "spentIn")))
	sb.WriteString(fmt.Sprintf("  Shares: %s\n", getString(m, "shares")))
	if v := getString(m, "startTime"); v != "" {
		sb.WriteString(fmt.Sprintf("  Window: %s -> %s\n", v, getString(m, "endTime")))
	}
	return sb.String(), nil
}

func formatStreamList(raw json.RawMessage) (string, error) {
	var resp struct {
		Streams []map[string]any `json:"streams"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		if err := json.Unmarshal(raw, &resp.Streams); err != nil {
			return "", fmt.Errorf("unexpected streams response format")
		}
	}

	if len(resp.Streams) == 0 {
		return "No streams found.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d stream(s):\n\n", len(resp.Streams)))
	for i, s := range resp.Streams {
		sb.WriteString(fmt.Sprintf("%d. %s (%s) — %s\n", i+1, getString(s, "id"), getString(s, "name"), getString(s, "status")))
		sb.WriteString(fmt.Sprintf("   %s -> %s, remaining %s\n", getString(s, "inDenom"), getString(s, "outDenom"), getString(s, "outRemaining")))
	}
	return sb.String(), nil
}

func formatPosition(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Position for %s in stream %s:\n", getString(m, "owner"), getString(m, "streamId")))
	sb.WriteString(fmt.Sprintf("  Shares: %s\n", getString(m, "shares")))
	sb.WriteString(fmt.Sprintf("  In balance: %s\n", getString(m, "inBalance")))
	sb.WriteString(fmt.Sprintf("  Purchased so far: %s\n", getString(m, "purchased")))
	sb.WriteString(fmt.Sprintf("  Spent so far: %s\n", getString(m, "spent")))
	return sb.String(), nil
}

func formatAveragePrice(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	distributed := getString(m, "outDistributedSoFar")
	if distributed == "" || distributed == "0" {
		return fmt.Sprintf("Stream %s has not distributed any output yet.", getString(m, "streamId")), nil
	}

	return fmt.Sprintf(
		"Stream %s average price: %s (current instantaneous price %s; spent %s / distributed %s)",
		getString(m, "streamId"), getString(m, "averagePrice"), getString(m, "currentStreamedPrice"),
		getString(m, "spentInSoFar"), distributed,
	), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}
