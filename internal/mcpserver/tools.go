package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the stream engine MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolQueryStream = mcp.NewTool("query_stream",
	mcp.WithDescription(
		"Look up a single stream sale by ID. Returns its status, out total and "+
			"remaining, in supply and spent, shares, and start/end times."),
	mcp.WithString("stream_id",
		mcp.Required(),
		mcp.Description("The stream's ID (e.g. 'str_abc123')")),
)

var ToolListStreams = mcp.NewTool("list_streams",
	mcp.WithDescription(
		"Page through registered stream sales on the engine. Use start_after "+
			"with the last ID from a previous page to continue."),
	mcp.WithString("start_after",
		mcp.Description("Stream ID to start after, for pagination")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of streams to return (default 20)")),
)

var ToolQueryPosition = mcp.NewTool("query_position",
	mcp.WithDescription(
		"Look up an owner's position in a stream: shares held, in_denom balance, "+
			"out_denom purchased, and spent-in amount as of the last reconciliation."),
	mcp.WithString("stream_id",
		mcp.Required(),
		mcp.Description("The stream's ID")),
	mcp.WithString("owner",
		mcp.Required(),
		mcp.Description("The position owner's address (e.g. '0x1234...')")),
)

var ToolAveragePrice = mcp.NewTool("average_price",
	mcp.WithDescription(
		"Compute a stream's realized average price so far: total in_denom "+
			"spent divided by total out_denom distributed."),
	mcp.WithString("stream_id",
		mcp.Required(),
		mcp.Description("The stream's ID")),
)

var ToolRegistryParams = mcp.NewTool("registry_params",
	mcp.WithDescription(
		"Get the protocol-wide registry parameters: accepted in-denoms, "+
			"minimum stream durations, and creation fee."),
)

var ToolSubscribe = mcp.NewTool("subscribe",
	mcp.WithDescription(
		"Deposit in_denom into a stream sale on behalf of the configured owner, "+
			"opening or enlarging a position."),
	mcp.WithString("stream_id",
		mcp.Required(),
		mcp.Description("The stream's ID")),
	mcp.WithString("amount",
		mcp.Required(),
		mcp.Description("Amount of in_denom to deposit")),
	mcp.WithString("in_denom",
		mcp.Required(),
		mcp.Description("The input denom being deposited; must match the stream's in_denom")),
)

var ToolWithdraw = mcp.NewTool("withdraw",
	mcp.WithDescription(
		"Withdraw all unspent in_denom from the configured owner's position in a "+
			"stream, giving up the matching shares."),
	mcp.WithString("stream_id",
		mcp.Required(),
		mcp.Description("The stream's ID")),
)
