// Stream engine MCP server - exposes query_stream, list_streams, query_position,
// average_price, registry_params, subscribe and withdraw as MCP tools for LLMs.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/streamswap/engine/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL:    envOrDefault("STREAMSWAP_API_URL", "http://localhost:8080"),
		APIKey:    os.Getenv("STREAMSWAP_API_KEY"),
		OwnerAddr: os.Getenv("STREAMSWAP_OWNER_ADDRESS"),
	}

	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "STREAMSWAP_API_KEY is required")
		os.Exit(1)
	}
	if cfg.OwnerAddr == "" {
		fmt.Fprintln(os.Stderr, "STREAMSWAP_OWNER_ADDRESS is required")
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
