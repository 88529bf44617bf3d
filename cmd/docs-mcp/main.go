// Command docs-mcp runs the docs MCP server over stdio.
// Register it in the chat client with:
//
//	/mcp add docs stdio docs-mcp
package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tutorchat-ai/tutorchat/pkg/mcpserver/docs"
)

func main() {
	s := docs.NewServer()
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
