// Command streamgate bridges a local MCP child process to remote HTTP
// clients over a single multiplexing endpoint.
package main

import "github.com/streamgate/streamgate/cmd/streamgate/cmd"

func main() {
	cmd.Execute()
}
