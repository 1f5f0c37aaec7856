// Command minicrm tracks sales leads and partners from the terminal or
// over a JSON API.
package main

import "github.com/mesh-intelligence/minicrm/internal/cli"

func main() {
	cli.Execute()
}
