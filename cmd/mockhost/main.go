// Command mockhost serves configurable mock HTTP APIs.
package main

import "github.com/mockhost/mockhost/pkg/cli"

func main() {
	cli.Execute()
}
