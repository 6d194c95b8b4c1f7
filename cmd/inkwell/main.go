// Command inkwell manages delta-compressed document histories.
package main

import "github.com/mesh-intelligence/inkwell/internal/cli"

func main() {
	cli.Execute()
}
