// Command forestfire runs the forest-fire analysis pipeline.
package main

import "github.com/YuminosukeSato/forestfire/cli"

func main() {
	cli.Execute()
}
