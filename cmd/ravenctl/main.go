// ravenctl sends test events to a Sentry collector and manages the local
// crash queue.
package main

import "github.com/strongdm/raven/internal/cli"

func main() {
	cli.Execute()
}
