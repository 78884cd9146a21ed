// Demo: plant known abnormal returns in a synthetic market and show that the
// event study recovers them per quality group.
package main

import "biotech-event-study/internal/cli"

func main() {
	cli.ExecuteDemo()
}
