package main

import "biotech-event-study/internal/cli"

func main() {
	cli.ExecuteUpdateSponsors()
}
