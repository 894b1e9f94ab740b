// Command tracking records and reports change history of PostgreSQL tables.
package main

import "github.com/aqasim81/table-tracking/internal/cli"

func main() {
	cli.Execute()
}
