// Command relineage resolves column provenance over serialized relational
// operator plans.
package main

import "github.com/leapstack-labs/relineage/internal/cli"

func main() {
	cli.Execute()
}
