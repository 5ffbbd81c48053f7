// Command mokctl-sim is the developer/test harness binary: it runs the
// same core packages the production mokctl binary uses, against a
// file-backed or in-memory VarStore and a real terminal.
package main

import "mokctl/cmd"

func main() {
	cmd.Execute()
}
