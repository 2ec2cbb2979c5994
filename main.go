// Command pkgsign builds, signs, and verifies the pkgsign package format.
package main

import "pkgsign/cmd"

func main() {
	cmd.Execute()
}
