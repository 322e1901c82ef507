// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/accton/as9817util/cmd/as9817util"

func main() {
	cmd.Execute()
}
