// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/Amr112345/yanu/cmd/yanu"

func main() {
	cmd.Execute()
}
