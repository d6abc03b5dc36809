// This program performs administrative tasks for the student register.
package main

import "github.com/ardanlabs/register/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
