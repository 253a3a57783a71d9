// Command assuractl is the operator tool for an Assura deployment.
package main

import "assura/internal/cli"

func main() {
	cli.Execute()
}
