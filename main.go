package main

import "github.com/mbocsi/avi/cli"

func main() {
	cli.Execute()
}
