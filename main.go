package main

import "rtdp/cli"

func main() {
	cli.Execute()
}
