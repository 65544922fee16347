package main

import "github.com/jmehdipour/fax-gateway/cmd"

func main() {
	cmd.Execute()
}
