package main

import "github.com/kprusa/rpfmesh/cmd"

func main() {
	cmd.Execute()
}
