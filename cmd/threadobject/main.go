package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := execute(os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "threadobject: %s\n", err.Error())
		os.Exit(1)
	}
}
