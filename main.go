package main

import (
	"github.com/fluidflow/fluidflow/cmd"
)

func main() {
	cmd.Execute()
}
