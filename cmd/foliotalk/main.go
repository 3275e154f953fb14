package main

import (
	"github.com/foliotalk/foliotalk/cmd/foliotalk/cmd"
)

func main() {
	cmd.Execute()
}
