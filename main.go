package main

import (
	"github.com/meysamhadeli/codai-studio/cmd"
)

func main() {
	cmd.Execute()
}
