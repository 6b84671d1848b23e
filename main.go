package main

import (
	"github.com/ultradaoto/ProxMox-Social-sub001/cmd"
)

func main() {
	cmd.Execute()
}
