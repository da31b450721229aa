package main

import (
	_ "geomarket/docs"
	"geomarket/internal/cmd"
)

func main() {
	cmd.Execute()
}
