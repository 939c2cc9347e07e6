package main

import (
	"github.com/mchmarny/runweight/pkg/cli"
)

func main() {
	cli.Execute()
}
