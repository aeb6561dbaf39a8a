package main

import (
	"context"

	"go.creack.net/evm/cli"
)

func main() {
	cli.Main(context.Background(), cli.NewAsmCommand())
}
