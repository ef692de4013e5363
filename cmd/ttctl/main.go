package main

import (
	"tabtime/cmd/ttctl/arg"
)

func main() {
	arg.Execute()
}
