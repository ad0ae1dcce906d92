package main

import (
	"github.com/hyle-oof/oofprover/cmd/oofprover"
)

func main() {
	oofprover.Execute()
}
