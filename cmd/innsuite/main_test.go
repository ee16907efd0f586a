package main

import (
	"testing"

	_ "github.com/innsuite/innsuite/testing"
)

func TestMainSkipsRuntimeInTestMode(t *testing.T) {
	main()
}
