package main

import (
	"github.com/AbrarFaiyad/energy-profile-calculator/cmd"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("workflow failure", "error", err)
	}
}
