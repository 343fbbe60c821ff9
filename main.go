package main

import (
	"log"

	"github.com/tobiodua/bankcore/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("bankcore: %v", err)
	}
}
