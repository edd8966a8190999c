package main

import (
	"log"

	"github.com/mgmonteleone/AtlasFleetReport/internal/boot"
)

func main() {
	if err := boot.Run(); err != nil {
		log.Fatalf("[FATAL] %s", err)
	}
}
