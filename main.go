package main

import (
	"log"

	"club-system/cmd"
	_ "club-system/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
