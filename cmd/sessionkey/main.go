package main

import (
	"log"

	comm "github.com/daopoll/pollnode/internal/common"
)

func main() {
	log.Default().Println("generating session key...")
	log.Default().Println(" ")

	pk, address, err := comm.GenerateHexPrivateKey()
	if err != nil {
		log.Fatal(err)
	}

	log.Default().Printf("private key: %s\n", pk)
	log.Default().Printf("signer address: %s\n", address)
}
