package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
)

func main() {
	size := flag.Int("bytes", 32, "Secret length in bytes")
	flag.Parse()

	buf := make([]byte, *size)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	fmt.Printf("WEBHOOK_SECRET=%s\n", hex.EncodeToString(buf))
}
