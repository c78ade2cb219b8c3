package main

import (
	"log"
	"os"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// start CLI
	cli := commandLine{out: os.Stdout}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
