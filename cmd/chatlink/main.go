package main

import (
	"fmt"
	"log/slog"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("chatlink v%s\n", version)
	case "init":
		if err := initConfig(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "attach":
		if err := attach(os.Args[2:]); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	case "devserver":
		if err := devServe(os.Args[2:]); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("chatlink - encrypted chat transport client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatlink attach --thread <id>   Attach a terminal to a chat thread")
	fmt.Println("  chatlink devserver              Run the loopback dev server")
	fmt.Println("  chatlink init                   Write a starter config file")
	fmt.Println("  chatlink version                Show version info")
}
