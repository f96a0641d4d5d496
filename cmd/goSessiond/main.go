// Command goSessiond serves the goSession login, refresh and logout endpoints.
//
// Usage:
//
//	goSessiond serve   [-config file]
//	goSessiond migrate [-config file] [-direction up|down]
//	goSessiond useradd [-config file] -email addr [-verified]
//
// Settings come from the optional config file and GOSESSION_* environment
// variables, e.g. GOSESSION_REDIS_ADDR or GOSESSION_JWT_ACCESS_SECRET.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "useradd":
		err = runUserAdd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "goSessiond %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: goSessiond <serve|migrate|useradd> [flags]")
}
