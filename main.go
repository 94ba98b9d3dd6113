package main

import (
	"fmt"
	"os"

	"github.com/zalepa/vacstat/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		cmd.Stats(os.Args[2:])
	case "split":
		cmd.Split(os.Args[2:])
	case "rates":
		cmd.Rates(os.Args[2:])
	case "convert":
		cmd.Convert(os.Args[2:])
	case "web":
		cmd.Web(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: vacstat <command> [arguments]

Commands:
  stats     Salary and vacancy statistics by year, with reports
  split     Write one CSV file per publication year
  rates     Fetch monthly exchange rates for a dataset
  convert   Convert salaries to the base currency
  web       Serve the statistics as a web page
`)
}
