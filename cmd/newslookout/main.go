package main

import (
	"github.com/newslookout/newslookout/internal/cli"
)

func main() {
	cli.Execute()
}
