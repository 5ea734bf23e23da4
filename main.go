/*
Package main
File: main.go
Description: Entry point. Hands control to the cobra command tree in
internal/cli (serve, simulate, levels).
*/

package main

import "github.com/everforgeworks/fabline/internal/cli"

func main() {
	cli.Execute()
}
