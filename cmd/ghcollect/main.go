package main

import "github.com/dangazineu/ghcollect/cmd/ghcollect/internal"

func main() {
	internal.Execute()
}
