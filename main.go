package main

import "github.com/CHRISHLOH/tmdb-etl/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
