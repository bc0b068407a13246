package main

import "github.com/chrisdamba/prepcast/cmd"

func main() {
	cmd.Execute()
}
