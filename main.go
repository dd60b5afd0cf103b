package main

import "airbnb-vacancy/cmd"

func main() {
	cmd.Execute()
}
