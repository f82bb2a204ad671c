package main

import "github.com/ValentinKolb/kvmodel/cmd"

func main() {
	cmd.Execute()
}
