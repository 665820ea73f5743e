package main

import "github.com/ValentinKolb/sdb/cmd"

func main() {
	cmd.Execute()
}
