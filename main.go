package main

import "github.com/4ERNIY-LOSOS/MasterDom/cmd"

func main() {
	cmd.Execute()
}
