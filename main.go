package main

import "collection-kpi/cmd"

func main() {
	cmd.Execute()
}
