package main

import "github.com/Saai416/CSV-Insights-dashboard/cmd"

func main() {
	cmd.Execute()
}
